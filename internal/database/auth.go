package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned when the presented device token does not
// match the stored hash, or when no token has been configured yet.
var ErrInvalidToken = errors.New("invalid device token")

// HasDeviceToken reports whether an upload token has been configured.
func (d *Database) HasDeviceToken(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_token`).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// SetDeviceToken stores the bcrypt hash of the camera's upload token,
// replacing any previous one.
func (d *Database) SetDeviceToken(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash device token: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO device_token (id, token_hash, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token_hash = excluded.token_hash,
			updated_at = excluded.updated_at`,
		string(hash), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to store device token: %w", err)
	}
	return nil
}

// ValidateDeviceToken checks the presented token against the stored hash.
func (d *Database) ValidateDeviceToken(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT token_hash FROM device_token WHERE id = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to load device token: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}
