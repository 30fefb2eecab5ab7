package database

import (
	"context"
	"errors"
	"testing"
)

func TestDeviceTokenLifecycle(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if db.HasDeviceToken(ctx) {
		t.Error("Fresh database should have no device token")
	}
	if err := db.ValidateDeviceToken(ctx, "anything"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken with no token configured, got %v", err)
	}

	if err := db.SetDeviceToken(ctx, "correct-horse"); err != nil {
		t.Fatalf("SetDeviceToken failed: %v", err)
	}
	if !db.HasDeviceToken(ctx) {
		t.Error("Expected a configured token")
	}

	if err := db.ValidateDeviceToken(ctx, "correct-horse"); err != nil {
		t.Errorf("Expected the right token to validate, got %v", err)
	}
	if err := db.ValidateDeviceToken(ctx, "wrong-horse"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong token, got %v", err)
	}

	// Replacing the token invalidates the old one.
	if err := db.SetDeviceToken(ctx, "battery-staple"); err != nil {
		t.Fatalf("SetDeviceToken failed: %v", err)
	}
	if err := db.ValidateDeviceToken(ctx, "correct-horse"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected old token to stop working, got %v", err)
	}
	if err := db.ValidateDeviceToken(ctx, "battery-staple"); err != nil {
		t.Errorf("Expected new token to validate, got %v", err)
	}
}
