package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job statuses. Pending jobs are durable intents written before the
// upload response returns; running jobs belong to a dispatcher worker;
// failed jobs keep their error text for operator inspection.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Job is one durable queue entry.
type Job struct {
	ID        string
	Kind      string
	Payload   []byte
	Status    string
	Error     string
	CreatedAt time.Time
}

// EnqueueJob durably records a job intent. The payload is serialized as
// JSON. The job is visible to the dispatcher as soon as the insert
// commits.
func (d *Database) EnqueueJob(ctx context.Context, kind string, payload any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Unix()
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO jobs (id, kind, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, string(body), JobStatusPending, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s job: %w", kind, err)
	}
	return id, nil
}

// GetJob fetches one queue entry by id.
func (d *Database) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		job     Job
		payload string
		created int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, kind, payload, status, COALESCE(error, ''), created_at
		FROM jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.Kind, &payload, &job.Status, &job.Error, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to query job %s: %w", id, err)
	}
	job.Payload = []byte(payload)
	job.CreatedAt = time.Unix(created, 0).UTC()
	return &job, nil
}

// ClaimPendingJobs atomically moves up to limit pending jobs to running
// and returns them in enqueue order.
func (d *Database) ClaimPendingJobs(ctx context.Context, limit int) ([]Job, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, kind, payload, status, COALESCE(error, ''), created_at
		FROM jobs
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		JobStatusPending, limit)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}

	var jobs []Job
	var ids []any
	for rows.Next() {
		var (
			job     Job
			payload string
			created int64
		)
		if err := rows.Scan(&job.ID, &job.Kind, &payload, &job.Status, &job.Error, &created); err != nil {
			rows.Close()
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		job.Payload = []byte(payload)
		job.CreatedAt = time.Unix(created, 0).UTC()
		jobs = append(jobs, job)
		ids = append(ids, job.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to iterate pending jobs: %w", err)
	}
	rows.Close()

	if len(jobs) == 0 {
		_ = tx.Rollback()
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := append([]any{JobStatusRunning, time.Now().UTC().Unix()}, ids...)
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id IN (`+placeholders+`)`,
		args...); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit job claim: %w", err)
	}
	return jobs, nil
}

// MarkJobDone records successful completion.
func (d *Database) MarkJobDone(ctx context.Context, id string) error {
	return d.finishJob(ctx, id, JobStatusDone, "")
}

// MarkJobFailed records a terminal handler failure. There is no automatic
// requeue; operators act on the retained error text.
func (d *Database) MarkJobFailed(ctx context.Context, id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return d.finishJob(ctx, id, JobStatusFailed, msg)
}

func (d *Database) finishJob(ctx context.Context, id, status, errMsg string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = NULLIF(?, ''), updated_at = ?
		WHERE id = ?`,
		status, errMsg, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", id, status, err)
	}
	return nil
}

// ResetRunningJobs returns jobs stuck in running back to pending. Called
// once at startup so that work interrupted by a crash is redelivered
// (at-least-once; handlers are idempotent).
func (d *Database) ResetRunningJobs(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
		JobStatusPending, time.Now().UTC().Unix(), JobStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to reset running jobs: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
