// Package queue decouples upload intake from the slow transcode and
// retention work. Job intents are durably recorded in the database before
// the upload response returns; a small worker pool delivers them to
// registered handlers at least once. Handlers must therefore be
// idempotent or safely no-op on repeated delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
)

// Job kinds accepted from the upload path.
const (
	KindProcessFile      = "process_file"
	KindEnforceRetention = "enforce_retention"
)

// ProcessFilePayload identifies the catalog record to transcode.
type ProcessFilePayload struct {
	FileID int64 `json:"file_id"`
}

// EnforceRetentionPayload carries the retention budget for one category.
// The ceiling comes from the uploader's configuration context, not from
// the pipeline.
type EnforceRetentionPayload struct {
	CeilingBytes int64             `json:"ceiling_bytes"`
	Category     database.Category `json:"category"`
}

// EnqueueProcessFile durably records a transcode intent.
func EnqueueProcessFile(ctx context.Context, db *database.Database, fileID int64) error {
	_, err := db.EnqueueJob(ctx, KindProcessFile, ProcessFilePayload{FileID: fileID})
	if err != nil {
		return fmt.Errorf("failed to enqueue process job for record %d: %w", fileID, err)
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(KindProcessFile).Inc()
	return nil
}

// EnqueueRetention durably records a retention pass intent.
func EnqueueRetention(ctx context.Context, db *database.Database, ceilingBytes int64, category database.Category) error {
	_, err := db.EnqueueJob(ctx, KindEnforceRetention, EnforceRetentionPayload{
		CeilingBytes: ceilingBytes,
		Category:     category,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue retention job for category %s: %w", category, err)
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(KindEnforceRetention).Inc()
	return nil
}

// DecodePayload unmarshals a job payload into the expected shape.
func DecodePayload[T any](raw []byte) (T, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode job payload: %w", err)
	}
	return payload, nil
}
