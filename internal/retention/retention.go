// Package retention enforces a per-category disk-usage ceiling on
// processed recordings by evicting the oldest captures first.
package retention

import (
	"context"
	"os"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
)

// batchSize bounds how many eviction candidates are fetched and deleted
// per transaction.
const batchSize = 100

// Manager runs retention passes against the catalog. Only processed
// records are counted and evicted, so a pass can never race the
// transcoder on an in-flight upload.
type Manager struct {
	db *database.Database
}

// New creates a retention Manager.
func New(db *database.Database) *Manager {
	return &Manager{db: db}
}

// Enforce deletes the oldest processed recordings of a category until the
// aggregate size is at or under ceilingBytes, or no candidates remain.
// Running out of records while still over budget is a benign terminal
// condition, logged for operator visibility. Enforce is idempotent: a
// pass over a category already under budget does nothing.
func (m *Manager) Enforce(ctx context.Context, ceilingBytes int64, category database.Category) error {
	metrics.RetentionRunsTotal.Inc()

	total, err := m.db.TotalProcessedSize(ctx, category)
	if err != nil {
		return err
	}

	defer func() {
		metrics.RetentionCategoryBytes.WithLabelValues(category.String()).Set(float64(total))
	}()

	if total <= ceilingBytes {
		logging.Debug("Retention: category %s at %d bytes, under ceiling %d", category, total, ceilingBytes)
		return nil
	}

	logging.Info("Retention: category %s at %d bytes, ceiling %d, evicting oldest", category, total, ceilingBytes)

	for total > ceilingBytes {
		batch, err := m.db.OldestProcessedBatch(ctx, category, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			// Nothing left to reclaim; the category stays over its cap
			// until new budget is configured.
			logging.Warn("Retention: category %s exhausted while still %d bytes over ceiling",
				category, total-ceilingBytes)
			break
		}

		deleted := make([]int64, 0, len(batch))
		for _, record := range batch {
			path := record.FullFilePath()
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logging.Warn("Retention: failed to delete %s: %v", path, err)
			}

			deleted = append(deleted, record.ID)
			total -= record.FileSize
			metrics.RetentionFilesDeleted.WithLabelValues(category.String()).Inc()
			metrics.RetentionBytesFreed.WithLabelValues(category.String()).Add(float64(record.FileSize))

			if total <= ceilingBytes {
				break
			}
		}

		// Catalog rows go in one transaction per batch to bound commit
		// overhead.
		if err := m.db.DeleteRecords(ctx, deleted); err != nil {
			return err
		}

		logging.Info("Retention: evicted %d recordings from category %s, %d bytes remain", len(deleted), category, total)
	}

	return nil
}
