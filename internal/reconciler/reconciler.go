// Package reconciler removes catalog entries whose underlying file has
// vanished from disk, keeping the invariant that every processed record
// resolves to a readable recording.
package reconciler

import (
	"context"
	"os"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

const pageSize = 500

// Reconciler periodically sweeps the catalog for stale processed records.
// Files can disappear behind the catalog's back when operators prune the
// recordings volume by hand.
type Reconciler struct {
	db       *database.Database
	interval time.Duration
}

// New creates a Reconciler sweeping at the given interval.
func New(db *database.Database, interval time.Duration) *Reconciler {
	return &Reconciler{db: db, interval: interval}
}

// Start runs an immediate sweep and then repeats on the interval until
// ctx is canceled.
func (r *Reconciler) Start(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		logging.Error("Reconciler: initial sweep failed: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				logging.Error("Reconciler: sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce sweeps the whole catalog once and returns how many stale
// records were removed.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	removed := 0

	var afterID int64
	for {
		batch, err := r.db.ListProcessedBatch(ctx, pageSize, afterID)
		if err != nil {
			return removed, err
		}
		if len(batch) == 0 {
			break
		}

		var stale []int64
		for _, record := range batch {
			afterID = record.ID
			if _, err := os.Stat(record.FullFilePath()); os.IsNotExist(err) {
				logging.Warn("Reconciler: file missing for record %d (%s), removing entry",
					record.ID, record.FullFilePath())
				stale = append(stale, record.ID)
			}
		}

		if len(stale) > 0 {
			if err := r.db.DeleteRecords(ctx, stale); err != nil {
				return removed, err
			}
			removed += len(stale)
		}
	}

	if removed > 0 {
		logging.Info("Reconciler: removed %d stale records in %v", removed, time.Since(start))
	} else {
		logging.Debug("Reconciler: catalog clean, sweep took %v", time.Since(start))
	}
	return removed, nil
}
