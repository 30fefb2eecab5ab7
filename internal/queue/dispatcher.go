package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
)

// Handler executes one job kind. A returned error marks the job failed
// with the error text retained; there is no automatic requeue.
type Handler func(ctx context.Context, payload []byte) error

// Dispatcher polls the durable queue and fans claimed jobs out to a
// worker pool. A slow transcode occupies one worker; retention for an
// unrelated category keeps flowing through the others.
type Dispatcher struct {
	db           *database.Database
	pollInterval time.Duration
	workerCount  int

	mu       sync.Mutex
	handlers map[string]Handler

	jobs chan database.Job
	wg   sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with the given poll interval and
// worker pool size.
func NewDispatcher(db *database.Database, pollInterval time.Duration, workerCount int) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Dispatcher{
		db:           db,
		pollInterval: pollInterval,
		workerCount:  workerCount,
		handlers:     make(map[string]Handler),
	}
}

// Register installs the handler for a job kind. Must be called before
// Start.
func (d *Dispatcher) Register(kind string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// Start requeues jobs orphaned by a previous crash, then launches the
// worker pool and the poll loop. It returns immediately; call Wait to
// block until shutdown completes after ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	if n, err := d.db.ResetRunningJobs(ctx); err != nil {
		logging.Error("Dispatcher: failed to reset orphaned jobs: %v", err)
	} else if n > 0 {
		logging.Info("Dispatcher: requeued %d jobs interrupted by previous shutdown", n)
	}

	d.jobs = make(chan database.Job)

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.wg.Add(1)
	go d.poll(ctx)

	logging.Info("Dispatcher: started with %d workers, polling every %s", d.workerCount, d.pollInterval)
}

// Wait blocks until the poll loop and all workers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) poll(ctx context.Context) {
	defer d.wg.Done()
	defer close(d.jobs)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		// Drain everything pending before going back to sleep so a burst
		// of uploads is not throttled to one batch per tick.
		for {
			claimed, err := d.db.ClaimPendingJobs(ctx, d.workerCount)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Error("Dispatcher: failed to claim jobs: %v", err)
				break
			}
			if len(claimed) == 0 {
				break
			}
			for _, job := range claimed {
				select {
				case d.jobs <- job:
				case <-ctx.Done():
					return
				}
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()

	for job := range d.jobs {
		d.run(ctx, job, n)
	}
}

func (d *Dispatcher) run(ctx context.Context, job database.Job, worker int) {
	d.mu.Lock()
	handler, ok := d.handlers[job.Kind]
	d.mu.Unlock()

	if !ok {
		logging.Error("Dispatcher: no handler registered for job kind %q (job %s)", job.Kind, job.ID)
		d.finish(job, fmt.Errorf("no handler for kind %q", job.Kind))
		return
	}

	logging.Debug("Dispatcher: worker %d running %s job %s", worker, job.Kind, job.ID)

	start := time.Now()
	err := handler(ctx, job.Payload)
	metrics.JobDuration.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())

	if err != nil {
		logging.Error("Dispatcher: %s job %s failed after %v: %v", job.Kind, job.ID, time.Since(start), err)
	} else {
		logging.Debug("Dispatcher: %s job %s completed in %v", job.Kind, job.ID, time.Since(start))
	}
	d.finish(job, err)
}

// finish records the job outcome. Marking uses a fresh context: the job
// already ran, and its result must be persisted even during shutdown.
func (d *Dispatcher) finish(job database.Job, jobErr error) {
	markCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if jobErr != nil {
		metrics.JobsProcessedTotal.WithLabelValues(job.Kind, "failed").Inc()
		if err := d.db.MarkJobFailed(markCtx, job.ID, jobErr); err != nil {
			logging.Error("Dispatcher: failed to mark job %s failed: %v", job.ID, err)
		}
		return
	}

	metrics.JobsProcessedTotal.WithLabelValues(job.Kind, "ok").Inc()
	if err := d.db.MarkJobDone(markCtx, job.ID); err != nil {
		logging.Error("Dispatcher: failed to mark job %s done: %v", job.ID, err)
	}
}
