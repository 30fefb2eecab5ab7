package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/metrics"
	"github.com/edwintenbrinke/motion-detection/internal/namer"
)

// Transcoder processes raw uploads into servable MP4 recordings. Process
// is invoked by the dispatcher with a catalog record id.
type Transcoder struct {
	db        *database.Database
	encoder   Encoder
	prober    Prober
	outputDir string
}

// New creates a Transcoder writing processed artifacts into outputDir.
func New(db *database.Database, encoder Encoder, prober Prober, outputDir string) *Transcoder {
	return &Transcoder{
		db:        db,
		encoder:   encoder,
		prober:    prober,
		outputDir: outputDir,
	}
}

// Process converts the recording identified by id. It is safe to call
// repeatedly for the same id: an unknown or already-processed record is a
// no-op. On encoder failure the raw input and the record are left
// untouched so operators can inspect and retry manually.
func (t *Transcoder) Process(ctx context.Context, id int64) error {
	record, err := t.db.GetRecord(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		logging.Warn("Transcode: record %d no longer exists, skipping", id)
		return nil
	}
	if err != nil {
		return err
	}
	if record.Processed {
		logging.Debug("Transcode: record %d already processed, skipping", id)
		return nil
	}

	inputPath := record.FullFilePath()
	if _, err := os.Stat(inputPath); err != nil {
		metrics.TranscodeRunsTotal.WithLabelValues("missing_input").Inc()
		return fmt.Errorf("source file missing for record %d: %w", id, err)
	}

	outputName := namer.UniqueName(t.outputDir, mp4Name(record.FileName))
	outputPath := filepath.Join(t.outputDir, outputName)

	logging.Info("Starting conversion for file: %s", inputPath)

	start := time.Now()
	if err := t.encoder.Transcode(ctx, inputPath, outputPath); err != nil {
		metrics.TranscodeRunsTotal.WithLabelValues("encode_failed").Inc()
		logging.Error("Conversion failed for %s (output %s): %v", inputPath, outputPath, err)
		return fmt.Errorf("conversion failed for record %d: %w", id, err)
	}
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())

	logging.Info("Conversion successful: %s", outputPath)

	// The raw upload is no longer needed. A failed delete leaves an
	// orphan on the staging volume but never fails the job.
	if err := os.Remove(inputPath); err != nil {
		logging.Warn("Failed to delete raw input %s: %v", inputPath, err)
	}

	// Metadata is best effort; the record is marked processed either way.
	meta := &Metadata{}
	if probed, err := t.prober.Probe(ctx, outputPath); err != nil {
		logging.Error("Failed to retrieve video metadata for %s: %v", outputPath, err)
	} else {
		meta = probed
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		metrics.TranscodeRunsTotal.WithLabelValues("stat_failed").Inc()
		return fmt.Errorf("failed to stat transcoded output %s: %w", outputPath, err)
	}

	if err := t.db.MarkProcessed(ctx, id, outputName, t.outputDir, info.Size(),
		meta.Width, meta.Height, meta.DurationSeconds); err != nil {
		metrics.TranscodeRunsTotal.WithLabelValues("db_failed").Inc()
		return err
	}

	metrics.TranscodeRunsTotal.WithLabelValues("ok").Inc()
	logging.Info("Record %d processed: %s (%d bytes, %ds, %dx%d)",
		id, outputName, info.Size(), meta.DurationSeconds, meta.Width, meta.Height)
	return nil
}

// mp4Name swaps the file extension for .mp4.
func mp4Name(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".mp4"
}
