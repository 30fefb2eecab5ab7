package transcoder

import "context"

// Metadata holds the best-effort probe result for a video file. Zero
// values mean the probe could not determine the field; that never fails
// the processing job.
type Metadata struct {
	Width           int
	Height          int
	DurationSeconds int
}

// Encoder converts an input clip into a playable output file. A non-nil
// error means the output must not be trusted and the input is left in
// place for inspection.
type Encoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Prober extracts video metadata from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}
