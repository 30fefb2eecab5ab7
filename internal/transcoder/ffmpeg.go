package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

// FFmpegEncoder shells out to ffmpeg with a fixed argument template:
// libx264 video, aac audio, optional vertical flip for cameras mounted
// upside down.
type FFmpegEncoder struct {
	Path         string
	FlipVertical bool
	Timeout      time.Duration
}

// Transcode runs the conversion. The subprocess is killed when the
// timeout elapses; a timeout is reported like any other encoder failure.
func (e *FFmpegEncoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-strict", "experimental",
	}
	if e.FlipVertical {
		args = append(args, "-vf", "vflip")
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, e.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("Running FFmpeg command: %s %s", e.Path, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out after %s: %w", e.Timeout, ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// FFprobeProber shells out to ffprobe and parses its JSON output.
type FFprobeProber struct {
	Path    string
	Timeout time.Duration
}

// ffprobe reports numeric fields of -show_entries as JSON strings.
type probeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Duration string `json:"duration"`
	} `json:"streams"`
}

// Probe extracts width, height and duration from the first video stream.
// Missing fields are tolerated and left zero.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (*Metadata, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe timed out after %s: %w", p.Timeout, ctx.Err())
		}
		return nil, fmt.Errorf("ffprobe failed: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	var parsed probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("ffprobe reported no video streams for %s", path)
	}

	stream := parsed.Streams[0]
	meta := &Metadata{
		Width:  stream.Width,
		Height: stream.Height,
	}
	if stream.Duration != "" {
		if seconds, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
			meta.DurationSeconds = int(math.Round(seconds))
		}
	}
	return meta, nil
}
