// Package media generates poster images for processed recordings so the
// calendar UI can show a preview without loading the video.
package media

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

// PosterGenerator extracts the first frame of a recording with ffmpeg and
// caches a resized JPEG on disk, keyed by the md5 of the file path.
type PosterGenerator struct {
	cacheDir   string
	ffmpegPath string
	enabled    bool
	mu         sync.Mutex
}

// NewPosterGenerator creates a generator writing into cacheDir.
func NewPosterGenerator(cacheDir, ffmpegPath string, enabled bool) *PosterGenerator {
	if enabled {
		logging.Debug("PosterGenerator: enabled, cache dir: %s", cacheDir)
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			logging.Warn("PosterGenerator: failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("PosterGenerator: disabled")
	}
	return &PosterGenerator{
		cacheDir:   cacheDir,
		ffmpegPath: ffmpegPath,
		enabled:    enabled,
	}
}

// IsEnabled returns whether poster generation is available.
func (p *PosterGenerator) IsEnabled() bool {
	return p.enabled
}

// GetPoster returns the cached poster JPEG for a recording, generating it
// on first request.
func (p *PosterGenerator) GetPoster(filePath string) ([]byte, error) {
	if !p.enabled {
		return nil, fmt.Errorf("posters disabled")
	}

	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	hash := md5.Sum([]byte(filePath))
	cachePath := filepath.Join(p.cacheDir, fmt.Sprintf("%x.jpg", hash))

	if data, err := os.ReadFile(cachePath); err == nil {
		logging.Debug("Poster cache hit: %s", filePath)
		return data, nil
	}

	// Serialize generation; concurrent requests for the same recording
	// would race ffmpeg for no benefit on a single-camera box.
	p.mu.Lock()
	defer p.mu.Unlock()

	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	img, err := p.extractFrame(filePath)
	if err != nil {
		return nil, fmt.Errorf("poster generation failed: %w", err)
	}

	poster := imaging.Fit(img, 320, 320, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, poster, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}

	if err := os.WriteFile(cachePath, buf.Bytes(), 0644); err != nil {
		logging.Warn("Failed to cache poster %s: %v", cachePath, err)
	} else {
		logging.Debug("Poster cached: %s", cachePath)
	}

	return buf.Bytes(), nil
}

func (p *PosterGenerator) extractFrame(filePath string) (image.Image, error) {
	cmd := exec.Command(p.ffmpegPath,
		"-i", filePath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-pix_fmt", "rgb24",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", filePath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
