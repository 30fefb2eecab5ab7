// Package startup handles configuration loading, directory validation and
// startup logging for the motion detection backend.
package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/edwintenbrinke/motion-detection/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration. Values are read from the
// environment with the MOTION_ prefix; a .env file in the working
// directory is loaded first if present.
type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9090"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`

	// StagingDir receives raw uploads; RecordingsDir holds the public
	// transcoded artifacts served to clients.
	StagingDir    string `envconfig:"STAGING_DIR" default:"/recordings/staging"`
	RecordingsDir string `envconfig:"RECORDINGS_DIR" default:"/recordings/public"`
	DatabaseDir   string `envconfig:"DATABASE_DIR" default:"/database"`
	CacheDir      string `envconfig:"CACHE_DIR" default:"/cache"`

	FFmpegPath    string        `envconfig:"FFMPEG_PATH" default:"/usr/bin/ffmpeg"`
	FFprobePath   string        `envconfig:"FFPROBE_PATH" default:"/usr/bin/ffprobe"`
	FlipVertical  bool          `envconfig:"FLIP_VERTICAL" default:"true"`
	FFmpegTimeout time.Duration `envconfig:"FFMPEG_TIMEOUT" default:"10m"`

	MaxDiskUsageGB    int           `envconfig:"MAX_DISK_USAGE_GB" default:"100"`
	QueuePollInterval time.Duration `envconfig:"QUEUE_POLL_INTERVAL" default:"2s"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1h"`

	LogHealthChecks bool `envconfig:"LOG_HEALTH_CHECKS" default:"true"`

	// Derived paths
	DatabasePath string `ignored:"true"`
	PosterDir    string `ignored:"true"`

	// Feature flags based on directory/tool availability
	PostersEnabled bool `ignored:"true"`
}

// RetentionCeilingBytes converts the configured GB budget to bytes.
func (c *Config) RetentionCeilingBytes() int64 {
	return int64(c.MaxDiskUsageGB) * 1024 * 1024 * 1024
}

// LoadConfig loads and validates configuration from the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to load .env file: %v", err)
	}

	printBanner()
	logSystemInfo()

	var config Config
	if err := envconfig.Process("MOTION", &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  MOTION_PORT:                %s", config.Port)
	logging.Info("  MOTION_METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  MOTION_METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  MOTION_STAGING_DIR:         %s", config.StagingDir)
	logging.Info("  MOTION_RECORDINGS_DIR:      %s", config.RecordingsDir)
	logging.Info("  MOTION_DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  MOTION_CACHE_DIR:           %s", config.CacheDir)
	logging.Info("  MOTION_FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  MOTION_FFPROBE_PATH:        %s", config.FFprobePath)
	logging.Info("  MOTION_FLIP_VERTICAL:       %v", config.FlipVertical)
	logging.Info("  MOTION_FFMPEG_TIMEOUT:      %s", config.FFmpegTimeout)
	logging.Info("  MOTION_MAX_DISK_USAGE_GB:   %d", config.MaxDiskUsageGB)
	logging.Info("  MOTION_QUEUE_POLL_INTERVAL: %s", config.QueuePollInterval)
	logging.Info("  MOTION_RECONCILE_INTERVAL:  %s", config.ReconcileInterval)
	logging.Info("  LOG_LEVEL:                  %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	for name, dir := range map[string]*string{
		"staging":    &config.StagingDir,
		"recordings": &config.RecordingsDir,
		"database":   &config.DatabaseDir,
		"cache":      &config.CacheDir,
	} {
		*dir, err = filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", name, err)
		}
		if err := ensureDirectory(*dir, name); err != nil {
			return nil, fmt.Errorf("%s directory unusable: %w", name, err)
		}
		logging.Info("  %s directory: %s", name, *dir)
	}

	config.DatabasePath = filepath.Join(config.DatabaseDir, "motion.db")
	config.PosterDir = filepath.Join(config.CacheDir, "posters")

	config.PostersEnabled = true
	if err := ensureDirectory(config.PosterDir, "posters"); err != nil {
		logging.Warn("  Poster cache unavailable, posters disabled: %v", err)
		config.PostersEnabled = false
	}

	checkEncoderTools(&config)

	return &config, nil
}

// checkEncoderTools warns when ffmpeg/ffprobe are not where configuration
// points. Missing tools are not fatal at startup; transcode jobs will fail
// and be logged individually.
func checkEncoderTools(config *Config) {
	for name, path := range map[string]string{
		"ffmpeg":  config.FFmpegPath,
		"ffprobe": config.FFprobePath,
	} {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if resolved, err := exec.LookPath(name); err == nil {
			logging.Warn("  %s not found at %s, using %s", name, path, resolved)
			if name == "ffmpeg" {
				config.FFmpegPath = resolved
			} else {
				config.FFprobePath = resolved
			}
			continue
		}
		logging.Warn("  %s not found at %s or in PATH; transcode jobs will fail", name, path)
	}
}

// ensureDirectory creates dir if needed and verifies it is writable.
func ensureDirectory(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", name, err)
	}

	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("%s directory not writable: %w", name, err)
	}
	if err := os.Remove(probe); err != nil {
		logging.Warn("failed to remove write probe %s: %v", probe, err)
	}
	return nil
}

func printBanner() {
	logging.Info("============================================================")
	logging.Info("Motion Detection Backend %s (%s)", Version, Commit)
	logging.Info("============================================================")
}

func logSystemInfo() {
	logging.Info("Go version: %s", GoVersion)
	logging.Info("OS/Arch:    %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("CPUs:       %d (GOMAXPROCS=%d)", runtime.NumCPU(), runtime.GOMAXPROCS(0))
}

// LogHTTPRoutes walks the router and logs every registered route.
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP ROUTES")
	logging.Info("------------------------------------------------------------")

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			logging.Info("  ALL %s", path)
			return nil
		}
		for _, m := range methods {
			logging.Info("  %-6s %s", m, path)
		}
		return nil
	})
	if err != nil {
		logging.Warn("Failed to walk routes: %v", err)
	}
}

// LogServerStarted logs the final startup line with total startup time.
func LogServerStarted(port string, elapsed time.Duration) {
	logging.Info("")
	logging.Info("Server listening on :%s (started in %v)", port, elapsed.Round(time.Millisecond))
}

// LogShutdownInitiated logs the signal that started the shutdown.
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("Received %s, shutting down", signal)
}

// LogShutdownStep logs one step of the shutdown sequence.
func LogShutdownStep(step string) {
	logging.Info("  %s...", step)
}

// LogShutdownComplete logs the end of the shutdown sequence.
func LogShutdownComplete() {
	logging.Info("Shutdown complete")
}

// LogFatal logs a fatal startup error and exits.
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
