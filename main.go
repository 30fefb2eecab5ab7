package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/edwintenbrinke/motion-detection/internal/database"
	"github.com/edwintenbrinke/motion-detection/internal/handlers"
	"github.com/edwintenbrinke/motion-detection/internal/logging"
	"github.com/edwintenbrinke/motion-detection/internal/middleware"
	"github.com/edwintenbrinke/motion-detection/internal/queue"
	"github.com/edwintenbrinke/motion-detection/internal/reconciler"
	"github.com/edwintenbrinke/motion-detection/internal/retention"
	"github.com/edwintenbrinke/motion-detection/internal/startup"
	"github.com/edwintenbrinke/motion-detection/internal/transcoder"
	"github.com/edwintenbrinke/motion-detection/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize the processing pipeline
	encoder := &transcoder.FFmpegEncoder{
		Path:         config.FFmpegPath,
		FlipVertical: config.FlipVertical,
		Timeout:      config.FFmpegTimeout,
	}
	prober := &transcoder.FFprobeProber{
		Path:    config.FFprobePath,
		Timeout: config.FFmpegTimeout,
	}
	trans := transcoder.New(db, encoder, prober, config.RecordingsDir)
	keeper := retention.New(db)

	// Job dispatcher draining the durable queue
	dispatcher := queue.NewDispatcher(db, config.QueuePollInterval, workers.ForMixed(8))
	dispatcher.Register(queue.KindProcessFile, func(ctx context.Context, payload []byte) error {
		p, err := queue.DecodePayload[queue.ProcessFilePayload](payload)
		if err != nil {
			return err
		}
		return trans.Process(ctx, p.FileID)
	})
	dispatcher.Register(queue.KindEnforceRetention, func(ctx context.Context, payload []byte) error {
		p, err := queue.DecodePayload[queue.EnforceRetentionPayload](payload)
		if err != nil {
			return err
		}
		return keeper.Enforce(ctx, p.CeilingBytes, p.Category)
	})
	dispatcher.Start(ctx)

	// Periodic sweep for catalog entries whose file vanished
	rec := reconciler.New(db, config.ReconcileInterval)
	go rec.Start(ctx)

	// Initialize handlers and router
	h := handlers.New(db, config)
	router := setupRouter(h, db)
	startup.LogHTTPRoutes(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics are served on their own port so the API surface can be
	// exposed without leaking operational details.
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			logging.Info("Metrics listening on :%s", config.MetricsPort)
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(ctx, srv, metricsSrv, dispatcher)

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}

	// Give in-flight jobs a chance to persist their outcome.
	dispatcher.Wait()
	startup.LogShutdownComplete()
}

func setupRouter(h *handlers.Handlers, db *database.Database) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.Livez).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Intake from the capture device, guarded by the device token
	deviceAuth := middleware.DeviceAuth(db)
	api.Handle("/video/upload", deviceAuth(http.HandlerFunc(h.UploadVideo))).Methods("POST")

	// Playback and inspection
	api.HandleFunc("/video/stream/{filename}", h.StreamVideo).Methods("GET")
	api.HandleFunc("/video/thumbnail/{filename}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/video/debug/{filename}", h.DebugFile).Methods("GET")

	// Calendar style browsing
	api.HandleFunc("/motion-detected-file/table", h.GetTable).Methods("GET")
	api.HandleFunc("/motion-detected-file/calendar", h.GetCalendar).Methods("GET")
	api.HandleFunc("/motion-detected-file/hour", h.GetHour).Methods("GET")

	return r
}

func handleShutdown(ctx context.Context, srv, metricsSrv *http.Server, dispatcher *queue.Dispatcher) {
	<-ctx.Done()
	startup.LogShutdownInitiated("signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
}
