package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"trafficserver/internal/config"
	"trafficserver/internal/logger"
	"trafficserver/internal/monitor"
	"trafficserver/internal/route"
	"trafficserver/internal/service"
	"trafficserver/internal/service/ai"
	"trafficserver/internal/service/capture"
	"trafficserver/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	hubService *websocket.HubService
	metrics    *monitor.Metrics
	manager    *service.Manager
	server     *http.Server
}

// NewApp loads the detection model and wires the pipeline and HTTP surface.
// A model that cannot be loaded is returned as an error and the server must not start.
func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	detector, err := ai.NewDetectorService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize detector: %w", err)
	}

	hub := websocket.NewHubService(logger)
	metrics := monitor.NewMetrics()
	mng := service.NewManager(detector, capture.DeviceOpener, cfg, metrics, hub, logger)

	router := route.SetupRoutes(mng, hub, metrics, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		hubService: hub,
		metrics:    metrics,
		manager:    mng,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves HTTP and the background services until ctx is cancelled, then shuts
// everything down and releases the capture source and the model.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hubService.Run(ctx)
		return nil
	})

	g.Go(func() error {
		interval := time.Duration(a.config.MetricsIntervalMs) * time.Millisecond
		return a.metrics.Run(ctx, interval, a.logger)
	})

	g.Go(func() error {
		a.logger.Info("🚀 Traffic stream server")
		a.logger.Info("📍 URL: http://%s", a.config.Addr())
		a.logger.Info("🎥 Sources: webcam=%d video=%s", a.config.WebcamDevice, a.config.VideoPath)
		a.logger.Info("🤖 AI Model: %s", a.config.ModelPath)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down...")

		// Open video feeds only return once their run has ended.
		a.manager.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)

		if closeErr := a.manager.Close(); closeErr != nil {
			a.logger.Warning("Error closing detector: %v", closeErr)
		}
		return err
	})

	return g.Wait()
}
