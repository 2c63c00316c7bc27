package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/orbitalcopilot/usage-service/internal/config"
	"github.com/orbitalcopilot/usage-service/internal/copilot"
	"github.com/orbitalcopilot/usage-service/internal/credits"
	"github.com/orbitalcopilot/usage-service/internal/gateway"
	"github.com/orbitalcopilot/usage-service/internal/usage"
	"github.com/orbitalcopilot/usage-service/pkg/cache"
	"github.com/orbitalcopilot/usage-service/pkg/events"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting Orbital Copilot usage service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize Redis report-cost cache (optional)
	var reportCache *cache.Cache
	if cfg.Redis.Enabled {
		reportCache, err = cache.NewCache(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer reportCache.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Info("Redis disabled, report lookups always go upstream")
	}

	// Initialize event bus
	eventBus := events.NewBus(logger)
	eventBus.Subscribe(events.EventUsageComputed, func(ctx context.Context, event events.Event) error {
		logger.Debug("usage computed",
			zap.String("event_id", event.ID),
			zap.Any("source", event.Payload["source"]),
			zap.Any("credits", event.Payload["credits"]),
		)
		return nil
	})
	eventBus.Subscribe(events.EventReportLookupFailed, func(ctx context.Context, event events.Event) error {
		logger.Warn("report lookup degraded",
			zap.String("event_id", event.ID),
			zap.Any("report_id", event.Payload["report_id"]),
		)
		return nil
	})
	logger.Info("initialized event bus")

	// Initialize Copilot API client
	client := copilot.NewClient(copilot.Config{
		BaseURL: cfg.Copilot.BaseURL,
		Token:   cfg.Copilot.Token,
		Timeout: cfg.Copilot.Timeout,
	}, logger)
	logger.Info("initialized Copilot API client",
		zap.String("base_url", cfg.Copilot.BaseURL),
	)

	// Initialize credit calculator and usage service
	calculator := credits.NewCalculator()
	usageService := usage.NewService(client, calculator, reportCache, eventBus, cfg.Redis.ReportCostTTL, logger)
	logger.Info("initialized usage service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize API gateway
	gw := gateway.NewGateway(usageService, reportCache, logger, cfg.Monitoring.MetricsPath)
	gw.StartHealthMetrics(ctx)
	logger.Info("initialized API gateway")

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      gw,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
