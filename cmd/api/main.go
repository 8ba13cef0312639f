package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/alert"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/api"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/app"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/config"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/service"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/webhook"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Glimpse API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	opts := []service.Option{service.WithNotifier(hub)}
	targets := []alert.Broadcaster{hub}

	var dispatcher *webhook.Dispatcher
	if cfg.WebhookEnabled() {
		dispatcher = webhook.NewDispatcher(webhook.Config{
			URL:         cfg.WebhookURL,
			Secret:      cfg.WebhookSecret,
			Events:      cfg.WebhookEvents,
			MaxAttempts: cfg.WebhookMaxAttempts,
		}, logger)
		go dispatcher.Start(hubCtx)
		defer dispatcher.Stop()

		opts = append(opts, service.WithNotifier(dispatcher))
		targets = append(targets, dispatcher)
	}

	stack, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("close recognition stack", slog.Any("error", err))
		}
	}()

	manager := pipeline.NewManager(ctx, stack.Session, stack.Gallery, func(r pipeline.Result) {
		hub.Broadcast(r.Stream, ws.EventRecognition, r)
		if dispatcher != nil {
			dispatcher.Broadcast(r.Stream, ws.EventRecognition, r)
		}
	}, logger)
	defer manager.Shutdown()

	aggregator := metrics.NewAggregator(metrics.Sources{
		Stats:          stack.Session.Stats().Snapshot,
		Streams:        manager.Streams,
		GalleryEntries: func() int { return len(stack.Gallery.Snapshot()) },
	}, hub, logger, cfg.StatsInterval)

	monitor := alert.NewMonitor(alert.NewEngine(alert.DefaultRules(cfg.AlertDropRatio, cfg.AlertCooldown)), logger, targets...)
	aggregator.OnReport(monitor.HandleReport)
	go aggregator.Start(ctx)
	defer aggregator.Stop()

	deps := &api.Dependencies{
		Service:    stack.Service,
		Session:    stack.Session,
		Manager:    manager,
		Hub:        hub,
		Aggregator: aggregator,
		DocsHost:   fmt.Sprintf("localhost:%d", cfg.Port),
	}
	if stack.Pool != nil {
		deps.DB = stack.Pool
	}

	router := api.NewRouter(logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- router.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	// Workers stop before the hub so their last results still have a receiver.
	manager.Shutdown()
	if dispatcher != nil {
		dispatcher.Stop()
	}
	cancelHub()
	logger.Info("server stopped")

	return nil
}
