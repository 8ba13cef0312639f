// Package app wires configuration into a ready recognition stack shared by
// the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/audit"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/config"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/database"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/face"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/gallery"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/matcher"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/repository"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/service"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/storage"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

type App struct {
	Session *pipeline.Session
	Gallery *gallery.Service
	Images  *storage.DiskStore
	Service *service.RecognitionService
	Pool    *pgxpool.Pool // nil for the in-memory gallery
}

// New builds and initializes the stack. The session is initialized before
// returning, so a model with an unsupported shape fails here.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...service.Option) (*App, error) {
	embedder, err := face.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	detector, err := face.NewDetector(ctx, cfg)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("create detector: %w", err)
	}

	m := matcher.New(logger).WithThreshold(cfg.MatchThreshold)
	norm := vision.Normalization{Scale: cfg.NormScale, Offset: cfg.NormOffset}
	a := &App{
		Session: pipeline.NewSession(embedder, detector, m, norm, logger),
	}

	if err := a.Session.Initialize(ctx); err != nil {
		_ = a.Session.Shutdown()
		return nil, fmt.Errorf("initialize session: %w", err)
	}

	var store gallery.Store = gallery.NewMemoryStore()
	if cfg.UsesDatabase() {
		if cfg.AutoMigrate {
			if err := database.MigrateUp(ctx, cfg.DatabaseURL, logger); err != nil {
				_ = a.Session.Shutdown()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		a.Pool, err = database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			_ = a.Session.Shutdown()
			return nil, err
		}
		store = repository.NewGalleryRepository(a.Pool)
	}

	a.Gallery = gallery.NewService(store, logger)
	if err := a.Gallery.Load(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load gallery: %w", err)
	}

	a.Images, err = storage.NewDiskStore(cfg.ImageDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	opts = append([]service.Option{
		service.WithAuditLogger(audit.NewSlogLogger(logger)),
		service.WithDuplicateThreshold(cfg.DuplicateThreshold),
	}, opts...)
	a.Service = service.NewRecognitionService(a.Session, a.Gallery, a.Images, logger, opts...)

	logger.Info("recognition stack ready",
		slog.String("embedder", cfg.EmbedderProvider),
		slog.String("detector", cfg.DetectorProvider),
		slog.Bool("database", a.Pool != nil),
		slog.Int("gallery_entries", len(a.Gallery.Snapshot())),
	)
	return a, nil
}

// Close shuts the session down and closes the database pool.
func (a *App) Close() error {
	err := a.Session.Shutdown()
	if a.Pool != nil {
		a.Pool.Close()
	}
	return err
}
