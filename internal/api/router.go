package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/database"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

// maxFrameBody fits a 4096x4096 rgba32 frame
const maxFrameBody = 64 * 1024 * 1024

// Session is the part of the recognition session the router reads
type Session interface {
	Ready() bool
	Stats() *pipeline.Stats
}

type Dependencies struct {
	Service    handler.RecognitionService
	Session    Session
	Manager    handler.StreamManager
	Hub        *ws.Hub
	Aggregator *metrics.Aggregator // optional
	DB         database.Pinger     // optional, nil for the in-memory gallery
	DocsHost   string
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Glimpse API",
		BodyLimit:    maxFrameBody,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(middleware.AuditClient())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Frame-Width,X-Frame-Height,X-Frame-Format,X-Frame-Rotation",
	}))

	host := r.deps.DocsHost
	if host == "" {
		host = "localhost:3000"
	}
	sw := docs.NewSwagger(host)
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.Session, r.deps.DB)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	galleryHandler := handler.NewGalleryHandler(r.deps.Service, r.logger)
	v1.Post("/gallery", galleryHandler.Enroll)
	v1.Get("/gallery", galleryHandler.List)
	v1.Delete("/gallery/:id", galleryHandler.Delete)
	v1.Post("/recognize", galleryHandler.Recognize)

	streamHandler := handler.NewStreamHandler(r.deps.Manager, r.logger)
	v1.Get("/streams", streamHandler.List)
	streams := v1.Group("/streams/:stream", handler.ValidateStream)
	streams.Post("/frames", streamHandler.SubmitFrame)
	streams.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	streams.Get("", streamHandler.LastResult)
	streams.Delete("", streamHandler.Close)

	var reports handler.ReportSource
	if r.deps.Aggregator != nil {
		reports = r.deps.Aggregator
	}
	statsHandler := handler.NewStatsHandler(r.deps.Session.Stats(), reports)
	v1.Get("/stats", statsHandler.Get)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
