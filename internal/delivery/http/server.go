package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/geobank/registry/internal/config"
	"github.com/geobank/registry/internal/delivery/http/handler"
	"github.com/geobank/registry/internal/delivery/http/middleware"
)

// Server is the Fiber-based HTTP adapter exposing the registration and
// proximity-query engines: a thin wrapper holding the fiber.App and the
// handlers it routes to.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	registrationHandler *handler.RegistrationHandler
	proximityHandler    *handler.ProximityHandler
}

// NewServer builds the Fiber app, installs middleware, and wires routes.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	registrationHandler *handler.RegistrationHandler,
	proximityHandler *handler.ProximityHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "geobank-registry",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:                 app,
		config:              cfg,
		logger:              logger,
		registrationHandler: registrationHandler,
		proximityHandler:    proximityHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Correlation())
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Primary, versioned surface.
	branches := api.Group("/branches")
	branches.Post("/", s.registrationHandler.Register)
	branches.Get("/nearest", s.proximityHandler.Nearest)

	// Legacy distance-query alias: same engine, original
	// posX/posY/limite/agencias wire shape.
	s.app.Get("/desafio/nearest", s.proximityHandler.NearestLegacy)
}

// Start runs the HTTP server, blocking until it stops or fails.
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server within ctx's
// deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("unhandled HTTP error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": err.Error(),
			},
		})
	}
}
