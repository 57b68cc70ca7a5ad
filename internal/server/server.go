// Package server exposes the Pulse runtime over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pulse/internal/app"
	"pulse/internal/models"
	"pulse/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// initMetrics returns the process-wide request metrics. The collectors live in
// the default registry, so they are built once.
func initMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New("pulse-api")
	})
	return promMiddleware
}

// Server holds the runtime and the fiber app serving it.
type Server struct {
	rt             *app.Runtime
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	now            func() time.Time
}

// New builds a Server with middleware and routes installed.
func New(rt *app.Runtime) *Server {
	s := &Server{rt: rt, promMiddleware: initMetrics(), now: time.Now}
	s.app = fiber.New(fiber.Config{
		AppName:               "Pulse API",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware installs recovery, request ids, metrics and request logging.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.promMiddleware.Middleware)
	app.Use(StructuredLogger())
}

// SetupRoutes registers every endpoint.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	s.promMiddleware.RegisterAt(app, "/metrics")

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", s.Signup)
	auth.Post("/login", s.Login)
	auth.Post("/logout", s.Logout)

	api.Get("/posts", s.GetPosts)
	api.Get("/trending", s.GetTrending)

	feedGroup := api.Group("/feed")
	feedGroup.Get("/", s.GetFeed)
	feedGroup.Post("/more", s.LoadMoreFeed)

	protected := api.Group("", s.AuthRequired())

	me := protected.Group("/me")
	me.Get("/", s.GetMyProfile)
	me.Put("/", s.UpdateMyProfile)
	me.Get("/stats", s.GetMyStats)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Delete("/:id", s.DeletePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/comments", s.CreateComment)

	protected.Get("/notifications", s.GetNotifications)
}

// HealthCheck reports liveness and whether storage answers.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	storageStatus := "up"
	status := fiber.StatusOK
	if _, err := s.rt.Backend.Get(ctx, s.rt.Config.SessionKey); err != nil && !isNotFound(err) {
		storageStatus = "down"
		status = fiber.StatusServiceUnavailable
		observability.Logger.WarnContext(ctx, "storage health check failed", "error", err)
	}

	return c.Status(status).JSON(fiber.Map{
		"status":        "up",
		"storage":       storageStatus,
		"authenticated": s.rt.Session.IsAuthenticated(),
		"posts":         s.rt.Content.Len(),
		"time":          s.now().UTC(),
	})
}

// Run starts listening on the configured address and blocks until a
// termination signal arrives.
func (s *Server) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return s.RunWithQuit(quit)
}

// RunWithQuit behaves like Run but shuts down when quit receives.
func (s *Server) RunWithQuit(quit <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server starting", "addr", s.rt.Config.HTTPAddr)
		errCh <- s.app.Listen(s.rt.Config.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	observability.Logger.Info("shutting down server")
	if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondWithError(c, err)
}
