package server

import (
	"errors"
	"time"

	"pulse/internal/models"
	"pulse/internal/observability"
	"pulse/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser         = "user"
	maxPostsPageLimit = 100
)

// statusFor maps an error onto an HTTP status by its AppError code.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotAuthenticated:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// respondWithError writes the standard error body for err.
func respondWithError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(models.Response(err))
}

// AuthRequired rejects requests without a logged-in user and stores the user
// in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := s.rt.CurrentUser()
		if err != nil {
			return respondWithError(c, err)
		}
		c.Locals(localUser, u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) models.User {
	u, _ := c.Locals(localUser).(models.User)
	return u
}

// StructuredLogger logs one line per request.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			"status", c.Response().StatusCode(),
			"method", c.Method(),
			"path", c.Path(),
			"latency", time.Since(start),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger.DebugContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
