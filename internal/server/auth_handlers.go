package server

import (
	"pulse/internal/models"
	"pulse/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	return s.authenticate(c, true)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	return s.authenticate(c, false)
}

func (s *Server) authenticate(c *fiber.Ctx, signup bool) error {
	var creds session.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	creds.Signup = signup

	user, err := session.NewUser(creds)
	if err != nil {
		return respondWithError(c, err)
	}
	if err := s.rt.Session.Login(c.UserContext(), user); err != nil {
		return respondWithError(c, err)
	}

	status := fiber.StatusOK
	if signup {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(user)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.rt.Session.Logout(c.UserContext()); err != nil {
		return respondWithError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
