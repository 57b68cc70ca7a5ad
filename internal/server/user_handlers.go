package server

import (
	"pulse/internal/feed"
	"pulse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// UpdateMyProfile handles PUT /api/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var update models.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	if update.Empty() {
		return respondWithError(c, models.NewValidationError("No profile fields to update"))
	}

	user, err := s.rt.Session.UpdateProfile(c.UserContext(), update)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(user)
}

// GetMyStats handles GET /api/me/stats
func (s *Server) GetMyStats(c *fiber.Ctx) error {
	user := currentUser(c)
	posts := s.rt.Content.Posts()
	return c.JSON(fiber.Map{
		"stats": feed.DeriveProfileStats(posts, user.ID),
		"posts": feed.PostsByAuthor(posts, user.ID),
	})
}
