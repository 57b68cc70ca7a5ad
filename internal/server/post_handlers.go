package server

import (
	"pulse/internal/feed"
	"pulse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?q=&sort=&limit=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	sort, ok := feed.ParseSortKey(c.Query("sort"))
	if !ok {
		return respondWithError(c, models.NewValidationError("Unknown sort key "+c.Query("sort")))
	}
	limit := c.QueryInt("limit", s.rt.Config.FeedPageSize)
	if limit <= 0 {
		limit = s.rt.Config.FeedPageSize
	}
	if limit > maxPostsPageLimit {
		limit = maxPostsPageLimit
	}

	return c.JSON(feed.QueryFeed(s.rt.Content.Posts(), feed.Query{
		SearchTerm: c.Query("q"),
		Sort:       sort,
		PageSize:   limit,
	}))
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user := currentUser(c)

	var req struct {
		Content string `json:"content"`
		Image   string `json:"image,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.rt.Content.AddPost(c.UserContext(), models.PostDraft{
		Content:      req.Content,
		Image:        req.Image,
		AuthorID:     user.ID,
		AuthorName:   user.Name,
		AuthorAvatar: user.Avatar,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id. Only the author may delete.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	user := currentUser(c)
	id := c.Params("id")

	existing, ok := s.rt.Content.Post(id)
	if !ok {
		return respondWithError(c, models.NewNotFoundError("Post", id))
	}
	if existing.AuthorID != user.ID {
		return respondWithError(c, models.NewForbiddenError("Only the author can delete this post"))
	}

	removed, err := s.rt.Content.DeletePost(c.UserContext(), id)
	if err != nil {
		return respondWithError(c, err)
	}
	if removed == nil {
		return respondWithError(c, models.NewNotFoundError("Post", id))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like, toggling the current user's like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	user := currentUser(c)
	id := c.Params("id")

	post, err := s.rt.Content.LikePost(c.UserContext(), id, user.ID)
	if err != nil {
		return respondWithError(c, err)
	}
	if post == nil {
		return respondWithError(c, models.NewNotFoundError("Post", id))
	}
	return c.JSON(fiber.Map{
		"post":  post,
		"liked": post.LikedBy(user.ID),
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	user := currentUser(c)
	id := c.Params("id")

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.rt.Content.AddComment(c.UserContext(), id, models.CommentDraft{
		Text:         req.Text,
		AuthorID:     user.ID,
		AuthorName:   user.Name,
		AuthorAvatar: user.Avatar,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	if post == nil {
		return respondWithError(c, models.NewNotFoundError("Post", id))
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}
