package server

import (
	"pulse/internal/feed"
	"pulse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type feedResponse struct {
	feed.Page
	PageSize   int        `json:"pageSize"`
	State      feed.State `json:"state"`
	SearchTerm string     `json:"searchTerm"`
}

type loadMoreResponse struct {
	Accepted bool       `json:"accepted"`
	State    feed.State `json:"state"`
	PageSize int        `json:"pageSize"`
}

type notificationView struct {
	feed.Notification
	Ago string `json:"ago"`
}

func (s *Server) feedSort(c *fiber.Ctx) (feed.SortKey, error) {
	sort, ok := feed.ParseSortKey(c.Query("sort"))
	if !ok {
		return "", models.NewValidationError("Unknown sort key " + c.Query("sort"))
	}
	return sort, nil
}

// GetFeed handles GET /api/feed?q=&sort=. A changed q resets the page size.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	sort, err := s.feedSort(c)
	if err != nil {
		return respondWithError(c, err)
	}
	// The paginator outlives the request; Query aliases fasthttp's buffer.
	s.rt.Paginator.SetSearchTerm(utils.CopyString(c.Query("q")))

	return c.JSON(feedResponse{
		Page:       s.rt.Feed(sort),
		PageSize:   s.rt.Paginator.PageSize(),
		State:      s.rt.Paginator.State(),
		SearchTerm: s.rt.Paginator.SearchTerm(),
	})
}

// LoadMoreFeed handles POST /api/feed/more?sort=. The page grows after the
// settle delay; clients poll GET /api/feed.
func (s *Server) LoadMoreFeed(c *fiber.Ctx) error {
	sort, err := s.feedSort(c)
	if err != nil {
		return respondWithError(c, err)
	}

	accepted := s.rt.LoadMore(sort)
	status := fiber.StatusOK
	if accepted {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(loadMoreResponse{
		Accepted: accepted,
		State:    s.rt.Paginator.State(),
		PageSize: s.rt.Paginator.PageSize(),
	})
}

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	user := currentUser(c)
	now := s.now()

	notes := feed.DeriveNotifications(s.rt.Content.Posts(), user.ID, now)
	views := make([]notificationView, 0, len(notes))
	for _, n := range notes {
		views = append(views, notificationView{Notification: n, Ago: feed.RelativeTime(now, n.Time)})
	}
	return c.JSON(fiber.Map{
		"notifications": views,
		"unread":        feed.UnreadCount(notes),
	})
}

// GetTrending handles GET /api/trending
func (s *Server) GetTrending(c *fiber.Ctx) error {
	posts := s.rt.Content.Posts()
	return c.JSON(fiber.Map{
		"tags":        feed.DeriveTrendingTags(posts),
		"activeUsers": feed.DeriveActiveUsers(posts),
		"stats":       feed.DeriveCommunityStats(posts),
	})
}
