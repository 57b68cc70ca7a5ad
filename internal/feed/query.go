package feed

import (
	"slices"
	"strings"

	"pulse/internal/models"
)

// SortKey orders QueryFeed results.
type SortKey string

const (
	SortNewest        SortKey = "newest"
	SortOldest        SortKey = "oldest"
	SortMostLiked     SortKey = "mostLiked"
	SortMostCommented SortKey = "mostCommented"
)

// ParseSortKey maps presentation input to a SortKey. Matching ignores case
// and accepts snake and kebab spellings. Anything else reports false.
func ParseSortKey(s string) (SortKey, bool) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(strings.TrimSpace(s)))
	switch norm {
	case "", "newest":
		return SortNewest, true
	case "oldest":
		return SortOldest, true
	case "mostliked":
		return SortMostLiked, true
	case "mostcommented":
		return SortMostCommented, true
	}
	return SortKey(s), false
}

// Query selects a page of the feed.
type Query struct {
	SearchTerm string
	Sort       SortKey
	// PageSize limits Items. Zero or less returns every match.
	PageSize int
}

// Page is the visible part of a query result.
type Page struct {
	Items   []models.Post `json:"items"`
	Total   int           `json:"total"`
	HasMore bool          `json:"hasMore"`
}

// QueryFeed filters posts by a case-insensitive substring of content or author
// name, sorts the matches stably and keeps the first PageSize. An unknown sort
// key keeps store order.
func QueryFeed(posts []models.Post, q Query) Page {
	term := strings.ToLower(q.SearchTerm)
	matches := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Content), term) ||
			strings.Contains(strings.ToLower(p.AuthorName), term) {
			matches = append(matches, p)
		}
	}

	if cmp := comparator(q.Sort); cmp != nil {
		slices.SortStableFunc(matches, cmp)
	}

	page := Page{Total: len(matches), Items: matches}
	if q.PageSize > 0 && len(matches) > q.PageSize {
		page.Items = matches[:q.PageSize]
		page.HasMore = true
	}
	return page
}

func comparator(key SortKey) func(a, b models.Post) int {
	switch key {
	case SortNewest:
		return func(a, b models.Post) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortOldest:
		return func(a, b models.Post) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortMostLiked:
		return func(a, b models.Post) int { return len(b.Likes) - len(a.Likes) }
	case SortMostCommented:
		return func(a, b models.Post) int { return len(b.Comments) - len(a.Comments) }
	}
	return nil
}
