package feed

import (
	"regexp"
	"slices"

	"pulse/internal/models"
)

const (
	// MaxTrendingTags caps DeriveTrendingTags.
	MaxTrendingTags = 5
	// MaxActiveUsers caps DeriveActiveUsers.
	MaxActiveUsers = 3
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// TagCount is a hashtag and the number of times it occurs.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ActiveUser summarizes one author's activity.
type ActiveUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Posts  int    `json:"posts"`
	Likes  int    `json:"likes"`
}

// Score is the ranking key of DeriveActiveUsers.
func (u ActiveUser) Score() int { return u.Posts + u.Likes }

// CommunityStats are totals across all posts.
type CommunityStats struct {
	Posts    int `json:"posts"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// ProfileStats are the counters shown on a user's profile.
type ProfileStats struct {
	Posts            int `json:"posts"`
	LikesReceived    int `json:"likesReceived"`
	CommentsReceived int `json:"commentsReceived"`
}

// Hashtags returns every #tag token in content, in order.
func Hashtags(content string) []string {
	return hashtagPattern.FindAllString(content, -1)
}

// DeriveTrendingTags counts hashtag occurrences across all posts, case
// sensitively, and returns the most frequent. Equal counts keep the order in
// which tags were first seen.
func DeriveTrendingTags(posts []models.Post) []TagCount {
	var tags []TagCount
	index := make(map[string]int)
	for _, p := range posts {
		for _, tag := range Hashtags(p.Content) {
			if i, ok := index[tag]; ok {
				tags[i].Count++
				continue
			}
			index[tag] = len(tags)
			tags = append(tags, TagCount{Tag: tag, Count: 1})
		}
	}
	slices.SortStableFunc(tags, func(a, b TagCount) int { return b.Count - a.Count })
	if len(tags) > MaxTrendingTags {
		tags = tags[:MaxTrendingTags]
	}
	if tags == nil {
		return []TagCount{}
	}
	return tags
}

// DeriveActiveUsers groups posts by author and ranks authors by posts plus
// likes received. Name and avatar come from the first post seen for the
// author. Equal scores keep first-seen order.
func DeriveActiveUsers(posts []models.Post) []ActiveUser {
	var users []ActiveUser
	index := make(map[string]int)
	for _, p := range posts {
		i, ok := index[p.AuthorID]
		if !ok {
			i = len(users)
			index[p.AuthorID] = i
			users = append(users, ActiveUser{ID: p.AuthorID, Name: p.AuthorName, Avatar: p.AuthorAvatar})
		}
		users[i].Posts++
		users[i].Likes += len(p.Likes)
	}
	slices.SortStableFunc(users, func(a, b ActiveUser) int { return b.Score() - a.Score() })
	if len(users) > MaxActiveUsers {
		users = users[:MaxActiveUsers]
	}
	if users == nil {
		return []ActiveUser{}
	}
	return users
}

// DeriveCommunityStats totals posts, likes and comments.
func DeriveCommunityStats(posts []models.Post) CommunityStats {
	s := CommunityStats{Posts: len(posts)}
	for _, p := range posts {
		s.Likes += len(p.Likes)
		s.Comments += len(p.Comments)
	}
	return s
}

// PostsByAuthor returns the posts written by userID, in store order.
func PostsByAuthor(posts []models.Post, userID string) []models.Post {
	out := make([]models.Post, 0)
	for _, p := range posts {
		if p.AuthorID == userID {
			out = append(out, p)
		}
	}
	return out
}

// DeriveProfileStats counts userID's posts and the likes and comments they
// received.
func DeriveProfileStats(posts []models.Post, userID string) ProfileStats {
	var s ProfileStats
	for _, p := range posts {
		if p.AuthorID != userID {
			continue
		}
		s.Posts++
		s.LikesReceived += len(p.Likes)
		s.CommentsReceived += len(p.Comments)
	}
	return s
}
