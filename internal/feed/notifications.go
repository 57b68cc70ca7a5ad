// Package feed derives read-only views from a snapshot of posts: activity
// notifications, trending tags, active users, counters and the filtered,
// sorted and paged feed. Nothing here reads or mutates a store.
package feed

import (
	"time"

	"pulse/internal/models"
)

// MaxNotifications caps DeriveNotifications.
const MaxNotifications = 10

const previewRunes = 30

// NotificationType distinguishes like and comment activity.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
)

// Notification reports activity by someone else on one of the user's posts.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	PostID      string           `json:"postId"`
	ActorID     string           `json:"actorId"`
	PostPreview string           `json:"postContent"`
	Time        time.Time        `json:"time"`
	Read        bool             `json:"read"`
}

// DeriveNotifications lists likes and comments left by others on posts
// authored by userID, walking posts in store order and, per post, likes before
// comments. Like activity carries no timestamp of its own, so it is stamped
// with now. The result holds at most MaxNotifications entries.
func DeriveNotifications(posts []models.Post, userID string, now time.Time) []Notification {
	out := make([]Notification, 0, MaxNotifications)
	if userID == "" {
		return out
	}
	for _, p := range posts {
		if p.AuthorID != userID {
			continue
		}
		preview := Preview(p.Content)
		for _, liker := range p.Likes {
			if liker == userID {
				continue
			}
			out = append(out, Notification{
				ID:          "like-" + p.ID + "-" + liker,
				Type:        NotificationLike,
				Message:     "liked your post",
				PostID:      p.ID,
				ActorID:     liker,
				PostPreview: preview,
				Time:        now,
			})
			if len(out) == MaxNotifications {
				return out
			}
		}
		for _, c := range p.Comments {
			if c.AuthorID == userID {
				continue
			}
			out = append(out, Notification{
				ID:          "comment-" + c.ID,
				Type:        NotificationComment,
				Message:     "commented on your post",
				PostID:      p.ID,
				ActorID:     c.AuthorID,
				PostPreview: preview,
				Time:        c.CreatedAt,
			})
			if len(out) == MaxNotifications {
				return out
			}
		}
	}
	return out
}

// UnreadCount returns the number of unread notifications.
func UnreadCount(notifications []Notification) int {
	n := 0
	for _, v := range notifications {
		if !v.Read {
			n++
		}
	}
	return n
}

// Preview returns the first 30 characters of content followed by an ellipsis.
func Preview(content string) string {
	r := []rune(content)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r) + "..."
}
