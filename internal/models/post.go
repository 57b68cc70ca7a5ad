package models

import "time"

// Post is a user-authored content unit. Author fields are a snapshot of the
// author's identity at posting time and are never refreshed.
type Post struct {
	ID           string    `json:"id" yaml:"id"`
	AuthorID     string    `json:"authorId" yaml:"authorId"`
	AuthorName   string    `json:"authorName" yaml:"authorName"`
	AuthorAvatar string    `json:"authorAvatar" yaml:"authorAvatar"`
	Content      string    `json:"content" yaml:"content"`
	Image        string    `json:"image,omitempty" yaml:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	Likes        []string  `json:"likes" yaml:"likes"`
	Comments     []Comment `json:"comments" yaml:"comments"`
}

// Comment is an immutable reply attached to a Post.
type Comment struct {
	ID           string    `json:"id" yaml:"id"`
	Text         string    `json:"text" yaml:"text"`
	AuthorID     string    `json:"authorId" yaml:"authorId"`
	AuthorName   string    `json:"authorName" yaml:"authorName"`
	AuthorAvatar string    `json:"authorAvatar" yaml:"authorAvatar"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
}

// PostDraft is the caller-supplied part of a new Post.
type PostDraft struct {
	Content      string `json:"content"`
	Image        string `json:"image,omitempty"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
	AuthorAvatar string `json:"authorAvatar"`
}

// CommentDraft is the caller-supplied part of a new Comment.
type CommentDraft struct {
	Text         string `json:"text"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
	AuthorAvatar string `json:"authorAvatar"`
}

// LikedBy reports whether userID is in the post's like set.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Normalize returns p with non-nil collections and duplicate likes collapsed,
// keeping the first occurrence of each user id.
func (p Post) Normalize() Post {
	likes := make([]string, 0, len(p.Likes))
	seen := make(map[string]struct{}, len(p.Likes))
	for _, id := range p.Likes {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		likes = append(likes, id)
	}
	p.Likes = likes
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return p
}
