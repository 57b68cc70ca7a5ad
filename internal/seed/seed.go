// Package seed builds demo users and posts for development and testing.
package seed

import (
	"context"
	"fmt"
	"slices"
	"time"

	"pulse/internal/content"
	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/session"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	MaxDays     int
	MaxComments int
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
	Now  time.Time
}

// DefaultOptions are used by the seed command.
var DefaultOptions = Options{NumUsers: 8, NumPosts: 40, MaxDays: 14, MaxComments: 4}

var hashtags = []string{
	"#golang", "#pulse", "#coffee", "#travel", "#music",
	"#weekend", "#photography", "#running", "#books", "#devlife",
}

// Dataset is a generated set of users and their posts, newest first.
type Dataset struct {
	Users []models.User
	Posts []models.Post
}

// Generator builds demo data from a seeded faker.
type Generator struct {
	faker *gofakeit.Faker
	opts  Options
}

// NewGenerator returns a Generator for opts, filling unset counts from
// DefaultOptions.
func NewGenerator(opts Options) *Generator {
	if opts.NumUsers <= 0 {
		opts.NumUsers = DefaultOptions.NumUsers
	}
	if opts.NumPosts < 0 {
		opts.NumPosts = 0
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultOptions.MaxDays
	}
	if opts.MaxComments < 0 {
		opts.MaxComments = 0
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return &Generator{faker: gofakeit.New(opts.Seed), opts: opts}
}

// User builds one demo user.
func (g *Generator) User() models.User {
	f := g.faker
	email := f.Email()
	return models.User{
		ID:       f.UUID(),
		Name:     f.Name(),
		Email:    email,
		Avatar:   session.AvatarURL(email),
		Bio:      f.Sentence(8),
		Location: f.City(),
		Website:  f.URL(),
		JoinedAt: g.pastTime(),
	}
}

// Generate builds users and posts. Likes and comments only come from the
// generated users, and post ids follow creation time.
func (g *Generator) Generate() Dataset {
	f := g.faker
	users := make([]models.User, 0, g.opts.NumUsers)
	for i := 0; i < g.opts.NumUsers; i++ {
		users = append(users, g.User())
	}

	posts := make([]models.Post, 0, g.opts.NumPosts)
	for i := 0; i < g.opts.NumPosts; i++ {
		author := users[f.Number(0, len(users)-1)]
		posts = append(posts, models.Post{
			AuthorID:     author.ID,
			AuthorName:   author.Name,
			AuthorAvatar: author.Avatar,
			Content:      g.postContent(),
			CreatedAt:    g.pastTime(),
			Likes:        g.likes(users),
		})
	}

	slices.SortStableFunc(posts, func(a, b models.Post) int { return a.CreatedAt.Compare(b.CreatedAt) })

	var clock time.Time
	ids := idgen.NewSequenceWithClock(func() time.Time { return clock })
	for i := range posts {
		clock = posts[i].CreatedAt
		posts[i].ID = ids.NewID()
		posts[i].Comments = g.comments(users, posts[i].CreatedAt, ids, &clock)
	}
	slices.Reverse(posts)

	return Dataset{Users: users, Posts: posts}
}

func (g *Generator) postContent() string {
	f := g.faker
	text := f.Sentence(f.Number(6, 16))
	for n := f.Number(0, 2); n > 0; n-- {
		text += " " + f.RandomString(hashtags)
	}
	return text
}

func (g *Generator) likes(users []models.User) []string {
	likes := []string{}
	for _, u := range users {
		if g.faker.Number(1, 100) <= 30 {
			likes = append(likes, u.ID)
		}
	}
	return likes
}

func (g *Generator) comments(users []models.User, after time.Time, ids *idgen.Sequence, clock *time.Time) []models.Comment {
	f := g.faker
	n := 0
	if g.opts.MaxComments > 0 {
		n = f.Number(0, g.opts.MaxComments)
	}
	comments := make([]models.Comment, 0, n)
	at := after
	for i := 0; i < n; i++ {
		at = at.Add(time.Duration(f.Number(1, 180)) * time.Minute)
		if at.After(g.opts.Now) {
			at = g.opts.Now.UTC().Truncate(time.Millisecond)
		}
		*clock = at
		author := users[f.Number(0, len(users)-1)]
		comments = append(comments, models.Comment{
			ID:           ids.NewID(),
			Text:         f.Sentence(f.Number(3, 10)),
			AuthorID:     author.ID,
			AuthorName:   author.Name,
			AuthorAvatar: author.Avatar,
			CreatedAt:    at,
		})
	}
	return comments
}

// pastTime returns a time within the last MaxDays days.
func (g *Generator) pastTime() time.Time {
	f := g.faker
	back := time.Duration(f.Number(0, g.opts.MaxDays-1))*24*time.Hour +
		time.Duration(f.Number(0, 23))*time.Hour +
		time.Duration(f.Number(0, 59))*time.Minute
	return g.opts.Now.Add(-back).UTC().Truncate(time.Millisecond)
}

// Run replaces the content store's posts with a generated dataset and returns
// it. When login is true the first generated user is logged in.
func Run(ctx context.Context, posts *content.Store, sessions *session.Store, opts Options, login bool) (Dataset, error) {
	data := NewGenerator(opts).Generate()
	if err := posts.Replace(ctx, data.Posts); err != nil {
		return Dataset{}, fmt.Errorf("seeding posts: %w", err)
	}
	if login && sessions != nil && len(data.Users) > 0 {
		if err := sessions.Login(ctx, data.Users[0]); err != nil {
			return Dataset{}, fmt.Errorf("seeding session: %w", err)
		}
	}
	return data, nil
}
