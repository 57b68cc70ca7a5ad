// Package content owns the post collection: creation, deletion, like toggling
// and commenting, with every change persisted before it becomes visible.
package content

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/observability"
	"pulse/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

const storeName = "content"

// Change operations published by the store.
const (
	OpAddPost    = "add_post"
	OpDeletePost = "delete_post"
	OpLikePost   = "like_post"
	OpAddComment = "add_comment"
	OpReset      = "reset"
	OpReload     = "reload"
)

// observer is implemented by generators that must skip ids already in use.
type observer interface {
	Observe(id string)
}

// Store holds posts newest-first. The slice is never modified in place: each
// mutation builds a new one, so slices handed out by Posts stay valid.
type Store struct {
	mu      sync.RWMutex
	adapter storage.Adapter[[]models.Post]
	posts   []models.Post
	version uint64
	resets  uint64

	ids idgen.Generator
	now func() time.Time

	changes *notify.Broadcaster
	log     *observability.StoreLogger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator used for post and comment ids.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock sets the clock used for createdAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore restores posts from adapter. A missing or unreadable snapshot
// yields an empty collection.
func NewStore(ctx context.Context, adapter storage.Adapter[[]models.Post], opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		ids:     idgen.NewSequence(),
		now:     time.Now,
		changes: notify.NewBroadcaster(storeName),
		log:     observability.NewStoreLogger(storeName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.posts = s.restore(ctx)
	observability.PostsStored.Set(float64(len(s.posts)))
	return s
}

func (s *Store) restore(ctx context.Context) []models.Post {
	posts, ok, err := s.adapter.Load(ctx)
	if err != nil {
		s.log.LogFallback(ctx, err)
		return []models.Post{}
	}
	if !ok {
		return []models.Post{}
	}
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Normalize())
		s.observe(p)
	}
	s.log.LogRestore(ctx, map[string]interface{}{"posts": len(out)})
	return out
}

func (s *Store) observe(p models.Post) {
	o, ok := s.ids.(observer)
	if !ok {
		return
	}
	o.Observe(p.ID)
	for _, c := range p.Comments {
		o.Observe(c.ID)
	}
}

// Posts returns the current collection, newest first. Callers must not modify
// the returned posts in place.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.posts)
}

// Post returns the post with id.
func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.posts[i], true
	}
	return models.Post{}, false
}

// Len returns the number of posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Version increases with every committed change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Resets counts whole-collection swaps (Replace and Reload). Subscribers
// compare it across deliveries because coalesced changes only carry the
// latest Op.
func (s *Store) Resets() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resets
}

// AddPost creates a post from draft and places it at the front.
func (s *Store) AddPost(ctx context.Context, draft models.PostDraft) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "content.AddPost", attribute.String("author.id", draft.AuthorID))
	defer span.End()

	text := strings.TrimSpace(draft.Content)
	if text == "" {
		return nil, s.reject(OpAddPost, "post content cannot be empty")
	}
	if strings.TrimSpace(draft.AuthorID) == "" {
		return nil, s.reject(OpAddPost, "post author is required")
	}

	post := models.Post{
		ID:           s.ids.NewID(),
		AuthorID:     draft.AuthorID,
		AuthorName:   draft.AuthorName,
		AuthorAvatar: draft.AuthorAvatar,
		Content:      text,
		Image:        strings.TrimSpace(draft.Image),
		CreatedAt:    s.timestamp(),
		Likes:        []string{},
		Comments:     []models.Comment{},
	}

	s.mu.Lock()
	next := make([]models.Post, 0, len(s.posts)+1)
	next = append(next, post)
	next = append(next, s.posts...)
	c, err := s.swap(ctx, next, OpAddPost)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(ctx, span, OpAddPost, err)
	}
	span.AddAttributes(attribute.String("post.id", post.ID))

	s.applied(ctx, c, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return &post, nil
}

// DeletePost removes the post with id and returns it. An unknown id is a
// no-op returning nil.
func (s *Store) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "content.DeletePost", attribute.String("post.id", id))
	defer span.End()

	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpDeletePost, observability.ResultNoop)
		return nil, nil
	}
	removed := s.posts[i]
	next := make([]models.Post, 0, len(s.posts)-1)
	next = append(next, s.posts[:i]...)
	next = append(next, s.posts[i+1:]...)
	c, err := s.swap(ctx, next, OpDeletePost)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(ctx, span, OpDeletePost, err)
	}

	s.applied(ctx, c, map[string]interface{}{"post_id": id})
	return &removed, nil
}

// LikePost toggles userID in the like set of the post. An unknown post is a
// no-op returning nil.
func (s *Store) LikePost(ctx context.Context, postID, userID string) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "content.LikePost",
		attribute.String("post.id", postID), attribute.String("user.id", userID))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, s.reject(OpLikePost, "user id is required")
	}

	s.mu.Lock()
	i := s.index(postID)
	if i < 0 {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpLikePost, observability.ResultNoop)
		return nil, nil
	}
	updated := s.posts[i]
	updated.Likes = toggle(updated.Likes, userID)
	next := slices.Clone(s.posts)
	next[i] = updated
	c, err := s.swap(ctx, next, OpLikePost)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(ctx, span, OpLikePost, err)
	}

	s.applied(ctx, c, map[string]interface{}{"post_id": postID, "user_id": userID, "liked": updated.LikedBy(userID)})
	return &updated, nil
}

// AddComment appends a comment built from draft to the post. An unknown post
// is a no-op returning nil.
func (s *Store) AddComment(ctx context.Context, postID string, draft models.CommentDraft) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "content.AddComment", attribute.String("post.id", postID))
	defer span.End()

	text := strings.TrimSpace(draft.Text)
	if text == "" {
		return nil, s.reject(OpAddComment, "comment text cannot be empty")
	}
	if strings.TrimSpace(draft.AuthorID) == "" {
		return nil, s.reject(OpAddComment, "comment author is required")
	}

	s.mu.Lock()
	i := s.index(postID)
	if i < 0 {
		s.mu.Unlock()
		observability.RecordMutation(storeName, OpAddComment, observability.ResultNoop)
		return nil, nil
	}
	comment := models.Comment{
		ID:           s.ids.NewID(),
		Text:         text,
		AuthorID:     draft.AuthorID,
		AuthorName:   draft.AuthorName,
		AuthorAvatar: draft.AuthorAvatar,
		CreatedAt:    s.timestamp(),
	}
	updated := s.posts[i]
	comments := make([]models.Comment, 0, len(updated.Comments)+1)
	comments = append(comments, updated.Comments...)
	updated.Comments = append(comments, comment)
	next := slices.Clone(s.posts)
	next[i] = updated
	c, err := s.swap(ctx, next, OpAddComment)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(ctx, span, OpAddComment, err)
	}
	span.AddAttributes(attribute.String("comment.id", comment.ID))

	s.applied(ctx, c, map[string]interface{}{"post_id": postID, "comment_id": comment.ID})
	return &updated, nil
}

// Replace swaps the whole collection, as done by an import. Posts are
// normalized; ids must be present and unique.
func (s *Store) Replace(ctx context.Context, posts []models.Post) error {
	span, ctx := observability.NewSpan(ctx, "content.Replace", attribute.Int("posts", len(posts)))
	defer span.End()

	next := make([]models.Post, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if strings.TrimSpace(p.ID) == "" {
			return s.reject(OpReset, "post id is required")
		}
		if _, dup := seen[p.ID]; dup {
			return s.reject(OpReset, "duplicate post id "+p.ID)
		}
		if strings.TrimSpace(p.Content) == "" {
			return s.reject(OpReset, "post "+p.ID+" has no content")
		}
		seen[p.ID] = struct{}{}
		next = append(next, p.Normalize())
	}

	s.mu.Lock()
	c, err := s.swap(ctx, next, OpReset)
	if err == nil {
		s.resets++
	}
	s.mu.Unlock()
	if err != nil {
		return s.fail(ctx, span, OpReset, err)
	}
	for _, p := range next {
		s.observe(p)
	}

	s.applied(ctx, c, map[string]interface{}{"posts": len(next)})
	return nil
}

// Reload re-reads the snapshot, e.g. after storage was wiped externally.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	s.posts = s.restore(ctx)
	s.version++
	s.resets++
	c := notify.Change{Source: storeName, Op: OpReload, Version: s.version}
	observability.PostsStored.Set(float64(len(s.posts)))
	s.mu.Unlock()
	s.changes.Publish(c)
}

// Subscribe registers fn for change notifications. fn runs after the change
// is committed, on a goroutine owned by the store.
func (s *Store) Subscribe(fn func(notify.Change)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Close stops change delivery.
func (s *Store) Close() {
	s.changes.Close()
}

// swap persists next and makes it current. Must be called with mu held.
func (s *Store) swap(ctx context.Context, next []models.Post, op string) (notify.Change, error) {
	if err := s.adapter.Save(ctx, next); err != nil {
		return notify.Change{}, err
	}
	s.posts = next
	s.version++
	observability.PostsStored.Set(float64(len(next)))
	return notify.Change{Source: storeName, Op: op, Version: s.version}, nil
}

// timestamp returns the current time in UTC at millisecond precision, the
// resolution of the persisted layout.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// index must be called with mu held.
func (s *Store) index(id string) int {
	return slices.IndexFunc(s.posts, func(p models.Post) bool { return p.ID == id })
}

func (s *Store) applied(ctx context.Context, c notify.Change, fields map[string]interface{}) {
	observability.RecordMutation(storeName, c.Op, observability.ResultApplied)
	s.log.LogMutation(ctx, c.Op, fields)
	s.changes.Publish(c)
}

func (s *Store) reject(op, message string) error {
	observability.RecordMutation(storeName, op, observability.ResultRejected)
	return models.NewValidationError(message)
}

func (s *Store) fail(ctx context.Context, span *observability.Span, op string, err error) error {
	observability.RecordMutation(storeName, op, observability.ResultFailed)
	s.log.LogError(ctx, err, op)
	span.SetError(err)
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(op, err)
}

// toggle returns a new like set with userID removed if present, appended
// otherwise.
func toggle(likes []string, userID string) []string {
	out := make([]string, 0, len(likes)+1)
	found := false
	for _, id := range likes {
		if id == userID {
			found = true
			continue
		}
		out = append(out, id)
	}
	if !found {
		out = append(out, userID)
	}
	return out
}
