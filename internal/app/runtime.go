// Package app wires storage, the stores and the feed paginator into one
// runtime shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse/internal/config"
	"pulse/internal/content"
	"pulse/internal/feed"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/observability"
	"pulse/internal/session"
	"pulse/internal/storage"
	"pulse/internal/transfer"
)

// Runtime owns the long-lived components of a Pulse process.
type Runtime struct {
	Config    *config.Config
	Backend   storage.Backend
	Session   *session.Store
	Content   *content.Store
	Paginator *feed.Paginator

	unsubscribe []func()
}

// Open connects the configured storage backend and builds a Runtime on it.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	opts := cfg.StorageOptions()
	opts.Logger = observability.Logger
	backend, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("storage connection failed: %w", err)
	}
	return New(ctx, cfg, backend), nil
}

// New builds a Runtime on an already-open backend. The Runtime takes
// ownership of backend and closes it in Close.
func New(ctx context.Context, cfg *config.Config, backend storage.Backend) *Runtime {
	r := &Runtime{
		Config:  cfg,
		Backend: backend,
		Session: session.NewStore(ctx, storage.NewRecord[models.User](backend, cfg.SessionKey)),
		Content: content.NewStore(ctx, storage.NewRecord[[]models.Post](backend, cfg.ContentKey)),
		Paginator: feed.NewPaginator(feed.PaginatorConfig{
			InitialSize: cfg.FeedPageSize,
			Increment:   cfg.FeedPageIncrement,
			Delay:       cfg.FeedLoadDelay,
		}),
	}

	r.unsubscribe = append(r.unsubscribe,
		r.Session.Subscribe(r.resetWhenAdvanced(r.Session.Logouts)),
		r.Content.Subscribe(r.resetWhenAdvanced(r.Content.Resets)),
	)
	return r
}

// resetWhenAdvanced returns a change callback that resets the paginator
// whenever counter moved since the previous delivery. The delivered Op is not
// consulted: a pending change is overwritten by newer ones.
func (r *Runtime) resetWhenAdvanced(counter func() uint64) func(notify.Change) {
	seen := counter()
	return func(notify.Change) {
		if n := counter(); n != seen {
			seen = n
			r.Paginator.Reset()
		}
	}
}

// CurrentUser returns the logged-in user or models.ErrNotAuthenticated.
func (r *Runtime) CurrentUser() (models.User, error) {
	u, ok := r.Session.User()
	if !ok {
		return models.User{}, models.ErrNotAuthenticated
	}
	return u, nil
}

// Feed returns the paginated feed for the paginator's search term and page
// size.
func (r *Runtime) Feed(sort feed.SortKey) feed.Page {
	return feed.QueryFeed(r.Content.Posts(), feed.Query{
		SearchTerm: r.Paginator.SearchTerm(),
		Sort:       sort,
		PageSize:   r.Paginator.PageSize(),
	})
}

// LoadMore asks the paginator for the next page of the current feed.
func (r *Runtime) LoadMore(sort feed.SortKey) bool {
	return r.Paginator.LoadMore(r.Feed(sort).HasMore)
}

// Export captures the current user and posts.
func (r *Runtime) Export() transfer.Document {
	doc := transfer.Document{ExportedAt: time.Now().UTC(), Posts: r.Content.Posts()}
	if u, ok := r.Session.User(); ok {
		doc.User = &u
	}
	return doc
}

// Import replaces every post with those in doc and, when withUser is set and
// doc carries a user, logs that user in.
func (r *Runtime) Import(ctx context.Context, doc transfer.Document, withUser bool) error {
	if err := r.Content.Replace(ctx, doc.Posts); err != nil {
		return err
	}
	if withUser && doc.User != nil {
		return r.Session.Login(ctx, *doc.User)
	}
	return nil
}

// Reload re-reads both snapshots from storage.
func (r *Runtime) Reload(ctx context.Context) {
	r.Session.Reload(ctx)
	r.Content.Reload(ctx)
}

// Close stops change delivery and the paginator, then closes storage.
func (r *Runtime) Close() error {
	for _, fn := range r.unsubscribe {
		fn()
	}
	r.Paginator.Close()
	r.Session.Close()
	r.Content.Close()
	if err := r.Backend.Close(); err != nil {
		return errors.Join(errors.New("closing storage"), err)
	}
	return nil
}
