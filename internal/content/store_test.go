package content

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/observability"
	"pulse/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const postsKey = "pulse-posts"

type postsAdapterStub struct {
	loadFn  func(ctx context.Context) ([]models.Post, bool, error)
	saveFn  func(ctx context.Context, posts []models.Post) error
	clearFn func(ctx context.Context) error
}

func (s postsAdapterStub) Load(ctx context.Context) ([]models.Post, bool, error) {
	if s.loadFn == nil {
		return nil, false, nil
	}
	return s.loadFn(ctx)
}

func (s postsAdapterStub) Save(ctx context.Context, posts []models.Post) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, posts)
}

func (s postsAdapterStub) Clear(ctx context.Context) error {
	if s.clearFn == nil {
		return nil
	}
	return s.clearFn(ctx)
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, adapter storage.Adapter[[]models.Post]) *Store {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	s := NewStore(context.Background(), adapter,
		WithIDGenerator(idgen.NewSequenceWithClock(clock)),
		WithClock(clock))
	t.Cleanup(s.Close)
	return s
}

func draft(author, text string) models.PostDraft {
	return models.PostDraft{Content: text, AuthorID: author, AuthorName: "name-" + author, AuthorAvatar: "avatar-" + author}
}

func TestStore_AddPostPrepends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})

	first, err := s.AddPost(ctx, draft("u1", "first"))
	require.NoError(t, err)
	second, err := s.AddPost(ctx, draft("u1", "  second  "))
	require.NoError(t, err)

	posts := s.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
	assert.Equal(t, "second", posts[0].Content)
	assert.Equal(t, fixedNow, posts[0].CreatedAt)
	assert.Empty(t, posts[0].Likes)
	assert.NotNil(t, posts[0].Comments)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_AddPostValidation(t *testing.T) {
	ctx := context.Background()
	saves := 0
	s := newTestStore(t, postsAdapterStub{saveFn: func(context.Context, []models.Post) error {
		saves++
		return nil
	}})

	tests := []struct {
		name  string
		draft models.PostDraft
	}{
		{"empty content", draft("u1", "")},
		{"whitespace content", draft("u1", "   \n\t")},
		{"missing author", models.PostDraft{Content: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.AddPost(ctx, tt.draft)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, models.IsValidation(err))
		})
	}
	assert.Empty(t, s.Posts())
	assert.Zero(t, saves)
}

func TestStore_DeletePost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})

	a, _ := s.AddPost(ctx, draft("u1", "a"))
	b, _ := s.AddPost(ctx, draft("u1", "b"))

	removed, err := s.DeletePost(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, a.ID, removed.ID)

	before := s.Version()
	again, err := s.DeletePost(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, before, s.Version())

	posts := s.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, b.ID, posts[0].ID)
}

func TestStore_LikePostToggleParity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	p, _ := s.AddPost(ctx, draft("u1", "likeable"))

	for k := 1; k <= 5; k++ {
		updated, err := s.LikePost(ctx, p.ID, "u2")
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, k%2 == 1, updated.LikedBy("u2"), "after %d toggles", k)

		got, _ := s.Post(p.ID)
		assert.LessOrEqual(t, len(got.Likes), 1)
	}
}

func TestStore_LikePostEdgeCases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	p, _ := s.AddPost(ctx, draft("u1", "hello"))

	missing, err := s.LikePost(ctx, "nope", "u2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.LikePost(ctx, p.ID, "")
	assert.True(t, models.IsValidation(err))

	self, err := s.LikePost(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.True(t, self.LikedBy("u1"))
}

func TestStore_AddCommentAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	p, _ := s.AddPost(ctx, draft("u1", "discuss"))

	for i := 0; i < 3; i++ {
		_, err := s.AddComment(ctx, p.ID, models.CommentDraft{Text: fmt.Sprintf("c%d", i), AuthorID: "u2", AuthorName: "Bob"})
		require.NoError(t, err)
	}

	got, ok := s.Post(p.ID)
	require.True(t, ok)
	require.Len(t, got.Comments, 3)
	for i, c := range got.Comments {
		assert.Equal(t, fmt.Sprintf("c%d", i), c.Text)
		assert.Equal(t, "Bob", c.AuthorName)
	}
	assert.NotEqual(t, got.Comments[0].ID, got.Comments[1].ID)

	_, err := s.AddComment(ctx, p.ID, models.CommentDraft{Text: "  ", AuthorID: "u2"})
	assert.True(t, models.IsValidation(err))

	missing, err := s.AddComment(ctx, "nope", models.CommentDraft{Text: "hi", AuthorID: "u2"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_SnapshotsAreCopyOnWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	p, _ := s.AddPost(ctx, draft("u1", "stable"))

	before := s.Posts()
	_, err := s.LikePost(ctx, p.ID, "u2")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, p.ID, models.CommentDraft{Text: "hi", AuthorID: "u2"})
	require.NoError(t, err)

	assert.Empty(t, before[0].Likes)
	assert.Empty(t, before[0].Comments)

	after := s.Posts()
	assert.Len(t, after[0].Likes, 1)
	assert.Len(t, after[0].Comments, 1)
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	s := newTestStore(t, storage.NewRecord[[]models.Post](backend, postsKey))

	p, _ := s.AddPost(ctx, draft("u1", "persisted #go"))
	_, _ = s.LikePost(ctx, p.ID, "u2")
	_, _ = s.AddComment(ctx, p.ID, models.CommentDraft{Text: "nice", AuthorID: "u2"})

	restored := newTestStore(t, storage.NewRecord[[]models.Post](backend, postsKey))
	assert.Equal(t, s.Posts(), restored.Posts())
}

func TestStore_RestoreNormalizes(t *testing.T) {
	s := newTestStore(t, postsAdapterStub{loadFn: func(context.Context) ([]models.Post, bool, error) {
		return []models.Post{{ID: "1", AuthorID: "u1", Content: "x", Likes: []string{"u2", "u2", "u3"}}}, true, nil
	}})

	got, ok := s.Post("1")
	require.True(t, ok)
	assert.Equal(t, []string{"u2", "u3"}, got.Likes)
	assert.NotNil(t, got.Comments)
}

func TestStore_RestoredIDsAreNotReissued(t *testing.T) {
	ctx := context.Background()
	future := fmt.Sprint(fixedNow.UnixMilli() + 1000)
	s := newTestStore(t, postsAdapterStub{loadFn: func(context.Context) ([]models.Post, bool, error) {
		return []models.Post{{ID: future, AuthorID: "u1", Content: "from the future"}}, true, nil
	}})

	p, err := s.AddPost(ctx, draft("u1", "new"))
	require.NoError(t, err)
	assert.NotEqual(t, future, p.ID)
}

func TestStore_CorruptSnapshotFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, postsKey, []byte(`[{"id": 1,`)))

	s := newTestStore(t, storage.NewRecord[[]models.Post](backend, postsKey))
	assert.Empty(t, s.Posts())

	_, err := s.AddPost(ctx, draft("u1", "fresh start"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	fail := false
	s := newTestStore(t, postsAdapterStub{saveFn: func(context.Context, []models.Post) error {
		if fail {
			return boom
		}
		return nil
	}})
	p, _ := s.AddPost(ctx, draft("u1", "kept"))
	fail = true
	version := s.Version()

	ops := map[string]func() (*models.Post, error){
		"add":     func() (*models.Post, error) { return s.AddPost(ctx, draft("u1", "lost")) },
		"delete":  func() (*models.Post, error) { return s.DeletePost(ctx, p.ID) },
		"like":    func() (*models.Post, error) { return s.LikePost(ctx, p.ID, "u2") },
		"comment": func() (*models.Post, error) { return s.AddComment(ctx, p.ID, models.CommentDraft{Text: "hi", AuthorID: "u2"}) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			got, err := op()
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, models.IsStorage(err))
			assert.ErrorIs(t, err, boom)
		})
	}

	posts := s.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "kept", posts[0].Content)
	assert.Empty(t, posts[0].Likes)
	assert.Empty(t, posts[0].Comments)
	assert.Equal(t, version, s.Version())
}

func TestStore_Replace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	_, _ = s.AddPost(ctx, draft("u1", "old"))

	t.Run("rejects duplicate ids", func(t *testing.T) {
		err := s.Replace(ctx, []models.Post{
			{ID: "1", AuthorID: "u1", Content: "a"},
			{ID: "1", AuthorID: "u1", Content: "b"},
		})
		assert.True(t, models.IsValidation(err))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("replaces and normalizes", func(t *testing.T) {
		changes := make(chan notify.Change, 4)
		unsubscribe := s.Subscribe(func(c notify.Change) { changes <- c })
		defer unsubscribe()

		err := s.Replace(ctx, []models.Post{
			{ID: "10", AuthorID: "u1", Content: "a", Likes: []string{"u2", "u2"}},
			{ID: "11", AuthorID: "u2", Content: "b"},
		})
		require.NoError(t, err)
		posts := s.Posts()
		require.Len(t, posts, 2)
		assert.Equal(t, []string{"u2"}, posts[0].Likes)

		select {
		case c := <-changes:
			assert.Equal(t, OpReset, c.Op)
		case <-time.After(time.Second):
			t.Fatal("no reset change delivered")
		}
	})
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	s := newTestStore(t, storage.NewRecord[[]models.Post](backend, postsKey))
	_, _ = s.AddPost(ctx, draft("u1", "gone soon"))

	require.NoError(t, backend.Delete(ctx, postsKey))
	s.Reload(ctx)
	assert.Empty(t, s.Posts())
}

func TestStore_SubscribeAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})

	seen := make(chan int, 4)
	unsubscribe := s.Subscribe(func(notify.Change) { seen <- s.Len() })
	defer unsubscribe()

	_, err := s.AddPost(ctx, draft("u1", "hello"))
	require.NoError(t, err)

	select {
	case n := <-seen:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestStore_ResetsSurviveCoalescing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})

	release := make(chan struct{})
	delivered := make(chan notify.Change, 4)
	unsubscribe := s.Subscribe(func(c notify.Change) {
		<-release
		delivered <- c
	})
	defer unsubscribe()

	_, err := s.AddPost(ctx, draft("u1", "first"))
	require.NoError(t, err)
	require.NoError(t, s.Replace(ctx, []models.Post{{ID: "1", AuthorID: "u1", Content: "imported"}}))
	_, err = s.AddPost(ctx, draft("u1", "after import"))
	require.NoError(t, err)
	close(release)

	var last notify.Change
	for last.Version != s.Version() {
		select {
		case last = <-delivered:
		case <-time.After(time.Second):
			t.Fatal("latest change not delivered")
		}
	}
	assert.Equal(t, OpAddPost, last.Op)
	assert.Equal(t, uint64(1), s.Resets())

	s.Reload(ctx)
	assert.Equal(t, uint64(2), s.Resets())
}

func TestStore_SpansCarryNewIDs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("content-test")
	t.Cleanup(func() { observability.Tracer = prev })

	ctx := context.Background()
	s := newTestStore(t, postsAdapterStub{})
	post, err := s.AddPost(ctx, draft("u1", "traced"))
	require.NoError(t, err)
	updated, err := s.AddComment(ctx, post.ID, models.CommentDraft{Text: "hi", AuthorID: "u2"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "content.AddPost", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("post.id", post.ID))
	assert.Contains(t, spans[1].Attributes(), attribute.String("comment.id", updated.Comments[0].ID))
}
