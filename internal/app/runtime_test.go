package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pulse/internal/config"
	"pulse/internal/feed"
	"pulse/internal/models"
	"pulse/internal/notify"
	"pulse/internal/storage"
	"pulse/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		StorageDriver:     storage.DriverMemory,
		SessionKey:        "pulse-user",
		ContentKey:        "pulse-posts",
		FeedPageSize:      2,
		FeedPageIncrement: 2,
		FeedLoadDelay:     10 * time.Millisecond,
	}
}

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	r, err := Open(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func addPosts(t *testing.T, r *Runtime, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := r.Content.AddPost(context.Background(), models.PostDraft{Content: "post", AuthorID: "u1"})
		require.NoError(t, err)
	}
}

func TestRuntime_FeedPaging(t *testing.T) {
	r := newRuntime(t)
	addPosts(t, r, 5)

	page := r.Feed(feed.SortNewest)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	require.True(t, r.LoadMore(feed.SortNewest))
	assert.Eventually(t, func() bool { return len(r.Feed(feed.SortNewest).Items) == 4 }, time.Second, 5*time.Millisecond)
}

func TestRuntime_LogoutResetsPaginator(t *testing.T) {
	ctx := context.Background()
	r := newRuntime(t)
	addPosts(t, r, 5)
	require.NoError(t, r.Session.Login(ctx, models.User{ID: "u1", Name: "Ada"}))

	require.True(t, r.LoadMore(feed.SortNewest))
	assert.Eventually(t, func() bool { return r.Paginator.PageSize() == 4 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Session.Logout(ctx))
	assert.Eventually(t, func() bool { return r.Paginator.PageSize() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRuntime_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newRuntime(t)
	addPosts(t, src, 3)
	require.NoError(t, src.Session.Login(ctx, models.User{ID: "u1", Name: "Ada"}))

	var buf bytes.Buffer
	require.NoError(t, transfer.Encode(&buf, src.Export(), transfer.FormatYAML))
	doc, err := transfer.Decode(&buf, transfer.FormatYAML)
	require.NoError(t, err)

	dst := newRuntime(t)
	require.NoError(t, dst.Import(ctx, doc, true))
	assert.Equal(t, src.Content.Posts(), dst.Content.Posts())
	u, err := dst.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestRuntime_CurrentUser(t *testing.T) {
	r := newRuntime(t)
	_, err := r.CurrentUser()
	assert.True(t, models.IsNotAuthenticated(err))
}

func TestRuntime_Reload(t *testing.T) {
	ctx := context.Background()
	r := newRuntime(t)
	addPosts(t, r, 1)
	require.NoError(t, r.Session.Login(ctx, models.User{ID: "u1"}))

	require.NoError(t, r.Backend.Delete(ctx, "pulse-user"))
	require.NoError(t, r.Backend.Delete(ctx, "pulse-posts"))
	r.Reload(ctx)

	assert.False(t, r.Session.IsAuthenticated())
	assert.Empty(t, r.Content.Posts())
}

func TestRuntime_ResetWhenAdvanced(t *testing.T) {
	ctx := context.Background()
	r := newRuntime(t)
	for _, fn := range r.unsubscribe {
		fn()
	}
	r.unsubscribe = nil
	addPosts(t, r, 5)

	tests := []struct {
		name    string
		counter func() uint64
		advance func(t *testing.T)
	}{
		{
			name:    "import then add post",
			counter: r.Content.Resets,
			advance: func(t *testing.T) {
				require.NoError(t, r.Content.Replace(ctx, r.Content.Posts()))
				_, err := r.Content.AddPost(ctx, models.PostDraft{Content: "late", AuthorID: "u1"})
				require.NoError(t, err)
			},
		},
		{
			name:    "logout then login",
			counter: r.Session.Logouts,
			advance: func(t *testing.T) {
				require.NoError(t, r.Session.Login(ctx, models.User{ID: "u1"}))
				require.NoError(t, r.Session.Logout(ctx))
				require.NoError(t, r.Session.Login(ctx, models.User{ID: "u2"}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onChange := r.resetWhenAdvanced(tt.counter)

			onChange(notify.Change{})
			require.True(t, r.LoadMore(feed.SortNewest))
			require.Eventually(t, func() bool { return r.Paginator.PageSize() == 4 }, time.Second, 5*time.Millisecond)

			onChange(notify.Change{})
			assert.Equal(t, 4, r.Paginator.PageSize(), "nothing advanced")

			tt.advance(t)
			onChange(notify.Change{Op: "latest only"})
			assert.Equal(t, 2, r.Paginator.PageSize())
		})
	}
}
