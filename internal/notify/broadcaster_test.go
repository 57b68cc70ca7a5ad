package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversAfterPublish(t *testing.T) {
	b := NewBroadcaster("test")
	defer b.Close()

	got := make(chan Change, 4)
	b.Subscribe(func(c Change) { got <- c })

	b.Publish(Change{Source: "content", Op: "add_post", Version: 1})

	select {
	case c := <-got:
		assert.Equal(t, "add_post", c.Op)
		assert.Equal(t, uint64(1), c.Version)
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}
}

func TestBroadcaster_CoalescesToLatest(t *testing.T) {
	b := NewBroadcaster("test")
	defer b.Close()

	release := make(chan struct{})
	got := make(chan Change, 8)
	b.Subscribe(func(c Change) {
		<-release
		got <- c
	})

	// first change occupies the callback, the rest fight over the mailbox
	b.Publish(Change{Version: 1})
	time.Sleep(20 * time.Millisecond)
	for v := uint64(2); v <= 5; v++ {
		b.Publish(Change{Version: v})
	}
	close(release)

	require.Eventually(t, func() bool { return len(got) == 2 }, time.Second, 5*time.Millisecond)
	first, second := <-got, <-got
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, uint64(5), second.Version)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster("test")
	defer b.Close()

	var mu sync.Mutex
	calls := 0
	unsubscribe := b.Subscribe(func(Change) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.Equal(t, 1, b.Len())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.Len())

	b.Publish(Change{Version: 1})
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()
}

func TestBroadcaster_SubscriberMayPublishWithoutDeadlock(t *testing.T) {
	b := NewBroadcaster("test")
	defer b.Close()

	got := make(chan Change, 4)
	b.Subscribe(func(c Change) {
		if c.Version == 1 {
			b.Publish(Change{Version: 2})
		}
		got <- c
	})

	b.Publish(Change{Version: 1})

	require.Eventually(t, func() bool { return len(got) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_PanickingSubscriberKeepsRunning(t *testing.T) {
	b := NewBroadcaster("test")
	defer b.Close()

	got := make(chan Change, 4)
	b.Subscribe(func(c Change) {
		if c.Version == 1 {
			panic("boom")
		}
		got <- c
	})

	b.Publish(Change{Version: 1})
	time.Sleep(20 * time.Millisecond)
	b.Publish(Change{Version: 2})

	select {
	case c := <-got:
		assert.Equal(t, uint64(2), c.Version)
	case <-time.After(time.Second):
		t.Fatal("subscriber stopped after panic")
	}
}

func TestBroadcaster_CloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster("test")
	b.Subscribe(func(Change) {})
	b.Close()
	b.Close()

	unsubscribe := b.Subscribe(func(Change) {})
	unsubscribe()
	assert.Equal(t, 0, b.Len())
}
