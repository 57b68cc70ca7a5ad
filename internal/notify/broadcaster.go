// Package notify delivers store change events to subscribers.
package notify

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"pulse/internal/observability"
)

// Change describes a committed store mutation. Subscribers should treat it as
// a signal to re-read the store, not as a diff.
type Change struct {
	Source  string
	Op      string
	Version uint64
}

// Broadcaster fans changes out to subscribers. Every subscriber runs on its own
// goroutine behind a one-slot mailbox, so callbacks never execute inside the
// publishing mutation. A change published while one is still pending replaces
// it: the subscriber sees the latest change once.
type Broadcaster struct {
	name   string
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	mailbox chan Change
	fn      func(Change)
}

// NewBroadcaster creates a Broadcaster; name labels its metrics.
func NewBroadcaster(name string) *Broadcaster {
	return &Broadcaster{
		name: name,
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe registers fn and returns a function that unregisters it.
func (b *Broadcaster) Subscribe(fn func(Change)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	s := &subscriber{mailbox: make(chan Change, 1), fn: fn}
	b.subs[s] = struct{}{}
	b.wg.Add(1)
	go b.run(s)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s) })
	}
}

func (b *Broadcaster) run(s *subscriber) {
	defer b.wg.Done()
	for c := range s.mailbox {
		func() {
			defer func() {
				if r := recover(); r != nil {
					observability.Logger.Error("panic in change subscriber",
						slog.String("source", b.name),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
				}
			}()
			s.fn(c)
		}()
	}
}

func (b *Broadcaster) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.mailbox)
}

// Publish hands c to every subscriber without blocking.
func (b *Broadcaster) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case <-s.mailbox:
			observability.ChangeNotificationsCoalesced.WithLabelValues(b.name).Inc()
		default:
		}
		s.mailbox <- c
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unregisters every subscriber and waits for their pending callbacks.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		close(s.mailbox)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
