package feed

import (
	"sync"
	"time"
)

// Paginator defaults.
const (
	DefaultPageSize      = 5
	DefaultPageIncrement = 5
	DefaultLoadDelay     = 800 * time.Millisecond
)

// State is the paginator's loading state.
type State int

const (
	StateIdle State = iota
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// MarshalText renders the state name in JSON bodies.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PaginatorConfig tunes a Paginator. Zero fields take the defaults.
type PaginatorConfig struct {
	InitialSize int
	Increment   int
	Delay       time.Duration
}

func (c PaginatorConfig) withDefaults() PaginatorConfig {
	if c.InitialSize <= 0 {
		c.InitialSize = DefaultPageSize
	}
	if c.Increment <= 0 {
		c.Increment = DefaultPageIncrement
	}
	if c.Delay < 0 {
		c.Delay = 0
	} else if c.Delay == 0 {
		c.Delay = DefaultLoadDelay
	}
	return c
}

// Paginator grows the visible page size in steps. A load request moves it to
// loading right away; after the settle delay the page grows and it returns to
// idle. Requests made while loading are dropped.
type Paginator struct {
	mu       sync.Mutex
	cfg      PaginatorConfig
	pageSize int
	state    State
	term     string
	timer    *time.Timer
	// gen invalidates a settle timer that fired after Reset.
	gen    uint64
	closed bool
}

// NewPaginator returns an idle paginator at the initial page size.
func NewPaginator(cfg PaginatorConfig) *Paginator {
	cfg = cfg.withDefaults()
	return &Paginator{cfg: cfg, pageSize: cfg.InitialSize}
}

// PageSize returns the current page size.
func (p *Paginator) PageSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageSize
}

// State returns the current state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SearchTerm returns the term last passed to SetSearchTerm.
func (p *Paginator) SearchTerm() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term
}

// LoadMore requests the next page. It is accepted only while idle and when
// hasMore is true, and reports whether it was.
func (p *Paginator) LoadMore(hasMore bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.state != StateIdle || !hasMore {
		return false
	}
	p.state = StateLoading
	gen := p.gen
	p.timer = time.AfterFunc(p.cfg.Delay, func() { p.settle(gen) })
	return true
}

func (p *Paginator) settle(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.gen {
		return
	}
	p.pageSize += p.cfg.Increment
	p.state = StateIdle
	p.timer = nil
}

// SetSearchTerm records term and resets the paginator when it changed.
func (p *Paginator) SetSearchTerm(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if term == p.term {
		return
	}
	p.term = term
	p.resetLocked()
}

// Reset cancels a pending load and restores the initial page size.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Paginator) resetLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.gen++
	p.pageSize = p.cfg.InitialSize
	p.state = StateIdle
}

// Close cancels a pending load. Further LoadMore calls are refused.
func (p *Paginator) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.closed = true
	p.state = StateIdle
}
