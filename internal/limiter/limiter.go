// Package limiter provides a non-blocking fixed-window rate limiter keyed
// by client identity. Over-limit requests are rejected immediately, never
// queued: the caller turns a rejection into HTTP 429.
package limiter

import (
	"sync"
	"time"
)

// defaultMaxKeys bounds the number of tracked clients. When the map is
// saturated with active clients, new clients are shed instead of growing
// the map without bound.
const defaultMaxKeys = 10000

// Rule caps how many requests one client may make per window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// window tracks one rule's usage inside the current fixed window.
type window struct {
	start time.Time
	used  int
}

type client struct {
	mu       sync.Mutex
	windows  []window
	lastSeen time.Time
}

// Limiter applies a set of fixed-window rules per client key. A request is
// admitted only when every rule has room, and admission consumes one slot
// from each rule. Rejected requests consume nothing.
type Limiter struct {
	rules   []Rule
	maxKeys int

	mu      sync.RWMutex
	clients map[string]*client
}

func New(rules ...Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		maxKeys: defaultMaxKeys,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may perform a request right now, recording the
// request if so. It never blocks.
func (l *Limiter) Allow(key string) bool {
	if len(l.rules) == 0 {
		return true
	}

	c := l.client(key)
	if c == nil {
		return false
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeen = now
	for i := range l.rules {
		w := &c.windows[i]
		if now.Sub(w.start) >= l.rules[i].Window {
			w.start = now
			w.used = 0
		}
		if w.used >= l.rules[i].Limit {
			return false
		}
	}
	for i := range c.windows {
		c.windows[i].used++
	}
	return true
}

// client returns the state for key, creating it on first sight. Existing
// keys only take the read lock, so steady-state traffic does not serialize
// on the map.
func (l *Limiter) client(key string) *client {
	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[key]; ok {
		return c
	}
	if len(l.clients) >= l.maxKeys {
		l.reap()
		if len(l.clients) >= l.maxKeys {
			return nil
		}
	}
	c = &client{windows: make([]window, len(l.rules))}
	l.clients[key] = c
	return c
}

// reap drops clients idle for more than twice the longest window. Their
// state is all expired anyway and can be rebuilt if the key comes back.
// Caller must hold the write lock.
func (l *Limiter) reap() {
	var longest time.Duration
	for _, r := range l.rules {
		if r.Window > longest {
			longest = r.Window
		}
	}

	now := time.Now()
	for k, c := range l.clients {
		c.mu.Lock()
		stale := now.Sub(c.lastSeen) > 2*longest
		c.mu.Unlock()
		if stale {
			delete(l.clients, k)
		}
	}
}
