package proxy

import (
	"fmt"
	"net/url"
	"sync/atomic"
)

// Manager rotates probe traffic across a pool of egress proxies so a single
// IP does not accumulate a bad sending reputation with the big providers.
type Manager struct {
	proxies []*url.URL
	counter uint64
}

var Global *Manager
var Semaphore chan struct{}

// Init loads the proxy pool and sets the concurrency limit for proxied
// probe connections.
func Init(proxyList []string, limit int) error {
	var parsed []*url.URL

	for _, p := range proxyList {
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("invalid proxy URL '%s': %w", p, err)
		}
		parsed = append(parsed, u)
	}

	// If no limit is provided, default to the number of proxies
	if limit <= 0 {
		limit = len(parsed)
		if limit == 0 {
			limit = 10 // Failsafe
		}
	}

	Semaphore = make(chan struct{}, limit)

	Global = &Manager{
		proxies: parsed,
		counter: 0,
	}
	return nil
}

// Next returns the proxy for the next connection, round-robin.
func (m *Manager) Next() *url.URL {
	if m == nil || len(m.proxies) == 0 {
		return nil
	}
	n := atomic.AddUint64(&m.counter, 1)
	return m.proxies[(n-1)%uint64(len(m.proxies))]
}

func Enabled() bool {
	return Global != nil && len(Global.proxies) > 0
}
