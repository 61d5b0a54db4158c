package cache

import (
	"context"
	"sync"
	"time"

	"mailprobe/internal/models"
)

type memoryItem struct {
	verdict    models.Verdict
	expiration int64
}

// Memory is an in-process verdict store. It is the default backend when
// neither Postgres nor Redis is configured, so the cache lives and dies
// with the process.
type Memory struct {
	items map[string]memoryItem
	mu    sync.RWMutex
	ttl   time.Duration
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		ttl:   TTL,
	}
}

// Get retrieves a stored verdict. Entries past their expiration are
// treated as absent.
func (m *Memory) Get(ctx context.Context, email string) (models.Verdict, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, found := m.items[email]
	if !found {
		return models.Verdict{}, false, nil
	}
	if time.Now().UnixNano() > item.expiration {
		return models.Verdict{}, false, nil
	}
	return item.verdict, true, nil
}

func (m *Memory) Put(ctx context.Context, email string, v models.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[email] = memoryItem{
		verdict:    v,
		expiration: time.Now().Add(m.ttl).UnixNano(),
	}
	return nil
}

// Purge removes expired items so the map does not grow unbounded.
func (m *Memory) Purge(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UnixNano()
	var removed int64
	for k, v := range m.items {
		if now > v.expiration {
			delete(m.items, k)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() {}
