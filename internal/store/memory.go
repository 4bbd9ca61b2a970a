package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend keeps sessions in process. It is used when Redis is not
// reachable and in tests; expired entries are dropped lazily.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

type memItem struct {
	data    []byte
	expires time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memItem), now: time.Now}
}

// live returns the entry at key, evicting it if it has expired. Callers hold mu.
func (b *MemoryBackend) live(key string) (memItem, bool) {
	it, ok := b.items[key]
	if !ok {
		return memItem{}, false
	}
	if !it.expires.IsZero() && !b.now().Before(it.expires) {
		delete(b.items, key)
		return memItem{}, false
	}
	return it, true
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.live(key)
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]byte, len(it.data))
	copy(out, it.data)
	return out, nil
}

func (b *MemoryBackend) Save(_ context.Context, key string, data []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := memItem{data: append([]byte(nil), data...)}
	if ttl > 0 {
		it.expires = b.now().Add(ttl)
	}
	b.items[key] = it
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.live(key); !ok {
		return ErrSessionNotFound
	}
	delete(b.items, key)
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.items {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := b.live(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
