package cache

import (
	"context"
	"sync"
	"time"

	"redline.app/engine/internal/suggestion"
)

type memoryEntry struct {
	suggestions []suggestion.Suggestion
	expiresAt   time.Time
}

// Memory is the in-process cache. Entries are evicted lazily on read;
// there is no background sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, text string, opts suggestion.Options) ([]suggestion.Suggestion, bool, error) {
	key := Key(text, opts)

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; Set may have refreshed it.
		if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	out := make([]suggestion.Suggestion, len(entry.suggestions))
	copy(out, entry.suggestions)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, text string, opts suggestion.Options, suggestions []suggestion.Suggestion) error {
	stored := make([]suggestion.Suggestion, len(suggestions))
	copy(stored, suggestions)

	m.mu.Lock()
	m.entries[Key(text, opts)] = memoryEntry{
		suggestions: stored,
		expiresAt:   m.now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
