package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryBackend is a thread-safe in-process LRU with per-entry expiry.
// Expired entries are invisible to readers and are reclaimed lazily on
// access or in bulk by Evict.
type MemoryBackend struct {
	clock      clockwork.Clock
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewMemoryBackend creates a backend holding at most maxEntries values.
// A non-positive maxEntries disables the size bound.
func NewMemoryBackend(clock clockwork.Clock, maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		clock:      clock,
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (m *MemoryBackend) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(key)
	return ok, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return nil, false, nil
	}
	m.moveToFront(e)
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.clock.Now().Add(ttl)
	if e, ok := m.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		m.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	m.entries[key] = e
	m.addToFront(e)

	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		m.evictTail()
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.drop(e)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Len returns the number of stored entries, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Evict removes every entry expired at now and returns how many were removed.
func (m *MemoryBackend) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !now.Before(e.expiresAt) {
			m.drop(e)
			n++
		}
	}
	return n
}

// lookup returns the live entry for key, dropping it if it has expired.
func (m *MemoryBackend) lookup(key string) (*entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(e.expiresAt) {
		m.drop(e)
		return nil, false
	}
	return e, true
}

func (m *MemoryBackend) drop(e *entry) {
	delete(m.entries, e.key)
	m.remove(e)
}

func (m *MemoryBackend) moveToFront(e *entry) {
	if e == m.head {
		return
	}
	m.remove(e)
	m.addToFront(e)
}

func (m *MemoryBackend) addToFront(e *entry) {
	e.next = m.head
	e.prev = nil
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *MemoryBackend) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (m *MemoryBackend) evictTail() {
	if m.tail == nil {
		return
	}
	m.drop(m.tail)
}
