package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rpupo63/blog-backend/invalidate"
)

type entry struct {
	value   []byte
	group   invalidate.Group
	expires time.Time
}

// Memory is an in-process Cache with a fixed time to live.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
	groups  map[invalidate.Group]map[string]struct{}
	gens    map[invalidate.Group]uint64
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		groups:  make(map[invalidate.Group]map[string]struct{}),
		gens:    make(map[invalidate.Group]uint64),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.ttl > 0 && !m.now().Before(e.expires) {
		m.drop(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Generation(_ context.Context, group invalidate.Group) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[group], nil
}

func (m *Memory) Set(_ context.Context, group invalidate.Group, gen uint64, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gens[group] != gen {
		return ErrStale
	}

	if old, ok := m.entries[key]; ok && old.group != group {
		delete(m.groups[old.group], key)
	}
	m.entries[key] = entry{value: value, group: group, expires: m.now().Add(m.ttl)}
	if m.groups[group] == nil {
		m.groups[group] = make(map[string]struct{})
	}
	m.groups[group][key] = struct{}{}
	return nil
}

func (m *Memory) InvalidateGroups(_ context.Context, groups ...invalidate.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range groups {
		m.gens[g]++
		for key := range m.groups[g] {
			delete(m.entries, key)
		}
		delete(m.groups, g)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// must hold m.mu
func (m *Memory) drop(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	delete(m.groups[e.group], key)
}
