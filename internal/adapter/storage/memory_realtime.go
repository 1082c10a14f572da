package storage

import (
	"context"
	"sync"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// MemoryRealtime is an in-process change channel. Publish delivers to every
// subscriber of the table before returning.
type MemoryRealtime struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func(domain.ChangeEvent)
	nextID int
}

func NewMemoryRealtime() *MemoryRealtime {
	return &MemoryRealtime{subs: make(map[string]map[int]func(domain.ChangeEvent))}
}

func (m *MemoryRealtime) Publish(ctx context.Context, event domain.ChangeEvent) error {
	m.mu.RLock()
	fns := make([]func(domain.ChangeEvent), 0, len(m.subs[event.Table]))
	for _, fn := range m.subs[event.Table] {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
	return nil
}

func (m *MemoryRealtime) Subscribe(ctx context.Context, table string, fn func(domain.ChangeEvent)) (port.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[table] == nil {
		m.subs[table] = make(map[int]func(domain.ChangeEvent))
	}
	id := m.nextID
	m.nextID++
	m.subs[table][id] = fn
	return memorySubscription{rt: m, table: table, id: id}, nil
}

type memorySubscription struct {
	rt    *MemoryRealtime
	table string
	id    int
}

func (s memorySubscription) Unsubscribe() error {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	delete(s.rt.subs[s.table], s.id)
	return nil
}
