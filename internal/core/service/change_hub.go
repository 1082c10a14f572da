package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// ChangeHub holds a single realtime subscription for one table and
// republishes its events to any number of in-process listeners.
type ChangeHub struct {
	realtime port.RealtimeChannel
	table    string

	mu        sync.Mutex
	sub       port.Subscription
	listeners map[int]func(domain.ChangeEvent)
	nextID    int
}

func NewChangeHub(realtime port.RealtimeChannel, table string) *ChangeHub {
	return &ChangeHub{
		realtime:  realtime,
		table:     table,
		listeners: make(map[int]func(domain.ChangeEvent)),
	}
}

// Start opens the backend subscription if it is not already open.
func (h *ChangeHub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub != nil {
		return nil
	}
	sub, err := h.realtime.Subscribe(ctx, h.table, h.dispatch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", h.table, err)
	}
	h.sub = sub
	return nil
}

func (h *ChangeHub) Stop() error {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

func (h *ChangeHub) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub != nil
}

// Listen adds fn to the fan-out. Listeners stay registered across Stop/Start.
func (h *ChangeHub) Listen(fn func(domain.ChangeEvent)) (remove func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *ChangeHub) dispatch(ev domain.ChangeEvent) {
	h.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
