package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/metrics"
	"github.com/maspithik/angkringan/internal/port"
)

// CartStorageKey is the durable storage key holding the serialized cart.
const CartStorageKey = "cart"

const storageWriteTimeout = 5 * time.Second

// CartStore owns one tab's cart. Mutations apply to memory first and are then
// mirrored to the device storage; writes from sibling tabs replace the whole
// cart. Listeners get a snapshot and must not call back into the store.
type CartStore struct {
	tabID   string
	storage port.LocalStorage
	metrics *metrics.Metrics

	mu       sync.Mutex
	lines    domain.Cart
	degraded bool
	stop     func()

	notifyMu  sync.Mutex
	listeners map[int]func(domain.Cart)
	nextID    int
}

func NewCartStore(tabID string, storage port.LocalStorage, m *metrics.Metrics) *CartStore {
	return &CartStore{
		tabID:     tabID,
		storage:   storage,
		metrics:   m,
		lines:     domain.Cart{},
		listeners: make(map[int]func(domain.Cart)),
	}
}

// Start loads the persisted cart and begins following sibling writes.
func (s *CartStore) Start(ctx context.Context) error {
	value, ok, err := s.storage.GetItem(ctx, CartStorageKey)
	if err != nil {
		log.Printf("cart %s: read persisted cart: %v", s.tabID, err)
	} else if ok {
		cart, err := decodeCart(&value)
		if err != nil {
			log.Printf("cart %s: ignoring unreadable persisted cart: %v", s.tabID, err)
		} else {
			s.mu.Lock()
			s.lines = cart
			s.mu.Unlock()
		}
	}

	stop, err := s.storage.Watch(ctx, s.handleStorageEvent)
	if err != nil {
		return fmt.Errorf("watch cart storage: %w", err)
	}
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
	return nil
}

func (s *CartStore) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Add merges line into the cart. An existing line keeps its title and price
// and only gains quantity.
func (s *CartStore) Add(ctx context.Context, line domain.CartLine) error {
	if line.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	if i := s.lines.Index(line.MenuItemID); i >= 0 {
		s.lines[i].Quantity += line.Quantity
	} else {
		s.lines = append(s.lines, line)
	}
	s.commitLocked(ctx, "add")
	return nil
}

// Remove deletes the line for menuItemID; absent ids are a no-op.
func (s *CartStore) Remove(ctx context.Context, menuItemID int64) {
	s.mu.Lock()
	if i := s.lines.Index(menuItemID); i >= 0 {
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	}
	s.commitLocked(ctx, "remove")
}

// SetQuantity adds delta to the line's quantity, never going below 1.
func (s *CartStore) SetQuantity(ctx context.Context, menuItemID int64, delta int) {
	s.mu.Lock()
	if i := s.lines.Index(menuItemID); i >= 0 {
		s.lines[i].Quantity = max(1, s.lines[i].Quantity+delta)
	}
	s.commitLocked(ctx, "set_quantity")
}

// Clear empties the cart and drops the storage key.
func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = domain.Cart{}
	s.commitLocked(ctx, "clear")
}

func (s *CartStore) Lines() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone()
}

func (s *CartStore) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Total()
}

func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.ItemCount()
}

// Degraded reports whether a storage write failed and the cart is now
// memory-only for this tab.
func (s *CartStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Subscribe registers fn to receive the cart after every change.
func (s *CartStore) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()
	return func() {
		s.notifyMu.Lock()
		delete(s.listeners, id)
		s.notifyMu.Unlock()
	}
}

// commitLocked persists the cart and notifies listeners. Called with s.mu
// held; releases it. notifyMu is taken before s.mu is released so listeners
// see changes in mutation order.
func (s *CartStore) commitLocked(ctx context.Context, op string) {
	s.metrics.CartMutation(op)
	if !s.degraded {
		s.persistLocked(ctx, op)
	}
	snapshot := s.lines.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notifyLocked(snapshot)
	s.notifyMu.Unlock()
}

// persistLocked mirrors the cart to storage. The write outlives the caller's
// request; only a failure of the storage itself degrades the tab.
func (s *CartStore) persistLocked(ctx context.Context, op string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageWriteTimeout)
	defer cancel()

	var err error
	if op == "clear" {
		err = s.storage.RemoveItem(ctx, CartStorageKey)
	} else {
		var raw []byte
		raw, err = json.Marshal(s.lines)
		if err == nil {
			err = s.storage.SetItem(ctx, CartStorageKey, string(raw))
		}
	}
	if err == nil {
		return
	}
	s.metrics.StorageFailure()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Printf("cart %s: storage write %s timed out: %v", s.tabID, op, err)
		return
	}
	log.Printf("cart %s: storage write failed, keeping cart in memory only: %v", s.tabID, err)
	s.degraded = true
}

func (s *CartStore) handleStorageEvent(ev domain.StorageEvent) {
	if ev.Key != CartStorageKey {
		return
	}
	cart, err := decodeCart(ev.NewValue)
	if err != nil {
		log.Printf("cart %s: ignoring unreadable sibling write from %s: %v", s.tabID, ev.Origin, err)
		return
	}

	s.mu.Lock()
	if s.degraded {
		s.mu.Unlock()
		return
	}
	s.lines = cart
	s.metrics.CartMutation("sync")
	snapshot := s.lines.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notifyLocked(snapshot)
	s.notifyMu.Unlock()
}

func (s *CartStore) notifyLocked(cart domain.Cart) {
	for _, fn := range s.listeners {
		fn(cart.Clone())
	}
}

func decodeCart(value *string) (domain.Cart, error) {
	if value == nil || *value == "" {
		return domain.Cart{}, nil
	}
	var cart domain.Cart
	if err := json.Unmarshal([]byte(*value), &cart); err != nil {
		return nil, err
	}
	return cart.Normalize(), nil
}
