package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/metrics"
	"github.com/maspithik/angkringan/internal/port"
)

var ErrTabClosed = errors.New("tab registry closed")

// TabDeps builds the per-device and per-tab collaborators of a tab.
type TabDeps struct {
	Storage       func(deviceID, tabID string) port.LocalStorage
	Auth          func(deviceID string) port.AuthProvider
	Realtime      port.RealtimeChannel
	Users         port.UserRepository
	Notifications port.NotificationRepository
	Metrics       *metrics.Metrics
}

// Tab is one client context: its own cart, identity and unread
// notifications, sharing durable storage and the backend session with the
// other tabs of its device.
type Tab struct {
	DeviceID string
	ID       string

	Cart          *CartStore
	Session       *SessionCache
	Notifications *NotificationReconciler
	Auth          port.AuthProvider

	cancel   context.CancelFunc
	loads    sync.WaitGroup
	detach   []func()
	lastSeen time.Time
}

func openTab(parent context.Context, deps TabDeps, deviceID, tabID string) (*Tab, error) {
	ctx, cancel := context.WithCancel(parent)
	auth := deps.Auth(deviceID)
	hub := NewChangeHub(deps.Realtime, domain.TableNotifications)

	t := &Tab{
		DeviceID:      deviceID,
		ID:            tabID,
		Cart:          NewCartStore(tabID, deps.Storage(deviceID, tabID), deps.Metrics),
		Session:       NewSessionCache(auth, deps.Users, hub),
		Notifications: NewNotificationReconciler(deps.Notifications),
		Auth:          auth,
		cancel:        cancel,
	}

	t.detach = append(t.detach,
		hub.Listen(t.Notifications.Apply),
		t.Session.Subscribe(func(id domain.Identity) { t.followIdentity(ctx, id) }),
	)

	if err := t.Cart.Start(ctx); err != nil {
		t.Close()
		return nil, fmt.Errorf("start cart: %w", err)
	}
	if err := t.Session.Start(ctx); err != nil {
		t.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}
	return t, nil
}

// followIdentity keeps the unread set on the signed-in user.
func (t *Tab) followIdentity(ctx context.Context, id domain.Identity) {
	if !id.Authenticated() {
		if t.Notifications.UserID() != "" {
			t.Notifications.Reset()
		}
		return
	}
	if t.Notifications.UserID() == id.UserID {
		return
	}
	gen := t.Notifications.Track(id.UserID)
	t.loads.Add(1)
	go func() {
		defer t.loads.Done()
		if err := t.Notifications.LoadTracked(ctx, id.UserID, gen); err != nil {
			log.Printf("tab %s: %v", t.ID, err)
		}
	}()
}

func (t *Tab) Close() {
	for _, fn := range t.detach {
		fn()
	}
	t.Session.Close()
	t.Cart.Close()
	t.cancel()
	t.loads.Wait()
}

// TabRegistry holds the open tabs keyed by device and tab id and closes
// the ones left idle.
type TabRegistry struct {
	deps        TabDeps
	idleTimeout time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	tabs    map[tabKey]*Tab
	opening map[tabKey]*pendingTab
	closed  bool
}

type tabKey struct {
	device string
	tab    string
}

type pendingTab struct {
	done chan struct{}
	tab  *Tab
	err  error
}

func NewTabRegistry(deps TabDeps, idleTimeout time.Duration) *TabRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &TabRegistry{
		deps:        deps,
		idleTimeout: idleTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		tabs:        make(map[tabKey]*Tab),
		opening:     make(map[tabKey]*pendingTab),
	}
}

// Open returns the tab, starting it on first use. Tabs are started outside
// the registry lock; concurrent opens of the same tab wait for the first.
func (r *TabRegistry) Open(deviceID, tabID string) (*Tab, error) {
	key := tabKey{device: deviceID, tab: tabID}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrTabClosed
	}
	if t, ok := r.tabs[key]; ok {
		t.lastSeen = r.now()
		r.mu.Unlock()
		return t, nil
	}
	if p, ok := r.opening[key]; ok {
		r.mu.Unlock()
		<-p.done
		return p.tab, p.err
	}
	p := &pendingTab{done: make(chan struct{})}
	r.opening[key] = p
	r.mu.Unlock()

	t, err := openTab(r.ctx, r.deps, deviceID, tabID)

	r.mu.Lock()
	delete(r.opening, key)
	if err == nil && r.closed {
		r.mu.Unlock()
		t.Close()
		t, err = nil, ErrTabClosed
	} else if err == nil {
		t.lastSeen = r.now()
		r.tabs[key] = t
		r.mu.Unlock()
		r.deps.Metrics.TabOpened()
		log.Printf("tabs: opened %s/%s", deviceID, tabID)
	} else {
		r.mu.Unlock()
	}

	p.tab, p.err = t, err
	close(p.done)
	return t, err
}

// Get returns an already open tab without touching it.
func (r *TabRegistry) Get(deviceID, tabID string) (*Tab, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tabs[tabKey{device: deviceID, tab: tabID}]
	return t, ok
}

func (r *TabRegistry) Close(deviceID, tabID string) bool {
	key := tabKey{device: deviceID, tab: tabID}
	r.mu.Lock()
	t, ok := r.tabs[key]
	delete(r.tabs, key)
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.Close()
	r.deps.Metrics.TabClosed()
	return true
}

func (r *TabRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Reap closes tabs idle for longer than the idle timeout and returns how
// many were closed.
func (r *TabRegistry) Reap() int {
	cutoff := r.now().Add(-r.idleTimeout)
	var idle []*Tab

	r.mu.Lock()
	for key, t := range r.tabs {
		if t.lastSeen.Before(cutoff) {
			idle = append(idle, t)
			delete(r.tabs, key)
		}
	}
	r.mu.Unlock()

	for _, t := range idle {
		t.Close()
		r.deps.Metrics.TabClosed()
	}
	if len(idle) > 0 {
		log.Printf("tabs: reaped %d idle tabs", len(idle))
	}
	return len(idle)
}

// RunReaper calls Reap every interval until ctx is done.
func (r *TabRegistry) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reap()
		}
	}
}

// Shutdown closes every tab and refuses new ones.
func (r *TabRegistry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	tabs := r.tabs
	r.tabs = make(map[tabKey]*Tab)
	r.mu.Unlock()

	for _, t := range tabs {
		t.Close()
		r.deps.Metrics.TabClosed()
	}
	r.cancel()
}
