package service

import (
	"context"
	"log"
	"sync"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// SessionCache tracks the tab's identity: Unknown until Start resolves the
// backend session, then Anonymous or Authenticated. The admin flag and display
// name are looked up independently after each sign in; a lookup failure
// falls back to false / "User" and is only logged.
//
// The cache also owns the tab's realtime subscription: the hub is started on
// sign in and stopped on sign out.
type SessionCache struct {
	auth  port.AuthProvider
	users port.UserRepository
	hub   *ChangeHub

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	identity    domain.Identity
	generation  uint64
	unsubscribe func()
	lookups     sync.WaitGroup

	// hubMu orders realtime start/stop across transitions.
	hubMu sync.Mutex

	notifyMu  sync.Mutex
	listeners map[int]func(domain.Identity)
	nextID    int
}

func NewSessionCache(auth port.AuthProvider, users port.UserRepository, hub *ChangeHub) *SessionCache {
	return &SessionCache{
		auth:      auth,
		users:     users,
		hub:       hub,
		listeners: make(map[int]func(domain.Identity)),
	}
}

// Start subscribes to session transitions and resolves the current session.
// The context bounds every lookup and realtime subscription the cache makes.
func (c *SessionCache) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	unsubscribe := c.auth.OnSessionChange(c.handleAuthEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	session, err := c.auth.CurrentSession(ctx)
	if err != nil {
		log.Printf("session: resolve current session, continuing signed out: %v", err)
		session = nil
	}
	c.apply(session)
	return nil
}

func (c *SessionCache) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	cancel := c.cancel
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.syncHub(context.Background(), gen, "")
	c.lookups.Wait()
}

func (c *SessionCache) Identity() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Hub is the realtime fan-out owned by this session.
func (c *SessionCache) Hub() *ChangeHub {
	return c.hub
}

// Subscribe registers fn for identity changes. Each call receives the full
// identity after the change; fn must not call back into the cache.
func (c *SessionCache) Subscribe(fn func(domain.Identity)) (unsubscribe func()) {
	c.notifyMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.notifyMu.Unlock()
	return func() {
		c.notifyMu.Lock()
		delete(c.listeners, id)
		c.notifyMu.Unlock()
	}
}

func (c *SessionCache) handleAuthEvent(ev domain.AuthEvent) {
	if ev.Type == domain.AuthSignedOut {
		c.apply(nil)
		return
	}
	c.apply(ev.Session)
}

func (c *SessionCache) apply(session *domain.Session) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	ctx := c.ctx

	if session == nil {
		// Reset before anything else so stale admin state is never visible.
		c.identity = domain.Identity{State: domain.SessionAnonymous}
		c.publishLocked()
		c.syncHub(context.Background(), gen, "")
		return
	}

	next := domain.Identity{
		State:  domain.SessionAuthenticated,
		UserID: session.UserID,
		Email:  session.Email,
	}
	if c.identity.Authenticated() && c.identity.UserID == session.UserID {
		// Token refresh for the same user keeps what is already known.
		next.IsAdmin = c.identity.IsAdmin
		next.DisplayName = c.identity.DisplayName
	}
	c.identity = next
	c.lookups.Add(2)
	c.publishLocked()

	c.syncHub(ctx, gen, session.UserID)
	go c.lookupAdmin(ctx, gen, session.UserID)
	go c.lookupDisplayName(ctx, gen, session.UserID)
}

// syncHub starts the realtime subscription for userID, or stops it when
// userID is empty. A transition superseded by a newer generation is skipped.
func (c *SessionCache) syncHub(ctx context.Context, gen uint64, userID string) {
	if c.hub == nil {
		return
	}
	c.hubMu.Lock()
	defer c.hubMu.Unlock()

	c.mu.Lock()
	stale := gen != c.generation
	c.mu.Unlock()
	if stale {
		return
	}

	if userID == "" {
		if err := c.hub.Stop(); err != nil {
			log.Printf("session: stop realtime: %v", err)
		}
		return
	}
	if err := c.hub.Start(ctx); err != nil {
		log.Printf("session: start realtime for %s: %v", userID, err)
	}
}

func (c *SessionCache) lookupAdmin(ctx context.Context, gen uint64, userID string) {
	defer c.lookups.Done()
	isAdmin, err := c.users.IsAdmin(ctx, userID)
	if err != nil {
		log.Printf("session: check admin status for %s: %v", userID, err)
		isAdmin = false
	}
	c.update(gen, func(id *domain.Identity) { id.IsAdmin = isAdmin })
}

func (c *SessionCache) lookupDisplayName(ctx context.Context, gen uint64, userID string) {
	defer c.lookups.Done()
	name := domain.DefaultDisplayName
	profile, err := c.users.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("session: fetch display name for %s: %v", userID, err)
	} else if profile != nil && profile.Name != "" {
		name = profile.Name
	}
	c.update(gen, func(id *domain.Identity) { id.DisplayName = name })
}

// update applies a lookup result unless the session changed since it started.
func (c *SessionCache) update(gen uint64, fn func(*domain.Identity)) {
	c.mu.Lock()
	if gen != c.generation || !c.identity.Authenticated() {
		c.mu.Unlock()
		return
	}
	fn(&c.identity)
	c.publishLocked()
}

// publishLocked is called with c.mu held and releases it. notifyMu is taken
// first so listeners observe identities in the order they were set.
func (c *SessionCache) publishLocked() {
	snapshot := c.identity
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, fn := range c.listeners {
		fn(snapshot)
	}
}
