package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// NotificationReconciler keeps the unread notifications of the tab's user,
// newest first. Load is the authoritative resync point: its result replaces
// the set, including events applied while it was in flight.
type NotificationReconciler struct {
	repo port.NotificationRepository

	mu         sync.Mutex
	userID     string
	unread     []domain.Notification
	generation uint64

	notifyMu  sync.Mutex
	listeners map[int]func([]domain.Notification)
	nextID    int
}

func NewNotificationReconciler(repo port.NotificationRepository) *NotificationReconciler {
	return &NotificationReconciler{
		repo:      repo,
		listeners: make(map[int]func([]domain.Notification)),
	}
}

// Track switches the reconciler to userID, dropping another user's set, and
// returns a token that only the most recent Track or Load holds.
func (r *NotificationReconciler) Track(userID string) uint64 {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	if r.userID != userID {
		r.userID = userID
		r.unread = nil
		r.publishLocked()
		return gen
	}
	r.mu.Unlock()
	return gen
}

// Reset forgets the user, for sign out.
func (r *NotificationReconciler) Reset() {
	r.mu.Lock()
	r.generation++
	r.userID = ""
	r.unread = nil
	r.publishLocked()
}

// Load fetches the unread notifications of userID and replaces the set.
func (r *NotificationReconciler) Load(ctx context.Context, userID string) error {
	return r.LoadTracked(ctx, userID, r.Track(userID))
}

// LoadTracked is Load for a token obtained from Track. The result is dropped
// if another Track, Load or Reset happened meanwhile.
func (r *NotificationReconciler) LoadTracked(ctx context.Context, userID string, gen uint64) error {
	list, err := r.repo.ListUnread(ctx, userID)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	r.mu.Lock()
	if gen != r.generation || r.userID != userID {
		r.mu.Unlock()
		return nil
	}
	r.unread = append([]domain.Notification(nil), list...)
	r.publishLocked()
	return nil
}

// ClearAll marks every notification of userID as read. The set is only
// emptied once the backend accepted the change, then resynced.
func (r *NotificationReconciler) ClearAll(ctx context.Context, userID string) error {
	if err := r.repo.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}

	r.mu.Lock()
	if r.userID == userID {
		r.unread = nil
		r.publishLocked()
	} else {
		r.mu.Unlock()
	}

	if err := r.Load(ctx, userID); err != nil {
		log.Printf("notifications: resync after clear for %s: %v", userID, err)
	}
	return nil
}

// Apply ingests one realtime event. Events for other users, other tables or
// already-applied inserts leave the set untouched.
func (r *NotificationReconciler) Apply(ev domain.ChangeEvent) {
	if ev.Table != domain.TableNotifications {
		return
	}

	var next, prev domain.Notification
	if len(ev.New) > 0 {
		if err := json.Unmarshal(ev.New, &next); err != nil {
			log.Printf("notifications: drop malformed %s event: %v", ev.Type, err)
			return
		}
	}
	if len(ev.Old) > 0 {
		if err := json.Unmarshal(ev.Old, &prev); err != nil {
			log.Printf("notifications: drop malformed %s event: %v", ev.Type, err)
			return
		}
	}

	r.mu.Lock()
	if r.userID == "" || !r.apply(ev.Type, next, prev) {
		r.mu.Unlock()
		return
	}
	r.publishLocked()
}

// apply reports whether the set changed. Called with r.mu held.
func (r *NotificationReconciler) apply(kind domain.ChangeType, next, prev domain.Notification) bool {
	switch kind {
	case domain.ChangeInsert:
		if next.UserID != r.userID || next.Read || r.index(next.ID) >= 0 {
			return false
		}
		r.unread = append([]domain.Notification{next}, r.unread...)
		return true

	case domain.ChangeUpdate:
		if next.UserID != r.userID {
			return false
		}
		i := r.index(next.ID)
		if i < 0 {
			return false
		}
		if next.Read {
			r.unread = append(r.unread[:i:i], r.unread[i+1:]...)
		} else {
			r.unread[i] = next
		}
		return true

	case domain.ChangeDelete:
		// Deletes may only carry the primary key.
		if prev.UserID != "" && prev.UserID != r.userID {
			return false
		}
		i := r.index(prev.ID)
		if i < 0 {
			return false
		}
		r.unread = append(r.unread[:i:i], r.unread[i+1:]...)
		return true
	}
	return false
}

func (r *NotificationReconciler) index(id string) int {
	for i, n := range r.unread {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (r *NotificationReconciler) Unread() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.unread...)
}

// Count is derived from the set, never stored.
func (r *NotificationReconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.unread)
}

func (r *NotificationReconciler) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Subscribe registers fn for set changes; fn must not call back into the
// reconciler.
func (r *NotificationReconciler) Subscribe(fn func([]domain.Notification)) (unsubscribe func()) {
	r.notifyMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.notifyMu.Unlock()
	return func() {
		r.notifyMu.Lock()
		delete(r.listeners, id)
		r.notifyMu.Unlock()
	}
}

// publishLocked is called with r.mu held and releases it.
func (r *NotificationReconciler) publishLocked() {
	snapshot := append([]domain.Notification(nil), r.unread...)
	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()
	for _, fn := range r.listeners {
		fn(snapshot)
	}
}
