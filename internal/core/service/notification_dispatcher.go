package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/metrics"
	"github.com/maspithik/angkringan/internal/port"
)

// NotificationDispatcher queues notifications and persists them from a pool
// of workers, so admin actions never wait on delivery.
type NotificationDispatcher struct {
	repo    port.NotificationRepository
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Notification
	wg     sync.WaitGroup
}

func NewNotificationDispatcher(repo port.NotificationRepository, queueSize int, m *metrics.Metrics) *NotificationDispatcher {
	return &NotificationDispatcher{
		repo:    repo,
		metrics: m,
		timeout: 5 * time.Second,
		queue:   make(chan domain.Notification, queueSize),
	}
}

// Start launches workers that drain the queue until Close.
func (d *NotificationDispatcher) Start(workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	log.Printf("notifications: started %d workers", workers)
}

// Notify enqueues an unread notification for userID.
func (d *NotificationDispatcher) Notify(ctx context.Context, userID, message string) error {
	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- n:
		d.metrics.NotificationQueued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting notifications and waits for the queue to drain.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *NotificationDispatcher) workerLoop(id int) {
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.repo.Insert(ctx, n); err != nil {
			log.Printf("worker %d: failed to save notification for %s: %v", id, n.UserID, err)
		} else {
			d.metrics.NotificationSent()
		}
		cancel()
	}
}
