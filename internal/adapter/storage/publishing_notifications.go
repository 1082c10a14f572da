package storage

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

// PublishingNotifications announces every committed notification change on
// the realtime channel. Publish failures are logged; the write stands.
type PublishingNotifications struct {
	repo     port.NotificationRepository
	realtime port.RealtimeChannel
}

func NewPublishingNotifications(repo port.NotificationRepository, realtime port.RealtimeChannel) *PublishingNotifications {
	return &PublishingNotifications{repo: repo, realtime: realtime}
}

func (p *PublishingNotifications) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return p.repo.ListUnread(ctx, userID)
}

func (p *PublishingNotifications) Insert(ctx context.Context, n domain.Notification) error {
	if err := p.repo.Insert(ctx, n); err != nil {
		return err
	}
	p.publish(ctx, domain.ChangeInsert, n, nil)
	return nil
}

// MarkAllRead publishes one update per notification that was unread.
func (p *PublishingNotifications) MarkAllRead(ctx context.Context, userID string) error {
	unread, err := p.repo.ListUnread(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.repo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	for _, n := range unread {
		old := n
		n.Read = true
		p.publish(ctx, domain.ChangeUpdate, n, &old)
	}
	return nil
}

func (p *PublishingNotifications) publish(ctx context.Context, kind domain.ChangeType, n domain.Notification, old *domain.Notification) {
	ev := domain.ChangeEvent{
		Table:      domain.TableNotifications,
		Type:       kind,
		CommitTime: time.Now(),
	}
	var err error
	if ev.New, err = json.Marshal(n); err != nil {
		log.Printf("realtime: encode notification %s: %v", n.ID, err)
		return
	}
	if old != nil {
		if ev.Old, err = json.Marshal(old); err != nil {
			log.Printf("realtime: encode notification %s: %v", n.ID, err)
			return
		}
	}
	if err := p.realtime.Publish(ctx, ev); err != nil {
		log.Printf("realtime: publish notification %s %s: %v", kind, n.ID, err)
	}
}
