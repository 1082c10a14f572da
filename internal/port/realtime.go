package port

import (
	"context"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// Subscription is a live realtime channel handle.
type Subscription interface {
	Unsubscribe() error
}

type RealtimeChannel interface {
	// Subscribe delivers every change of table to fn until unsubscribed
	Subscribe(ctx context.Context, table string, fn func(domain.ChangeEvent)) (Subscription, error)

	Publish(ctx context.Context, event domain.ChangeEvent) error
}
