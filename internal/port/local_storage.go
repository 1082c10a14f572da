package port

import (
	"context"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// LocalStorage is one tab's view of the device's durable key-value storage.
// Writes made through a view are reported to every other view of the same
// device, never to the writer itself.
type LocalStorage interface {
	// GetItem returns ok=false when the key is absent
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	SetItem(ctx context.Context, key, value string) error

	RemoveItem(ctx context.Context, key string) error

	// Watch delivers sibling writes in order until stop is called or ctx ends
	Watch(ctx context.Context, fn func(domain.StorageEvent)) (stop func(), err error)
}
