package domain

import (
	"encoding/json"
	"time"
)

const (
	TableNotifications = "notifications"
	TableOrders        = "orders"
	TableMenuItems     = "menu_items"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row-level change delivered by the realtime channel.
// New is empty for deletes, Old is empty for inserts.
type ChangeEvent struct {
	Table      string          `json:"table"`
	Type       ChangeType      `json:"type"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	CommitTime time.Time       `json:"commit_timestamp"`
}

// StorageEvent is the cross-tab signal for a durable local storage write.
// NewValue is nil when the key was removed.
type StorageEvent struct {
	Key      string  `json:"key"`
	NewValue *string `json:"new_value"`
	Origin   string  `json:"origin"`
}
