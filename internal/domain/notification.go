package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationLevel controls how the UI renders a toast.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
)

// Notification is a fire-and-forget message for the toast surface.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Level     NotificationLevel `json:"level"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifier is the notification surface. Notify is best-effort: failures are
// logged by implementations and never propagate into the calling flow.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
	Recent(ctx context.Context, limit int) ([]Notification, error)
	// Subscribe returns a channel of future notifications plus a cancel
	// function. The channel is closed on cancel.
	Subscribe(ctx context.Context) (<-chan Notification, func())
}

// ReminderLedger records which contract reminders have already fired so a
// sweep that runs more than once for the same due date stays idempotent.
type ReminderLedger interface {
	// Claim returns true exactly once per key until ttl expires.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
