package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pestpro/pestpro/internal/domain"
)

const (
	notificationListKey = "pestpro:notifications"
	notificationChannel = "pestpro:notifications:live"
	notificationHistory = 100
)

// Notifier keeps recent notifications in a capped Redis list and fans live
// ones out over pub/sub, so every process behind the same Redis sees them.
type Notifier struct {
	rdb *goredis.Client
}

// NewNotifier creates a Redis-backed notifier.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{rdb: client.Underlying()}
}

// Notify records the notification and publishes it. Failures are logged and
// swallowed: a broken notification surface must not break the flow that
// produced the notification.
func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		slog.Error("Failed to marshal notification", "error", err)
		return
	}

	pipe := n.rdb.TxPipeline()
	pipe.LPush(ctx, notificationListKey, payload)
	pipe.LTrim(ctx, notificationListKey, 0, notificationHistory-1)
	pipe.Publish(ctx, notificationChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to publish notification", "error", err, "title", notification.Title)
	}
}

// Recent returns up to limit notifications, newest first.
func (n *Notifier) Recent(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > notificationHistory {
		limit = notificationHistory
	}

	raw, err := n.rdb.LRange(ctx, notificationListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notification history: %w", err)
	}

	notifications := make([]domain.Notification, 0, len(raw))
	for _, entry := range raw {
		var notification domain.Notification
		if err := json.Unmarshal([]byte(entry), &notification); err != nil {
			slog.Warn("Skipping malformed notification entry", "error", err)
			continue
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

// Subscribe returns a channel of future notifications and a cancel function
// that closes it.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan domain.Notification, func()) {
	pubsub := n.rdb.Subscribe(ctx, notificationChannel)
	out := make(chan domain.Notification, 16)

	subCtx, cancelCtx := context.WithCancel(ctx)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var notification domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
					slog.Warn("Skipping malformed notification message", "error", err)
					continue
				}
				select {
				case out <- notification:
				case <-subCtx.Done():
					return
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		if err := pubsub.Close(); err != nil {
			slog.Warn("Failed to close notification subscription", "error", err)
		}
	}
	return out, cancel
}

const reminderKeyPrefix = "pestpro:reminder:"

// ReminderLedger claims reminder keys with SET NX so concurrent or repeated
// sweeps emit each reminder exactly once per due date.
type ReminderLedger struct {
	rdb *goredis.Client
}

// NewReminderLedger creates a Redis-backed reminder ledger.
func NewReminderLedger(client *Client) *ReminderLedger {
	return &ReminderLedger{rdb: client.Underlying()}
}

// Claim returns true exactly once per key until ttl expires.
func (l *ReminderLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := l.rdb.SetNX(ctx, reminderKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder key: %w", err)
	}
	return claimed, nil
}
