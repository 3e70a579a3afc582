package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pestpro/pestpro/internal/adapter/metrics"
	"github.com/pestpro/pestpro/internal/domain"
)

const notifierHistorySize = 100

// Notifier is an in-process notification surface: a ring of recent
// notifications plus fan-out channels for live subscribers.
type Notifier struct {
	mu          sync.Mutex
	history     []domain.Notification
	subscribers map[int]chan domain.Notification
	nextID      int
}

// NewNotifier creates an in-memory notifier.
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[int]chan domain.Notification)}
}

// Notify records the notification and fans it out. Slow subscribers are
// skipped rather than blocking the caller.
func (n *Notifier) Notify(_ context.Context, notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.history = append(n.history, notification)
	if len(n.history) > notifierHistorySize {
		n.history = n.history[len(n.history)-notifierHistorySize:]
	}

	for _, ch := range n.subscribers {
		select {
		case ch <- notification:
		default:
			metrics.NotificationDrops.Inc()
		}
	}
}

// Recent returns up to limit notifications, newest first.
func (n *Notifier) Recent(_ context.Context, limit int) ([]domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if limit <= 0 || limit > len(n.history) {
		limit = len(n.history)
	}
	out := make([]domain.Notification, 0, limit)
	for i := len(n.history) - 1; i >= len(n.history)-limit; i-- {
		out = append(out, n.history[i])
	}
	return out, nil
}

// Subscribe returns a channel of future notifications and a cancel function
// that closes it.
func (n *Notifier) Subscribe(_ context.Context) (<-chan domain.Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan domain.Notification, 16)
	n.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// ReminderLedger tracks claimed reminder keys in memory.
type ReminderLedger struct {
	mu     sync.Mutex
	claims map[string]time.Time
}

// NewReminderLedger creates an empty in-memory ledger.
func NewReminderLedger() *ReminderLedger {
	return &ReminderLedger{claims: make(map[string]time.Time)}
}

// Claim returns true exactly once per key until its ttl expires.
func (l *ReminderLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, ok := l.claims[key]; ok && expiry.After(now) {
		return false, nil
	}
	l.claims[key] = now.Add(ttl)
	return true, nil
}
