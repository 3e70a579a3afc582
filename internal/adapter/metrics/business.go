package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business flow counters. These register on the default registry so the
// packages that increment them need no registry plumbing; the /metrics
// handler gathers both registries.
var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "signups_total",
		Help:      "Accounts created.",
	})

	ClientsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crm",
		Name:      "clients_created_total",
		Help:      "Client records created.",
	})

	ContractsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crm",
		Name:      "contracts_created_total",
		Help:      "Contracts created, including auto-scheduled follow-ups.",
	})

	ContractsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "crm",
		Name:      "contracts_completed_total",
		Help:      "Contracts marked completed.",
	})

	FollowUpsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "follow_ups_scheduled_total",
		Help:      "Follow-up contracts auto-scheduled by the reminder sweep.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "reminders_sent_total",
		Help:      "Service reminders emitted to the notification surface.",
	})

	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "sweeps_total",
		Help:      "Reminder sweep runs by result.",
	}, []string{"result"})

	NotificationDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "drops_total",
		Help:      "Notifications dropped because a subscriber was too slow.",
	})
)
