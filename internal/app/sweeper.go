package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pestpro/pestpro/internal/adapter/metrics"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/correlation"
	"github.com/pestpro/pestpro/internal/scheduling"
)

// reminderClaimTTL keeps a claimed reminder key alive long past its due
// date so a sweep re-run can never re-emit it.
const reminderClaimTTL = 14 * 24 * time.Hour

// FollowUpSweeper walks the open recurring contracts once a day. A contract
// whose due date is exactly one reminder lead away gets a reminder
// notification and a follow-up contract scheduled for its next cycle; a
// contract due today gets a due-today notification. The ledger keeps each
// emission idempotent across re-runs and across processes.
type FollowUpSweeper struct {
	contracts domain.ContractRepository
	clients   domain.ClientRepository
	notifier  domain.Notifier
	ledger    domain.ReminderLedger
	clock     clockwork.Clock
	sweepHour int

	group singleflight.Group
}

// NewFollowUpSweeper creates a sweeper that runs daily at sweepHour UTC.
func NewFollowUpSweeper(
	contracts domain.ContractRepository,
	clients domain.ClientRepository,
	notifier domain.Notifier,
	ledger domain.ReminderLedger,
	clock clockwork.Clock,
	sweepHour int,
) *FollowUpSweeper {
	return &FollowUpSweeper{
		contracts: contracts,
		clients:   clients,
		notifier:  notifier,
		ledger:    ledger,
		clock:     clock,
		sweepHour: sweepHour,
	}
}

// Run blocks until ctx is cancelled, sweeping once per day at the configured
// hour.
func (s *FollowUpSweeper) Run(ctx context.Context) {
	for {
		next := s.nextRun(s.clock.Now())
		slog.Info("Next reminder sweep scheduled", "at", next)

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(s.clock.Now())):
			if err := s.RunOnce(ctx); err != nil {
				slog.Error("Reminder sweep failed", "error", err)
			}
		}
	}
}

func (s *FollowUpSweeper) nextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.sweepHour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOnce performs a single sweep. Concurrent calls collapse into one run.
func (s *FollowUpSweeper) RunOnce(ctx context.Context) error {
	_, err, _ := s.group.Do("sweep", func() (any, error) {
		return nil, s.sweep(ctx)
	})
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.SweepsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *FollowUpSweeper) sweep(ctx context.Context) error {
	ctx = correlation.WithID(ctx, correlation.NewID())
	now := s.clock.Now()

	contracts, err := s.contracts.ListOpenRecurring(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open contracts: %w", err)
	}

	slog.InfoContext(ctx, "Reminder sweep started", "open_contracts", len(contracts))
	for _, contract := range contracts {
		if scheduling.ShouldAutoScheduleFollowUp(contract.DueDate, now) {
			s.remind(ctx, contract, now)
			s.scheduleFollowUp(ctx, contract, now)
		}
		if scheduling.SameDay(contract.DueDate, now) {
			s.dueToday(ctx, contract, now)
		}
	}
	return nil
}

// remind emits the seven-days-out service reminder, once per due date.
func (s *FollowUpSweeper) remind(ctx context.Context, contract *domain.Contract, now time.Time) {
	key := claimKey("reminder", contract.ID, contract.DueDate)
	claimed, err := s.ledger.Claim(ctx, key, reminderClaimTTL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to claim reminder", "contract_id", contract.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	client := s.clientName(ctx, contract.ClientID)
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Service due in 7 days",
		Body:      fmt.Sprintf("%s has a service visit due on %s.", client, contract.DueDate.Format("02 Jan 2006")),
		Level:     domain.LevelWarning,
		CreatedAt: now,
	})
	metrics.RemindersSent.Inc()
	slog.InfoContext(ctx, "Reminder sent", "contract_id", contract.ID, "due", contract.DueDate)
}

// scheduleFollowUp creates the next cycle's contract, once per due date.
func (s *FollowUpSweeper) scheduleFollowUp(ctx context.Context, contract *domain.Contract, now time.Time) {
	key := claimKey("followup", contract.ID, contract.DueDate)
	claimed, err := s.ledger.Claim(ctx, key, reminderClaimTTL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to claim follow-up", "contract_id", contract.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	followUp, err := scheduling.DeriveFollowUp(contract)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to derive follow-up", "contract_id", contract.ID, "error", err)
		return
	}
	followUp.CreatedAt = now
	followUp.UpdatedAt = now

	if err := s.contracts.Create(ctx, followUp); err != nil {
		slog.ErrorContext(ctx, "Failed to create follow-up contract", "contract_id", contract.ID, "error", err)
		return
	}
	if err := s.clients.AdjustActiveContracts(ctx, contract.ClientID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to bump active contract count", "client_id", contract.ClientID, "error", err)
	}

	client := s.clientName(ctx, contract.ClientID)
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Follow-up scheduled",
		Body:      fmt.Sprintf("Next visit for %s scheduled, due %s.", client, followUp.DueDate.Format("02 Jan 2006")),
		Level:     domain.LevelInfo,
		CreatedAt: now,
	})
	metrics.FollowUpsScheduled.Inc()
	metrics.ContractsCreated.Inc()
	slog.InfoContext(ctx, "Follow-up contract created",
		"contract_id", contract.ID, "follow_up_id", followUp.ID, "due", followUp.DueDate)
}

// dueToday notifies about a visit due today, once per due date.
func (s *FollowUpSweeper) dueToday(ctx context.Context, contract *domain.Contract, now time.Time) {
	key := claimKey("due", contract.ID, contract.DueDate)
	claimed, err := s.ledger.Claim(ctx, key, reminderClaimTTL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to claim due-today notice", "contract_id", contract.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	client := s.clientName(ctx, contract.ClientID)
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Service due today",
		Body:      fmt.Sprintf("%s has a service visit due today.", client),
		Level:     domain.LevelWarning,
		CreatedAt: now,
	})
	slog.InfoContext(ctx, "Due-today notice sent", "contract_id", contract.ID)
}

func (s *FollowUpSweeper) clientName(ctx context.Context, clientID uuid.UUID) string {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve client name", "client_id", clientID, "error", err)
		return "a client"
	}
	return client.Name
}

func claimKey(kind string, contractID uuid.UUID, dueDate time.Time) string {
	return fmt.Sprintf("%s:%s:%s", kind, contractID, dueDate.Format("2006-01-02"))
}
