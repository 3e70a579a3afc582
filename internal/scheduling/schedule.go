// Package scheduling holds the contract due-date arithmetic and status
// classification. Everything here is pure calendar-day computation; no I/O.
package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/pestpro/pestpro/internal/domain"
)

// ReminderLeadDays is the fixed lead time between the reminder and the due date.
const ReminderLeadDays = 7

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NextDueDate returns lastService + frequency calendar days. The second
// return value is false for the one-time sentinel or a negative frequency;
// malformed input never yields a valid-looking date.
func NextDueDate(lastService time.Time, frequency domain.Frequency) (time.Time, bool) {
	if !frequency.Recurring() {
		return time.Time{}, false
	}
	return lastService.AddDate(0, 0, int(frequency)), true
}

// ReminderDate returns the date the reminder for a due date should fire.
func ReminderDate(due time.Time) time.Time {
	return due.AddDate(0, 0, -ReminderLeadDays)
}

// ClassifyStatus derives a contract's status relative to now. A completed
// contract is completed regardless of dates; otherwise the contract is
// dueToday on the due date's calendar day and pending everywhere else,
// past or future alike.
func ClassifyStatus(due, now time.Time, completed bool) domain.ContractStatus {
	if completed {
		return domain.StatusCompleted
	}
	if SameDay(due, now) {
		return domain.StatusDueToday
	}
	return domain.StatusPending
}

// ShouldAutoScheduleFollowUp reports whether the follow-up for a contract
// should be created: true exactly when due falls ReminderLeadDays calendar
// days ahead of now.
func ShouldAutoScheduleFollowUp(due, now time.Time) bool {
	return SameDay(due, now.AddDate(0, 0, ReminderLeadDays))
}

// DeriveFollowUp produces the next recurring contract for c: same client,
// service types, amount and frequency, with the old due date as the new
// last-service date. The source contract is left unmodified.
func DeriveFollowUp(c *domain.Contract) (*domain.Contract, error) {
	if !c.Frequency.Recurring() {
		return nil, domain.ErrContractNotDerived
	}

	due, _ := NextDueDate(c.DueDate, c.Frequency)

	types := make([]domain.ServiceType, len(c.ServiceTypes))
	copy(types, c.ServiceTypes)

	return &domain.Contract{
		ID:              uuid.New(),
		ClientID:        c.ClientID,
		ServiceTypes:    types,
		LastServiceDate: c.DueDate,
		DueDate:         due,
		Amount:          c.Amount,
		Frequency:       c.Frequency,
		Notes:           c.Notes,
	}, nil
}
