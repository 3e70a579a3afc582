package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceType tags the kind of pest-control work a contract covers.
type ServiceType string

const (
	ServiceTermite   ServiceType = "termite"
	ServiceRodent    ServiceType = "rodent"
	ServiceCockroach ServiceType = "cockroach"
	ServiceMosquito  ServiceType = "mosquito"
	ServiceBedBug    ServiceType = "bed_bug"
	ServiceAnt       ServiceType = "ant"
	ServiceOther     ServiceType = "other"
)

// ServiceTypes lists every known service type in display order.
func ServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceTermite, ServiceRodent, ServiceCockroach,
		ServiceMosquito, ServiceBedBug, ServiceAnt, ServiceOther,
	}
}

// Frequency is the number of days between successive service visits.
// FrequencyOneTime is the sentinel for a non-recurring contract.
type Frequency int

const FrequencyOneTime Frequency = 0

// Recurring reports whether the frequency denotes a repeating contract.
func (f Frequency) Recurring() bool { return f > 0 }

// AMCFrequencies lists the frequencies offered by the contract form.
func AMCFrequencies() []Frequency {
	return []Frequency{30, 60, 90, 180, 365, FrequencyOneTime}
}

// ContractStatus is derived from the due date and completion flag.
// It is recomputed on read, never stored.
type ContractStatus string

const (
	StatusPending   ContractStatus = "pending"
	StatusDueToday  ContractStatus = "dueToday"
	StatusCompleted ContractStatus = "completed"
)

// Contract is a service agreement tied to exactly one client. Recurrence
// produces a new Contract rather than mutating the existing one.
type Contract struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ServiceTypes    []ServiceType
	LastServiceDate time.Time
	DueDate         time.Time
	Amount          float64
	Frequency       Frequency
	Notes           string
	Completed       bool
	CompletedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ContractRepository abstracts contract persistence.
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, contractID uuid.UUID) (*Contract, error)
	List(ctx context.Context) ([]*Contract, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Contract, error)
	// ListOpenRecurring returns non-completed contracts with a recurring frequency.
	ListOpenRecurring(ctx context.Context) ([]*Contract, error)
	MarkCompleted(ctx context.Context, contractID uuid.UUID, completedAt time.Time) error
}
