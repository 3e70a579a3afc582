package app

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/scheduling"
)

// ContractView is a contract enriched with the fields the dashboard derives
// on read: the current status, the owning client's name and the reminder
// date for recurring work.
type ContractView struct {
	ID              uuid.UUID              `json:"id"`
	ClientID        uuid.UUID              `json:"clientId"`
	ClientName      string                 `json:"clientName,omitempty"`
	ServiceTypes    []domain.ServiceType   `json:"serviceTypes"`
	LastServiceDate time.Time              `json:"lastServiceDate"`
	DueDate         time.Time              `json:"dueDate"`
	ReminderDate    *time.Time             `json:"reminderDate,omitempty"`
	Amount          float64                `json:"amount"`
	FrequencyDays   int                    `json:"frequencyDays"`
	Notes           string                 `json:"notes,omitempty"`
	Status          domain.ContractStatus  `json:"status"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func (s *Service) viewFor(c *domain.Contract, names map[uuid.UUID]string) ContractView {
	now := s.clock.Now()

	view := ContractView{
		ID:              c.ID,
		ClientID:        c.ClientID,
		ClientName:      names[c.ClientID],
		ServiceTypes:    c.ServiceTypes,
		LastServiceDate: c.LastServiceDate,
		DueDate:         c.DueDate,
		Amount:          c.Amount,
		FrequencyDays:   int(c.Frequency),
		Notes:           c.Notes,
		Status:          scheduling.ClassifyStatus(c.DueDate, now, c.Completed),
		CreatedAt:       c.CreatedAt,
	}
	if c.Frequency.Recurring() {
		reminder := scheduling.ReminderDate(c.DueDate)
		view.ReminderDate = &reminder
	}
	if c.Completed {
		completedAt := c.CompletedAt
		view.CompletedAt = &completedAt
	}
	return view
}

func (s *Service) viewsFor(contracts []*domain.Contract, names map[uuid.UUID]string) []ContractView {
	views := make([]ContractView, len(contracts))
	for i, c := range contracts {
		views[i] = s.viewFor(c, names)
	}
	return views
}

// ContractFilter narrows a contract listing. The zero value matches all
// contracts.
type ContractFilter struct {
	Status domain.ContractStatus
	Search string
}

func (f ContractFilter) matches(v ContractView) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(v.ClientName), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(v.Notes), needle) {
		return true
	}
	for _, t := range v.ServiceTypes {
		if strings.Contains(strings.ToLower(string(t)), needle) {
			return true
		}
	}
	return false
}

// FilterViews keeps the views matching the filter, preserving order.
func FilterViews(views []ContractView, filter ContractFilter) []ContractView {
	filtered := make([]ContractView, 0, len(views))
	for _, v := range views {
		if filter.matches(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
