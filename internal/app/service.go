// Package app is the application layer — the only component that references
// multiple domain components. It orchestrates all use cases.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pestpro/pestpro/internal/adapter/metrics"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
	"github.com/pestpro/pestpro/internal/scheduling"
)

// Service orchestrates the client and contract use cases.
type Service struct {
	clients   domain.ClientRepository
	contracts domain.ContractRepository
	notifier  domain.Notifier
	clock     clockwork.Clock
}

// NewService creates the application layer service.
func NewService(clients domain.ClientRepository, contracts domain.ContractRepository, notifier domain.Notifier, clock clockwork.Clock) *Service {
	return &Service{
		clients:   clients,
		contracts: contracts,
		notifier:  notifier,
		clock:     clock,
	}
}

// CreateClientInput carries the client form fields.
type CreateClientInput struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
	PinCode string `json:"pinCode"`
	Notes   string `json:"notes"`
}

func (in *CreateClientInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			fields["email"] = "invalid email address"
		}
	}
	if len(fields) > 0 {
		return errors.FieldValidationError("invalid client", fields)
	}
	return nil
}

// CreateClient validates the input and stores a new client record.
func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (*domain.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	client := &domain.Client{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Company:   strings.TrimSpace(in.Company),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Gender:    in.Gender,
		Address:   strings.TrimSpace(in.Address),
		PinCode:   strings.TrimSpace(in.PinCode),
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	metrics.ClientsCreated.Inc()
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Client added",
		Body:      client.Name + " is now on the books.",
		Level:     domain.LevelSuccess,
		CreatedAt: now,
	})
	slog.InfoContext(ctx, "Client created", "client_id", client.ID, "name", client.Name)
	return client, nil
}

// GetClient returns a client with their contracts.
func (s *Service) GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, []ContractView, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	contracts, err := s.contracts.ListByClient(ctx, clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list client contracts: %w", err)
	}
	return client, s.viewsFor(contracts, nil), nil
}

// ListClients returns all clients, newest first.
func (s *Service) ListClients(ctx context.Context) ([]*domain.Client, error) {
	return s.clients.List(ctx)
}

// CreateContractInput carries the contract form fields.
type CreateContractInput struct {
	ClientID        uuid.UUID `json:"clientId"`
	ServiceTypes    []string  `json:"serviceTypes"`
	LastServiceDate time.Time `json:"lastServiceDate"`
	Amount          float64   `json:"amount"`
	FrequencyDays   int       `json:"frequencyDays"`
	Notes           string    `json:"notes"`
}

func (in *CreateContractInput) validate() error {
	fields := map[string]string{}

	if in.ClientID == uuid.Nil {
		fields["clientId"] = "client is required"
	}
	if len(in.ServiceTypes) == 0 {
		fields["serviceTypes"] = "at least one service type is required"
	} else {
		for _, raw := range in.ServiceTypes {
			if !knownServiceType(domain.ServiceType(raw)) {
				fields["serviceTypes"] = "unknown service type: " + raw
				break
			}
		}
	}
	if in.LastServiceDate.IsZero() {
		fields["lastServiceDate"] = "last service date is required"
	}
	if in.Amount <= 0 {
		fields["amount"] = "amount must be positive"
	}
	if !knownFrequency(domain.Frequency(in.FrequencyDays)) {
		fields["frequencyDays"] = "unsupported frequency"
	}

	if len(fields) > 0 {
		return errors.FieldValidationError("invalid contract", fields)
	}
	return nil
}

func knownServiceType(t domain.ServiceType) bool {
	for _, known := range domain.ServiceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func knownFrequency(f domain.Frequency) bool {
	for _, known := range domain.AMCFrequencies() {
		if f == known {
			return true
		}
	}
	return false
}

// CreateContract validates the input, derives the due date from the service
// frequency and stores the contract. The owning client's active contract
// count is incremented.
func (s *Service) CreateContract(ctx context.Context, in CreateContractInput) (*domain.Contract, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	client, err := s.clients.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	frequency := domain.Frequency(in.FrequencyDays)
	// One-time jobs carry the service date as their due date; recurring
	// contracts get the next visit.
	dueDate := in.LastServiceDate
	if next, ok := scheduling.NextDueDate(in.LastServiceDate, frequency); ok {
		dueDate = next
	}

	serviceTypes := make([]domain.ServiceType, len(in.ServiceTypes))
	for i, raw := range in.ServiceTypes {
		serviceTypes[i] = domain.ServiceType(raw)
	}

	now := s.clock.Now()
	contract := &domain.Contract{
		ID:              uuid.New(),
		ClientID:        client.ID,
		ServiceTypes:    serviceTypes,
		LastServiceDate: in.LastServiceDate,
		DueDate:         dueDate,
		Amount:          in.Amount,
		Frequency:       frequency,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	if err := s.clients.AdjustActiveContracts(ctx, client.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to bump active contract count", "client_id", client.ID, "error", err)
	}

	metrics.ContractsCreated.Inc()
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Contract added",
		Body:      fmt.Sprintf("New contract for %s, next service due %s.", client.Name, dueDate.Format("02 Jan 2006")),
		Level:     domain.LevelSuccess,
		CreatedAt: now,
	})
	slog.InfoContext(ctx, "Contract created", "contract_id", contract.ID, "client_id", client.ID, "due", dueDate)
	return contract, nil
}

// GetContract returns a single contract with its derived status.
func (s *Service) GetContract(ctx context.Context, contractID uuid.UUID) (*ContractView, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	view := s.viewFor(contract, nil)
	return &view, nil
}

// ListContracts returns all contracts with derived statuses and client names.
func (s *Service) ListContracts(ctx context.Context) ([]ContractView, error) {
	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return nil, err
	}

	names, err := s.clientNames(ctx)
	if err != nil {
		return nil, err
	}
	return s.viewsFor(contracts, names), nil
}

// CompleteContract marks a contract as serviced and releases its slot in the
// client's active contract count.
func (s *Service) CompleteContract(ctx context.Context, contractID uuid.UUID) (*ContractView, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.contracts.MarkCompleted(ctx, contractID, now); err != nil {
		return nil, err
	}
	if err := s.clients.AdjustActiveContracts(ctx, contract.ClientID, -1); err != nil {
		slog.ErrorContext(ctx, "Failed to drop active contract count", "client_id", contract.ClientID, "error", err)
	}

	contract.Completed = true
	contract.CompletedAt = now

	metrics.ContractsCompleted.Inc()
	s.notifier.Notify(ctx, domain.Notification{
		ID:        uuid.New(),
		Title:     "Service completed",
		Body:      fmt.Sprintf("Contract %s marked as completed.", shortID(contract.ID)),
		Level:     domain.LevelSuccess,
		CreatedAt: now,
	})
	slog.InfoContext(ctx, "Contract completed", "contract_id", contractID)

	view := s.viewFor(contract, nil)
	return &view, nil
}

// RecentNotifications returns the latest notifications, newest first.
func (s *Service) RecentNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	return s.notifier.Recent(ctx, limit)
}

func (s *Service) clientNames(ctx context.Context) (map[uuid.UUID]string, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
