package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pestpro/pestpro/internal/domain"
)

// ContractRepository keeps contract records in memory.
type ContractRepository struct {
	mu        sync.RWMutex
	contracts map[uuid.UUID]domain.Contract
}

// NewContractRepository creates an empty in-memory contract store.
func NewContractRepository() *ContractRepository {
	return &ContractRepository{contracts: make(map[uuid.UUID]domain.Contract)}
}

func (r *ContractRepository) Create(_ context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *contract
	stored.ServiceTypes = append([]domain.ServiceType(nil), contract.ServiceTypes...)
	r.contracts[contract.ID] = stored
	return nil
}

func (r *ContractRepository) GetByID(_ context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contract, ok := r.contracts[contractID]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	return cloneContract(contract), nil
}

// List returns contracts ordered by due date, earliest first.
func (r *ContractRepository) List(_ context.Context) ([]*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(func(domain.Contract) bool { return true }), nil
}

func (r *ContractRepository) ListByClient(_ context.Context, clientID uuid.UUID) ([]*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(func(c domain.Contract) bool { return c.ClientID == clientID }), nil
}

func (r *ContractRepository) ListOpenRecurring(_ context.Context) ([]*domain.Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(func(c domain.Contract) bool {
		return !c.Completed && c.Frequency.Recurring()
	}), nil
}

func (r *ContractRepository) MarkCompleted(_ context.Context, contractID uuid.UUID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contract, ok := r.contracts[contractID]
	if !ok {
		return domain.ErrContractNotFound
	}
	if contract.Completed {
		return domain.ErrContractCompleted
	}
	contract.Completed = true
	contract.CompletedAt = completedAt
	contract.UpdatedAt = completedAt
	r.contracts[contractID] = contract
	return nil
}

func (r *ContractRepository) collectLocked(pred func(domain.Contract) bool) []*domain.Contract {
	contracts := make([]*domain.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		if pred(c) {
			contracts = append(contracts, cloneContract(c))
		}
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].DueDate.Before(contracts[j].DueDate)
	})
	return contracts
}

func cloneContract(c domain.Contract) *domain.Contract {
	c.ServiceTypes = append([]domain.ServiceType(nil), c.ServiceTypes...)
	return &c
}
