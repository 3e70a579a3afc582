package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pestpro/pestpro/internal/domain"
)

// ClientRepository keeps client records in memory.
type ClientRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]domain.Client
}

// NewClientRepository creates an empty in-memory client store.
func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: make(map[uuid.UUID]domain.Client)}
}

func (r *ClientRepository) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = *client
	return nil
}

func (r *ClientRepository) GetByID(_ context.Context, clientID uuid.UUID) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return &client, nil
}

func (r *ClientRepository) GetByEmail(_ context.Context, email string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.clients {
		if c.Email == email {
			client := c
			return &client, nil
		}
	}
	return nil, domain.ErrClientNotFound
}

// List returns clients ordered by creation time, newest first.
func (r *ClientRepository) List(_ context.Context) ([]*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*domain.Client, 0, len(r.clients))
	for _, c := range r.clients {
		client := c
		clients = append(clients, &client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})
	return clients, nil
}

func (r *ClientRepository) AdjustActiveContracts(_ context.Context, clientID uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return domain.ErrClientNotFound
	}
	client.ActiveContracts += delta
	if client.ActiveContracts < 0 {
		client.ActiveContracts = 0
	}
	client.UpdatedAt = time.Now()
	r.clients[clientID] = client
	return nil
}
