// Package memory provides map-backed repository implementations. They serve
// development mode and tests; production wiring uses the postgres and redis
// adapters instead.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pestpro/pestpro/internal/domain"
)

// AccountRepository keeps accounts and their sessions in memory.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]domain.Account
	sessions map[string]domain.Session
}

// NewAccountRepository creates an empty in-memory account store.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uuid.UUID]domain.Account),
		sessions: make(map[string]domain.Session),
	}
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.Email == account.Email {
			return domain.ErrEmailTaken
		}
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, accountID uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(a domain.Account) bool { return a.Email == email })
}

func (r *AccountRepository) GetByConfirmToken(_ context.Context, token string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(a domain.Account) bool {
		return a.ConfirmToken != "" && a.ConfirmToken == token
	})
}

func (r *AccountRepository) GetByResetToken(_ context.Context, token string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(func(a domain.Account) bool {
		return a.ResetToken != "" && a.ResetToken == token
	})
}

func (r *AccountRepository) Confirm(_ context.Context, accountID uuid.UUID) error {
	return r.update(accountID, func(a *domain.Account) {
		a.Confirmed = true
		a.ConfirmToken = ""
	})
}

func (r *AccountRepository) SetResetToken(_ context.Context, accountID uuid.UUID, token string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.ResetToken = token
	})
}

func (r *AccountRepository) UpdatePassword(_ context.Context, accountID uuid.UUID, passwordHash string) error {
	return r.update(accountID, func(a *domain.Account) {
		a.PasswordHash = passwordHash
	})
}

func (r *AccountRepository) SaveSession(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Token] = *session
	return nil
}

func (r *AccountRepository) GetSessionByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *AccountRepository) GetLatestSession(_ context.Context, now time.Time) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Session
	for _, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || s.ExpiresAt.After(latest.ExpiresAt) {
			copy := s
			latest = &copy
		}
	}
	if latest == nil {
		return nil, domain.ErrSessionNotFound
	}
	return latest, nil
}

func (r *AccountRepository) DeleteSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[token]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, token)
	return nil
}

func (r *AccountRepository) findLocked(pred func(domain.Account) bool) (*domain.Account, error) {
	for _, a := range r.accounts {
		if pred(a) {
			account := a
			return &account, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) update(accountID uuid.UUID, fn func(*domain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	fn(&account)
	account.UpdatedAt = time.Now()
	r.accounts[accountID] = account
	return nil
}
