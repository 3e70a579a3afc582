package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/pestpro/pestpro/internal/domain"
)

const (
	sessionTokenBytes = 32
	mailTokenBytes    = 24

	defaultSessionTTL = 7 * 24 * time.Hour

	eventQueueSize = 16
)

// LocalProvider is a password-based identity provider backed by an account
// repository. It persists sessions so a restart restores the signed-in
// operator, and it emits session-change events through a single dispatch
// goroutine so subscribers observe them in order.
type LocalProvider struct {
	accounts       domain.AccountRepository
	mailer         Mailer
	clock          clockwork.Clock
	baseURL        string
	requireConfirm bool
	sessionTTL     time.Duration

	mu           sync.Mutex
	handlers     map[int]Handler
	nextID       int
	currentToken string

	events chan Event
	done   chan struct{}
}

// LocalProviderOption customises a LocalProvider.
type LocalProviderOption func(*LocalProvider)

// WithClock replaces the wall clock, for tests.
func WithClock(clock clockwork.Clock) LocalProviderOption {
	return func(p *LocalProvider) { p.clock = clock }
}

// WithSessionTTL overrides the session lifetime.
func WithSessionTTL(ttl time.Duration) LocalProviderOption {
	return func(p *LocalProvider) { p.sessionTTL = ttl }
}

// WithEmailConfirmation gates sign-in on a confirmed email address.
func WithEmailConfirmation(required bool) LocalProviderOption {
	return func(p *LocalProvider) { p.requireConfirm = required }
}

// NewLocalProvider creates a provider and starts its event dispatcher.
// baseURL is used to build confirmation links.
func NewLocalProvider(accounts domain.AccountRepository, mailer Mailer, baseURL string, opts ...LocalProviderOption) *LocalProvider {
	p := &LocalProvider{
		accounts:   accounts,
		mailer:     mailer,
		clock:      clockwork.NewRealClock(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionTTL: defaultSessionTTL,
		handlers:   make(map[int]Handler),
		events:     make(chan Event, eventQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.dispatch()
	return p
}

// Close stops the event dispatcher. Pending events are dropped.
func (p *LocalProvider) Close() {
	close(p.done)
}

// GetSession restores the persisted session. It returns (nil, nil) when no
// unexpired session exists.
func (p *LocalProvider) GetSession(ctx context.Context) (*domain.Session, error) {
	now := p.clock.Now()

	p.mu.Lock()
	token := p.currentToken
	p.mu.Unlock()

	var session *domain.Session
	var err error
	if token != "" {
		session, err = p.accounts.GetSessionByToken(ctx, token)
	} else {
		session, err = p.accounts.GetLatestSession(ctx, now)
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	if !session.ExpiresAt.After(now) {
		if err := p.accounts.DeleteSession(ctx, session.Token); err != nil {
			slog.Warn("Failed to delete expired session", "error", err)
		}
		return nil, nil
	}

	p.mu.Lock()
	p.currentToken = session.Token
	p.mu.Unlock()
	return session, nil
}

// SignInWithPassword verifies credentials and issues a fresh session. The
// new session is persisted and announced before the call returns.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	account, err := p.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if p.requireConfirm && !account.Confirmed {
		return nil, ErrEmailNotConfirmed
	}

	session := &domain.Session{
		UserID:    account.ID,
		Email:     account.Email,
		Token:     randomToken(sessionTokenBytes),
		ExpiresAt: p.clock.Now().Add(p.sessionTTL),
	}
	if err := p.accounts.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	p.mu.Lock()
	p.currentToken = session.Token
	p.mu.Unlock()

	p.emit(Event{Type: EventSignedIn, Session: session})
	return session, nil
}

// SignUp creates an account. It never establishes a session; when email
// confirmation is required, a confirmation link is mailed instead.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, metadata SignUpMetadata) error {
	email = normalizeEmail(email)

	if _, err := p.accounts.GetByEmail(ctx, email); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := p.clock.Now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     metadata.FullName,
		Confirmed:    !p.requireConfirm,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.requireConfirm {
		account.ConfirmToken = randomToken(mailTokenBytes)
	}

	if err := p.accounts.Create(ctx, account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if p.requireConfirm {
		link := p.baseURL + "/confirm?token=" + account.ConfirmToken
		if err := p.mailer.SendConfirmation(ctx, account.Email, link); err != nil {
			return fmt.Errorf("failed to send confirmation email: %w", err)
		}
	}
	return nil
}

// SignOut deletes the persisted session and announces the sign-out. It is
// idempotent.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.currentToken
	p.currentToken = ""
	p.mu.Unlock()

	if token != "" {
		if err := p.accounts.DeleteSession(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	p.emit(Event{Type: EventSignedOut})
	return nil
}

// ResetPasswordForEmail stores a reset token and mails a reset link. The
// outcome is identical for known and unknown addresses so the endpoint
// cannot be used to probe which emails are registered.
func (p *LocalProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	account, err := p.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	token := randomToken(mailTokenBytes)
	if err := p.accounts.SetResetToken(ctx, account.ID, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := redirectTo + "?token=" + token
	if err := p.mailer.SendPasswordReset(ctx, account.Email, link); err != nil {
		slog.Error("Failed to send password reset email", "error", err)
	}
	return nil
}

// ConfirmEmail marks the account behind the token as confirmed.
func (p *LocalProvider) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	account, err := p.accounts.GetByConfirmToken(ctx, token)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up confirmation token: %w", err)
	}

	if err := p.accounts.Confirm(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to confirm account: %w", err)
	}
	return nil
}

// CompletePasswordReset sets a new password for the account behind the
// token and invalidates the token.
func (p *LocalProvider) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}

	account, err := p.accounts.GetByResetToken(ctx, token)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := p.accounts.UpdatePassword(ctx, account.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := p.accounts.SetResetToken(ctx, account.ID, ""); err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// GetProfile satisfies domain.ProfileStore from the account record.
func (p *LocalProvider) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	account, err := p.accounts.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &domain.Profile{UserID: account.ID, FullName: account.FullName}, nil
}

// Subscribe registers h for session-change events and returns an
// unsubscribe function.
func (p *LocalProvider) Subscribe(h Handler) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = h
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

func (p *LocalProvider) emit(e Event) {
	select {
	case p.events <- e:
	case <-p.done:
	}
}

// dispatch delivers events to subscribers one at a time, preserving
// emission order.
func (p *LocalProvider) dispatch() {
	for {
		select {
		case e := <-p.events:
			p.mu.Lock()
			handlers := make([]Handler, 0, len(p.handlers))
			for _, h := range p.handlers {
				handlers = append(handlers, h)
			}
			p.mu.Unlock()
			for _, h := range handlers {
				h(e)
			}
		case <-p.done:
			return
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
