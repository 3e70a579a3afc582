package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pestpro/pestpro/internal/domain"
)

// State is the manager's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

const (
	// fallbackDisplayName is used when the profile lookup yields nothing.
	fallbackDisplayName = "User"

	profileLookupTimeout = 5 * time.Second
	confirmTimeout       = 5 * time.Second
)

// Manager is the single source of truth for "who is logged in". All session
// mutations are driven by the provider's notification stream, never by the
// return value of Login or Logout, so the mirrored state reflects only
// confirmed provider state. The event handler is the single writer; readers
// go through Current/IsAuthenticated.
type Manager struct {
	provider      Provider
	profiles      domain.ProfileStore
	resetRedirect string

	mu          sync.RWMutex
	state       State
	session     *domain.Session
	inflight    int
	waiters     []chan struct{}
	unsubscribe func()
}

// NewManager creates an uninitialized Manager. resetRedirect is the link
// target embedded in password-reset emails.
func NewManager(provider Provider, profiles domain.ProfileStore, resetRedirect string) *Manager {
	return &Manager{
		provider:      provider,
		profiles:      profiles,
		resetRedirect: resetRedirect,
		state:         StateUninitialized,
	}
}

// Initialize restores a persisted session, if any, and registers the
// session-change subscription for the remainder of the process lifetime.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	m.state = StateLoading
	m.mu.Unlock()

	// Subscribe before the initial lookup so no event can slip between.
	m.unsubscribe = m.provider.Subscribe(m.handleEvent)

	session, err := m.provider.GetSession(ctx)
	if err != nil {
		m.setState(StateUnauthenticated, nil)
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if session == nil {
		m.setState(StateUnauthenticated, nil)
		return nil
	}

	m.setState(StateAuthenticated, m.enrich(ctx, session))
	slog.Info("Session restored", "user_id", session.UserID, "email", session.Email)
	return nil
}

// Close tears down the provider subscription.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Login delegates credential verification to the provider, then waits for
// the subscription to confirm the new session. The error is surfaced to the
// caller and never retried automatically.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.beginOp()
	defer m.endOp()

	session, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	if err := m.waitFor(waitCtx, func() bool {
		return m.session != nil && m.session.Token == session.Token
	}); err != nil {
		return fmt.Errorf("sign-in not confirmed by provider notification: %w", err)
	}
	return nil
}

// Signup delegates account creation to the provider. It never establishes a
// session; the provider may require email confirmation first.
func (m *Manager) Signup(ctx context.Context, email, password, displayName string) error {
	m.beginOp()
	defer m.endOp()

	return m.provider.SignUp(ctx, email, password, SignUpMetadata{FullName: displayName})
}

// Logout delegates session termination to the provider and waits for the
// subscription to clear the mirrored session.
func (m *Manager) Logout(ctx context.Context) error {
	m.beginOp()
	defer m.endOp()

	if err := m.provider.SignOut(ctx); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	if err := m.waitFor(waitCtx, func() bool { return m.session == nil }); err != nil {
		return fmt.Errorf("sign-out not confirmed by provider notification: %w", err)
	}
	return nil
}

// ResetPassword asks the provider to send a reset link. The outcome never
// reveals whether the email is registered.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	m.beginOp()
	defer m.endOp()

	return m.provider.ResetPasswordForEmail(ctx, email, m.resetRedirect)
}

// Current returns a copy of the active session, or nil when unauthenticated.
func (m *Manager) Current() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// IsAuthenticated reports whether a session exists.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// IsLoading is true during initialization and while a login, signup, logout
// or reset call is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateLoading || m.inflight > 0
}

// State returns the manager's lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// handleEvent is the session's single writer. The provider delivers events
// in order and one at a time.
func (m *Manager) handleEvent(e Event) {
	switch e.Type {
	case EventSignedIn:
		if e.Session == nil {
			slog.Warn("SIGNED_IN event without session, ignoring")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
		session := m.enrich(ctx, e.Session)
		cancel()
		m.setState(StateAuthenticated, session)
		slog.Info("Signed in", "user_id", session.UserID, "email", session.Email)
	case EventSignedOut:
		m.setState(StateUnauthenticated, nil)
		slog.Info("Signed out")
	default:
		slog.Warn("Unknown auth event", "type", e.Type)
	}
}

// enrich populates the session display name from the profile store, falling
// back to a generic name when the lookup yields nothing.
func (m *Manager) enrich(ctx context.Context, session *domain.Session) *domain.Session {
	s := *session
	s.Name = fallbackDisplayName

	profile, err := m.profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		slog.Warn("Profile lookup failed, using fallback name", "user_id", session.UserID, "error", err)
		return &s
	}
	if profile != nil && profile.FullName != "" {
		s.Name = profile.FullName
	}
	return &s
}

func (m *Manager) setState(state State, session *domain.Session) {
	m.mu.Lock()
	m.state = state
	m.session = session
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// waitFor blocks until pred holds (evaluated under the lock) or ctx expires.
func (m *Manager) waitFor(ctx context.Context, pred func() bool) error {
	for {
		m.mu.Lock()
		if pred() {
			m.mu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		m.waiters = append(m.waiters, ch)
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) beginOp() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
}

func (m *Manager) endOp() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}
