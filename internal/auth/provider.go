// Package auth owns the authenticated-user state for the process: the
// identity provider abstraction, the session manager that mirrors provider
// state, and the local password-based provider implementation.
package auth

import (
	"context"
	"errors"

	"github.com/pestpro/pestpro/internal/domain"
)

// Sentinel errors surfaced by identity providers.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// EventType identifies a session-change notification.
type EventType string

const (
	EventSignedIn  EventType = "SIGNED_IN"
	EventSignedOut EventType = "SIGNED_OUT"
)

// Event is a session-change notification emitted by a Provider.
type Event struct {
	Type    EventType
	Session *domain.Session // nil for SIGNED_OUT
}

// Handler consumes session-change events. Handlers for a given subscription
// are invoked sequentially, in emission order; an event's handler runs to
// completion before the next event is delivered.
type Handler func(Event)

// Provider is the external identity collaborator: it verifies credentials,
// issues sessions, and notifies subscribers of session changes.
type Provider interface {
	// GetSession returns the persisted session, or (nil, nil) when absent.
	GetSession(ctx context.Context) (*domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, metadata SignUpMetadata) error
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	// Subscribe registers a handler for session-change events and returns
	// an unsubscribe function.
	Subscribe(h Handler) (unsubscribe func())
}

// SignUpMetadata is profile data attached at account creation.
type SignUpMetadata struct {
	FullName string
}

// AccountOperator covers the account operations the local provider offers
// beyond the Provider contract: completing email confirmation and password
// resets from emailed links.
type AccountOperator interface {
	ConfirmEmail(ctx context.Context, token string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

// Mailer delivers account emails. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}
