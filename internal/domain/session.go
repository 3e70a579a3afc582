package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session represents the currently authenticated actor. It exists if and
// only if the application considers the user authenticated.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Token     string
	ExpiresAt time.Time
}

// Profile enriches a Session with a display name and avatar.
type Profile struct {
	UserID    uuid.UUID
	FullName  string
	AvatarURL string
}

// ProfileStore looks up the profile record associated with an identity.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

// Account is an identity record held by the local identity provider.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Confirmed    bool
	ConfirmToken string
	ResetToken   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository abstracts identity persistence for the local provider.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, accountID uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByConfirmToken(ctx context.Context, token string) (*Account, error)
	GetByResetToken(ctx context.Context, token string) (*Account, error)
	Confirm(ctx context.Context, accountID uuid.UUID) error
	SetResetToken(ctx context.Context, accountID uuid.UUID, token string) error
	UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string) error

	// Persisted provider sessions, restored on startup.
	SaveSession(ctx context.Context, session *Session) error
	GetSessionByToken(ctx context.Context, token string) (*Session, error)
	GetLatestSession(ctx context.Context, now time.Time) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
}
