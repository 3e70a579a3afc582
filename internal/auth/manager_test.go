package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pestpro/pestpro/internal/domain"
)

type fakeProvider struct {
	GetSessionFunc            func(ctx context.Context) (*domain.Session, error)
	SignInWithPasswordFunc    func(ctx context.Context, email, password string) (*domain.Session, error)
	SignUpFunc                func(ctx context.Context, email, password string, metadata SignUpMetadata) error
	SignOutFunc               func(ctx context.Context) error
	ResetPasswordForEmailFunc func(ctx context.Context, email, redirectTo string) error

	handler Handler
}

func (f *fakeProvider) GetSession(ctx context.Context) (*domain.Session, error) {
	if f.GetSessionFunc != nil {
		return f.GetSessionFunc(ctx)
	}
	return nil, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	return f.SignInWithPasswordFunc(ctx, email, password)
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, metadata SignUpMetadata) error {
	return f.SignUpFunc(ctx, email, password, metadata)
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	return f.SignOutFunc(ctx)
}

func (f *fakeProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return f.ResetPasswordForEmailFunc(ctx, email, redirectTo)
}

func (f *fakeProvider) Subscribe(h Handler) func() {
	f.handler = h
	return func() { f.handler = nil }
}

func (f *fakeProvider) emit(e Event) {
	f.handler(e)
}

type fakeProfiles struct {
	GetProfileFunc func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if f.GetProfileFunc != nil {
		return f.GetProfileFunc(ctx, userID)
	}
	return nil, nil
}

func testSession() *domain.Session {
	return &domain.Session{
		UserID:    uuid.New(),
		Email:     "owner@pestpro.test",
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestManagerInitializeWithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")

	require.NoError(t, m.Initialize(context.Background()))

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.IsLoading())
	assert.Nil(t, m.Current())
	assert.NotNil(t, provider.handler, "subscription should be registered")
}

func TestManagerInitializeRestoresSession(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{
		GetSessionFunc: func(ctx context.Context) (*domain.Session, error) {
			return session, nil
		},
	}
	profiles := &fakeProfiles{
		GetProfileFunc: func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{UserID: userID, FullName: "Asha Rao"}, nil
		},
	}
	m := NewManager(provider, profiles, "https://app.test/reset")

	require.NoError(t, m.Initialize(context.Background()))

	require.True(t, m.IsAuthenticated())
	current := m.Current()
	require.NotNil(t, current)
	assert.Equal(t, session.UserID, current.UserID)
	assert.Equal(t, "Asha Rao", current.Name)
}

func TestManagerInitializeRestoreError(t *testing.T) {
	provider := &fakeProvider{
		GetSessionFunc: func(ctx context.Context) (*domain.Session, error) {
			return nil, errors.New("store unavailable")
		},
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")

	err := m.Initialize(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.IsAuthenticated())
}

func TestManagerProfileFallbackName(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{
		GetSessionFunc: func(ctx context.Context) (*domain.Session, error) {
			return session, nil
		},
	}
	profiles := &fakeProfiles{
		GetProfileFunc: func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
			return nil, errors.New("profiles table missing")
		},
	}
	m := NewManager(provider, profiles, "https://app.test/reset")

	require.NoError(t, m.Initialize(context.Background()))

	require.NotNil(t, m.Current())
	assert.Equal(t, "User", m.Current().Name)
}

func TestManagerLoginWaitsForEvent(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{}
	provider.SignInWithPasswordFunc = func(ctx context.Context, email, password string) (*domain.Session, error) {
		// Provider notifies before returning, as LocalProvider does.
		provider.emit(Event{Type: EventSignedIn, Session: session})
		return session, nil
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Login(context.Background(), "owner@pestpro.test", "secret"))

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, session.Token, m.Current().Token)
}

func TestManagerLoginEventArrivesConcurrently(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{}
	provider.SignInWithPasswordFunc = func(ctx context.Context, email, password string) (*domain.Session, error) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			provider.emit(Event{Type: EventSignedIn, Session: session})
		}()
		return session, nil
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Login(context.Background(), "owner@pestpro.test", "secret"))
	assert.True(t, m.IsAuthenticated())
}

func TestManagerLoginBadCredentials(t *testing.T) {
	provider := &fakeProvider{}
	provider.SignInWithPasswordFunc = func(ctx context.Context, email, password string) (*domain.Session, error) {
		return nil, ErrInvalidCredentials
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	err := m.Login(context.Background(), "owner@pestpro.test", "wrong")

	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.IsLoading(), "failed login must clear the loading flag")
}

func TestManagerSignupNeverEstablishesSession(t *testing.T) {
	var gotMetadata SignUpMetadata
	provider := &fakeProvider{}
	provider.SignUpFunc = func(ctx context.Context, email, password string, metadata SignUpMetadata) error {
		gotMetadata = metadata
		return nil
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Signup(context.Background(), "new@pestpro.test", "secret", "New Owner"))

	assert.Equal(t, "New Owner", gotMetadata.FullName)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, m.State())
}

func TestManagerLogoutClearsSession(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{
		GetSessionFunc: func(ctx context.Context) (*domain.Session, error) {
			return session, nil
		},
	}
	provider.SignOutFunc = func(ctx context.Context) error {
		provider.emit(Event{Type: EventSignedOut})
		return nil
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))
	require.True(t, m.IsAuthenticated())

	require.NoError(t, m.Logout(context.Background()))

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.Current())
}

func TestManagerResetPasswordDelegates(t *testing.T) {
	var gotEmail, gotRedirect string
	provider := &fakeProvider{}
	provider.ResetPasswordForEmailFunc = func(ctx context.Context, email, redirectTo string) error {
		gotEmail = email
		gotRedirect = redirectTo
		return nil
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.ResetPassword(context.Background(), "owner@pestpro.test"))

	assert.Equal(t, "owner@pestpro.test", gotEmail)
	assert.Equal(t, "https://app.test/reset", gotRedirect)
}

func TestManagerCurrentReturnsCopy(t *testing.T) {
	session := testSession()
	provider := &fakeProvider{
		GetSessionFunc: func(ctx context.Context) (*domain.Session, error) {
			return session, nil
		},
	}
	m := NewManager(provider, &fakeProfiles{}, "https://app.test/reset")
	require.NoError(t, m.Initialize(context.Background()))

	first := m.Current()
	first.Email = "tampered@pestpro.test"

	assert.Equal(t, "owner@pestpro.test", m.Current().Email)
}
