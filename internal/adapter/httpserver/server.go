// Package httpserver exposes the application as a JSON API behind cookie
// sessions.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/config"
)

// appService is the slice of the application layer the handlers use.
type appService interface {
	CreateClient(ctx context.Context, in app.CreateClientInput) (*domain.Client, error)
	GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, []app.ContractView, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)
	CreateContract(ctx context.Context, in app.CreateContractInput) (*domain.Contract, error)
	GetContract(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error)
	ListContracts(ctx context.Context) ([]app.ContractView, error)
	CompleteContract(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error)
	DashboardMetrics(ctx context.Context) (*app.DashboardMetrics, error)
	ContractChart(ctx context.Context, kind app.ChartKind) ([]app.ChartPoint, error)
	RecentNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
}

// sessionManager is the slice of the auth manager the handlers use.
type sessionManager interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Signup(ctx context.Context, email, password, displayName string) error
	ResetPassword(ctx context.Context, email string) error
	Current() *domain.Session
	IsAuthenticated() bool
}

// accountOperator completes emailed confirmation and reset flows.
type accountOperator interface {
	ConfirmEmail(ctx context.Context, token string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app        appService
	auth       sessionManager
	accounts   accountOperator
	notifier   domain.Notifier
	metricsOut http.Handler

	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(
	cfg *config.Config,
	appSvc appService,
	auth sessionManager,
	accounts accountOperator,
	notifier domain.Notifier,
	metricsHandler http.Handler,
	requestMetrics echo.MiddlewareFunc,
	healthChecks []HealthCheck,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          appSvc,
		auth:         auth,
		accounts:     accounts,
		notifier:     notifier,
		metricsOut:   metricsHandler,
		sessionStore: setupSessionStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes(requestMetrics)
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName     = "pestpro-session"
	sessionKeyToken = "token"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
