package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/adapter/memory"
	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/config"
)

type mockAppService struct {
	CreateClientFunc        func(ctx context.Context, in app.CreateClientInput) (*domain.Client, error)
	GetClientFunc           func(ctx context.Context, clientID uuid.UUID) (*domain.Client, []app.ContractView, error)
	ListClientsFunc         func(ctx context.Context) ([]*domain.Client, error)
	CreateContractFunc      func(ctx context.Context, in app.CreateContractInput) (*domain.Contract, error)
	GetContractFunc         func(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error)
	ListContractsFunc       func(ctx context.Context) ([]app.ContractView, error)
	CompleteContractFunc    func(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error)
	DashboardMetricsFunc    func(ctx context.Context) (*app.DashboardMetrics, error)
	ContractChartFunc       func(ctx context.Context, kind app.ChartKind) ([]app.ChartPoint, error)
	RecentNotificationsFunc func(ctx context.Context, limit int) ([]domain.Notification, error)
}

func (m *mockAppService) CreateClient(ctx context.Context, in app.CreateClientInput) (*domain.Client, error) {
	return m.CreateClientFunc(ctx, in)
}

func (m *mockAppService) GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, []app.ContractView, error) {
	return m.GetClientFunc(ctx, clientID)
}

func (m *mockAppService) ListClients(ctx context.Context) ([]*domain.Client, error) {
	return m.ListClientsFunc(ctx)
}

func (m *mockAppService) CreateContract(ctx context.Context, in app.CreateContractInput) (*domain.Contract, error) {
	return m.CreateContractFunc(ctx, in)
}

func (m *mockAppService) GetContract(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error) {
	return m.GetContractFunc(ctx, contractID)
}

func (m *mockAppService) ListContracts(ctx context.Context) ([]app.ContractView, error) {
	return m.ListContractsFunc(ctx)
}

func (m *mockAppService) CompleteContract(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error) {
	return m.CompleteContractFunc(ctx, contractID)
}

func (m *mockAppService) DashboardMetrics(ctx context.Context) (*app.DashboardMetrics, error) {
	return m.DashboardMetricsFunc(ctx)
}

func (m *mockAppService) ContractChart(ctx context.Context, kind app.ChartKind) ([]app.ChartPoint, error) {
	return m.ContractChartFunc(ctx, kind)
}

func (m *mockAppService) RecentNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	return m.RecentNotificationsFunc(ctx, limit)
}

type mockSessionManager struct {
	LoginFunc         func(ctx context.Context, email, password string) error
	LogoutFunc        func(ctx context.Context) error
	SignupFunc        func(ctx context.Context, email, password, displayName string) error
	ResetPasswordFunc func(ctx context.Context, email string) error
	CurrentFunc       func() *domain.Session
}

func (m *mockSessionManager) Login(ctx context.Context, email, password string) error {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockSessionManager) Logout(ctx context.Context) error {
	return m.LogoutFunc(ctx)
}

func (m *mockSessionManager) Signup(ctx context.Context, email, password, displayName string) error {
	return m.SignupFunc(ctx, email, password, displayName)
}

func (m *mockSessionManager) ResetPassword(ctx context.Context, email string) error {
	return m.ResetPasswordFunc(ctx, email)
}

func (m *mockSessionManager) Current() *domain.Session {
	if m.CurrentFunc != nil {
		return m.CurrentFunc()
	}
	return nil
}

func (m *mockSessionManager) IsAuthenticated() bool {
	return m.Current() != nil
}

type mockAccountOperator struct {
	ConfirmEmailFunc          func(ctx context.Context, token string) error
	CompletePasswordResetFunc func(ctx context.Context, token, newPassword string) error
}

func (m *mockAccountOperator) ConfirmEmail(ctx context.Context, token string) error {
	return m.ConfirmEmailFunc(ctx, token)
}

func (m *mockAccountOperator) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	return m.CompletePasswordResetFunc(ctx, token, newPassword)
}

func testSession() *domain.Session {
	return &domain.Session{
		UserID:    uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Email:     "asha@example.com",
		Name:      "Asha Rao",
		Token:     "session-token-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newTestServer(appSvc appService, auth sessionManager, accounts accountOperator) *Server {
	cfg := &config.Config{
		AppEnv:        "test",
		Port:          "8080",
		SessionSecret: "test-secret-key-32-bytes-long!!!",
		SessionMaxAge: time.Hour,
	}

	if auth == nil {
		auth = &mockSessionManager{}
	}

	srv := &Server{
		echo:         echo.New(),
		config:       cfg,
		app:          appSvc,
		auth:         auth,
		accounts:     accounts,
		notifier:     memory.NewNotifier(),
		sessionStore: setupSessionStore(cfg),
		startTime:    time.Now(),
	}
	srv.registerRoutes(nil)
	return srv
}

// sessionCookies bakes a session cookie carrying token, for attaching to a
// follow-up request the way a browser would.
func sessionCookies(s *Server, token string) []*http.Cookie {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, _ := s.sessionStore.New(req, sessionName)
	sess.Values[sessionKeyToken] = token
	_ = sess.Save(req, rec)
	return rec.Result().Cookies()
}
