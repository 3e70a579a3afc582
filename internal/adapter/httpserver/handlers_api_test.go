package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

func TestCreateClient_Success(t *testing.T) {
	created := &domain.Client{ID: uuid.New(), Name: "Asha Rao", Email: "asha@example.com"}
	appSvc := &mockAppService{
		CreateClientFunc: func(ctx context.Context, in app.CreateClientInput) (*domain.Client, error) {
			assert.Equal(t, "Asha Rao", in.Name)
			return created, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	body := `{"name":"Asha Rao","email":"asha@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleCreateClient(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha Rao")
}

func TestCreateClient_ValidationErrorPassesThrough(t *testing.T) {
	appSvc := &mockAppService{
		CreateClientFunc: func(ctx context.Context, in app.CreateClientInput) (*domain.Client, error) {
			return nil, errors.FieldValidationError("invalid client", map[string]string{"name": "required"})
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	structured := requireErrorType(t, srv.handleCreateClient(c), errors.TypeValidation)
	assert.Contains(t, structured.Fields, "name")
}

func TestListClients(t *testing.T) {
	appSvc := &mockAppService{
		ListClientsFunc: func(ctx context.Context) ([]*domain.Client, error) {
			return []*domain.Client{
				{ID: uuid.New(), Name: "Asha Rao"},
				{ID: uuid.New(), Name: "Meera Pillai"},
			}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleListClients(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha Rao")
	assert.Contains(t, rec.Body.String(), "Meera Pillai")
}

func TestGetClient_NotFound(t *testing.T) {
	appSvc := &mockAppService{
		GetClientFunc: func(ctx context.Context, clientID uuid.UUID) (*domain.Client, []app.ContractView, error) {
			return nil, nil, domain.ErrClientNotFound
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/clients/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	requireErrorType(t, srv.handleGetClient(c), errors.TypeNotFound)
}

func TestGetClient_InvalidID(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/clients/banana", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("banana")

	requireErrorType(t, srv.handleGetClient(c), errors.TypeValidation)
}

func TestGetClient_IncludesContracts(t *testing.T) {
	clientID := uuid.New()
	appSvc := &mockAppService{
		GetClientFunc: func(ctx context.Context, id uuid.UUID) (*domain.Client, []app.ContractView, error) {
			require.Equal(t, clientID, id)
			client := &domain.Client{ID: clientID, Name: "Asha Rao", ActiveContracts: 1}
			contracts := []app.ContractView{{ID: uuid.New(), ClientID: clientID, Status: domain.StatusPending}}
			return client, contracts, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/clients/"+clientID.String(), nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(clientID.String())

	require.NoError(t, srv.handleGetClient(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"contracts"`)
	assert.Contains(t, rec.Body.String(), string(domain.StatusPending))
}

func TestCreateContract_Success(t *testing.T) {
	contract := &domain.Contract{ID: uuid.New(), ClientID: uuid.New(), Amount: 1500}
	appSvc := &mockAppService{
		CreateContractFunc: func(ctx context.Context, in app.CreateContractInput) (*domain.Contract, error) {
			assert.Equal(t, 90, in.FrequencyDays)
			return contract, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	body := `{"clientId":"` + contract.ClientID.String() + `","serviceTypes":["General Pest Control"],"lastServiceDate":"2024-01-01T00:00:00Z","amount":1500,"frequencyDays":90}`
	req := httptest.NewRequest(http.MethodPost, "/api/contracts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleCreateContract(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListContracts_StatusFilter(t *testing.T) {
	appSvc := &mockAppService{
		ListContractsFunc: func(ctx context.Context) ([]app.ContractView, error) {
			return []app.ContractView{
				{ID: uuid.New(), ClientName: "Asha Rao", Status: domain.StatusPending},
				{ID: uuid.New(), ClientName: "Meera Pillai", Status: domain.StatusCompleted},
			}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/contracts?status=pending", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleListContracts(c))
	assert.Contains(t, rec.Body.String(), "Asha Rao")
	assert.NotContains(t, rec.Body.String(), "Meera Pillai")
}

func TestListContracts_UnknownStatus(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/contracts?status=overdue", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	requireErrorType(t, srv.handleListContracts(c), errors.TypeValidation)
}

func TestCompleteContract_Conflict(t *testing.T) {
	appSvc := &mockAppService{
		CompleteContractFunc: func(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error) {
			return nil, domain.ErrContractCompleted
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/contracts/"+id+"/complete", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	requireErrorType(t, srv.handleCompleteContract(c), errors.TypeConflict)
}

func TestCompleteContract_Success(t *testing.T) {
	id := uuid.New()
	appSvc := &mockAppService{
		CompleteContractFunc: func(ctx context.Context, contractID uuid.UUID) (*app.ContractView, error) {
			require.Equal(t, id, contractID)
			return &app.ContractView{ID: id, Status: domain.StatusCompleted}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/contracts/"+id.String()+"/complete", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, srv.handleCompleteContract(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.StatusCompleted))
}

func TestDashboardMetrics(t *testing.T) {
	appSvc := &mockAppService{
		DashboardMetricsFunc: func(ctx context.Context) (*app.DashboardMetrics, error) {
			return &app.DashboardMetrics{TotalClients: 3, ActiveContracts: 5, DueToday: 1}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/metrics", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleDashboardMetrics(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalClients":3`)
}

func TestDashboardChart_DefaultsToWeekly(t *testing.T) {
	var gotKind app.ChartKind
	appSvc := &mockAppService{
		ContractChartFunc: func(ctx context.Context, kind app.ChartKind) ([]app.ChartPoint, error) {
			gotKind = kind
			return []app.ChartPoint{{Label: "Mon", Value: 2}}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/chart", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleDashboardChart(c))
	assert.Equal(t, app.ChartWeekly, gotKind)
	assert.Contains(t, rec.Body.String(), "Mon")
}

func TestDashboardChart_UnknownKind(t *testing.T) {
	appSvc := &mockAppService{
		ContractChartFunc: func(ctx context.Context, kind app.ChartKind) ([]app.ChartPoint, error) {
			return nil, errors.ValidationError("unknown chart kind")
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/chart?kind=hourly", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	requireErrorType(t, srv.handleDashboardChart(c), errors.TypeValidation)
}

func TestListNotifications(t *testing.T) {
	appSvc := &mockAppService{
		RecentNotificationsFunc: func(ctx context.Context, limit int) ([]domain.Notification, error) {
			assert.Equal(t, defaultNotificationLimit, limit)
			return []domain.Notification{
				{ID: uuid.New(), Title: "Contract added", Level: domain.LevelSuccess, CreatedAt: time.Now()},
			}, nil
		},
	}
	srv := newTestServer(appSvc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleListNotifications(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contract added")
}

func TestListNotifications_BadLimit(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit=9000", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	requireErrorType(t, srv.handleListNotifications(c), errors.TypeValidation)
}

func TestHealthReady_FailingCheck(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)
	srv.healthChecks = []HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error { return nil }},
		{Name: "redis", Check: func(ctx context.Context) error { return context.DeadlineExceeded }},
	}

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleHealthReady(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleHealthLive(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(&mockAppService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleVersion(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}
