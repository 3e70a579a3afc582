package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

func (s *Server) handleCreateContract(c echo.Context) error {
	var in app.CreateContractInput
	if err := c.Bind(&in); err != nil {
		return errors.ValidationError("invalid request body")
	}

	contract, err := s.app.CreateContract(c.Request().Context(), in)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, contract)
}

func (s *Server) handleListContracts(c echo.Context) error {
	filter, err := contractFilterFromQuery(c)
	if err != nil {
		return err
	}

	contracts, err := s.app.ListContracts(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"contracts": app.FilterViews(contracts, filter)})
}

func contractFilterFromQuery(c echo.Context) (app.ContractFilter, error) {
	filter := app.ContractFilter{Search: c.QueryParam("q")}

	switch status := c.QueryParam("status"); status {
	case "", "all":
	case string(domain.StatusPending), string(domain.StatusDueToday), string(domain.StatusCompleted):
		filter.Status = domain.ContractStatus(status)
	default:
		return app.ContractFilter{}, errors.ValidationError("unknown status filter: " + status)
	}
	return filter, nil
}

func (s *Server) handleGetContract(c echo.Context) error {
	contractID, err := parseIDParam(c)
	if err != nil {
		return mapServiceError(err)
	}

	view, err := s.app.GetContract(c.Request().Context(), contractID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleCompleteContract(c echo.Context) error {
	contractID, err := parseIDParam(c)
	if err != nil {
		return mapServiceError(err)
	}

	view, err := s.app.CompleteContract(c.Request().Context(), contractID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleDashboardMetrics(c echo.Context) error {
	m, err := s.app.DashboardMetrics(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleDashboardChart(c echo.Context) error {
	kind := app.ChartKind(c.QueryParam("kind"))
	if kind == "" {
		kind = app.ChartWeekly
	}

	points, err := s.app.ContractChart(c.Request().Context(), kind)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"kind":   kind,
		"points": points,
	})
}
