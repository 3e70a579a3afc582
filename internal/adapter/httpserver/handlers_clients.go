package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/app"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

func (s *Server) handleCreateClient(c echo.Context) error {
	var in app.CreateClientInput
	if err := c.Bind(&in); err != nil {
		return errors.ValidationError("invalid request body")
	}

	client, err := s.app.CreateClient(c.Request().Context(), in)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, client)
}

func (s *Server) handleListClients(c echo.Context) error {
	clients, err := s.app.ListClients(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"clients": clients})
}

func (s *Server) handleGetClient(c echo.Context) error {
	clientID, err := parseIDParam(c)
	if err != nil {
		return mapServiceError(err)
	}

	client, contracts, err := s.app.GetClient(c.Request().Context(), clientID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"client":    client,
		"contracts": contracts,
	})
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ValidationError("invalid id")
	}
	return id, nil
}
