package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/platform/errors"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100

	wsWriteDeadline = 5 * time.Second
	wsPingInterval  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cookie session plus requireAuth gate this endpoint already.
		return true
	},
}

func (s *Server) handleListNotifications(c echo.Context) error {
	limit := defaultNotificationLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxNotificationLimit {
			return errors.ValidationError("limit must be between 1 and 100")
		}
		limit = parsed
	}

	notifications, err := s.app.RecentNotifications(c.Request().Context(), limit)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"notifications": notifications})
}

// handleNotificationStream pushes live notifications over a WebSocket until
// the client disconnects.
func (s *Server) handleNotificationStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.InternalError("failed to upgrade websocket", err)
	}
	defer conn.Close()

	updates, cancel := s.notifier.Subscribe(c.Request().Context())
	defer cancel()

	// Read pump: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(n)
			if err != nil {
				slog.Error("Failed to marshal notification", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}
