package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pestpro/pestpro/internal/platform/correlation"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

func (s *Server) registerRoutes(requestMetrics echo.MiddlewareFunc) {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogLatency:  true,
		LogMethod:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			correlationID, _ := correlation.ID(c.Request().Context())
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
				"correlation_id", correlationID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
				slog.LogAttrs(context.Background(), slog.LevelError, "request failed", toAttrs(attrs)...)
			} else {
				slog.LogAttrs(context.Background(), slog.LevelInfo, "request", toAttrs(attrs)...)
			}
			return nil
		},
	}))
	s.echo.Use(correlationMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(errors.Middleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))
	if requestMetrics != nil {
		s.echo.Use(requestMetrics)
	}

	// Operational surface, unauthenticated.
	s.echo.GET("/health/startup", s.handleHealthStartup)
	s.echo.GET("/health/live", s.handleHealthLive)
	s.echo.GET("/health/ready", s.handleHealthReady)
	s.echo.GET("/version", s.handleVersion)
	if s.metricsOut != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsOut))
	}

	csrf := middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     "pestpro-csrf",
		CookieHTTPOnly: false,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: http.SameSiteLaxMode,
	})

	api := s.echo.Group("/api", csrf)

	// Auth endpoints are public and rate limited.
	authGroup := api.Group("/auth", newRateLimiter(5, 10))
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/signup", s.handleSignup)
	authGroup.POST("/reset-password", s.handleResetPassword)
	authGroup.POST("/confirm", s.handleConfirmEmail)
	authGroup.POST("/complete-reset", s.handleCompleteReset)

	guarded := api.Group("", s.requireAuth)
	guarded.POST("/auth/logout", s.handleLogout)
	guarded.GET("/auth/me", s.handleMe)

	guarded.POST("/clients", s.handleCreateClient)
	guarded.GET("/clients", s.handleListClients)
	guarded.GET("/clients/:id", s.handleGetClient)

	guarded.POST("/contracts", s.handleCreateContract)
	guarded.GET("/contracts", s.handleListContracts)
	guarded.GET("/contracts/:id", s.handleGetContract)
	guarded.POST("/contracts/:id/complete", s.handleCompleteContract)

	guarded.GET("/dashboard/metrics", s.handleDashboardMetrics)
	guarded.GET("/dashboard/chart", s.handleDashboardChart)

	guarded.GET("/notifications", s.handleListNotifications)
	guarded.GET("/notifications/stream", s.handleNotificationStream)
}

func toAttrs(kv []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		attrs = append(attrs, slog.Any(key, kv[i+1]))
	}
	return attrs
}

// correlationMiddleware stamps every request context with a correlation ID,
// reusing the caller's X-Correlation-ID header when present.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get("X-Correlation-ID")
			if id == "" {
				id = correlation.NewID()
			}
			c.SetRequest(req.WithContext(correlation.WithID(req.Context(), id)))
			c.Response().Header().Set("X-Correlation-ID", id)
			return next(c)
		}
	}
}
