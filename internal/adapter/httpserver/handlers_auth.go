package httpserver

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pestpro/pestpro/internal/adapter/metrics"
	"github.com/pestpro/pestpro/internal/auth"
	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

// requireAuth admits a request only when its cookie carries the token of the
// currently established session. Everything else is a 401.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return errors.UnauthorizedError("invalid session")
		}

		token, ok := sess.Values[sessionKeyToken].(string)
		if !ok || token == "" {
			return errors.UnauthorizedError("not authenticated")
		}

		current := s.auth.Current()
		if current == nil || current.Token != token {
			return errors.UnauthorizedError("session expired")
		}

		c.Set("userID", current.UserID)
		return next(c)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return errors.FieldValidationError("email and password are required", map[string]string{
			"email":    "required",
			"password": "required",
		})
	}

	if err := s.auth.Login(c.Request().Context(), req.Email, req.Password); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		switch {
		case stderrors.Is(err, auth.ErrInvalidCredentials):
			return errors.UnauthorizedError("invalid email or password")
		case stderrors.Is(err, auth.ErrEmailNotConfirmed):
			return errors.UnauthorizedError("email address not confirmed")
		default:
			return errors.InternalError("failed to sign in", err)
		}
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	current := s.auth.Current()
	if current == nil {
		return errors.InternalError("no session after sign-in", nil)
	}

	if err := s.regenerateSession(c, current); err != nil {
		return errors.InternalError("failed to establish session", err)
	}

	return c.JSON(http.StatusOK, sessionResponse(current))
}

// regenerateSession replaces the pre-login cookie with a fresh session so an
// attacker-supplied cookie never survives authentication. The single Save on
// the session name overwrites whatever cookie the request carried.
func (s *Server) regenerateSession(c echo.Context, current *domain.Session) error {
	// New decodes a cookie already on the request; a corrupt one is fine
	// here because the session is rebuilt from scratch below.
	sess, err := s.sessionStore.New(c.Request(), sessionName)
	if sess == nil {
		return err
	}
	sess.Values = map[any]any{sessionKeyToken: current.Token}
	return sess.Save(c.Request(), c.Response())
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}

	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "required"
	}
	if len(req.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return errors.FieldValidationError("invalid signup request", fields)
	}

	if err := s.auth.Signup(c.Request().Context(), req.Email, req.Password, req.FullName); err != nil {
		if stderrors.Is(err, domain.ErrEmailTaken) {
			return errors.ConflictError("an account with this email already exists")
		}
		return errors.InternalError("failed to sign up", err)
	}
	metrics.SignupsTotal.Inc()

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "account created, check your email to confirm your address",
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.auth.Logout(c.Request().Context()); err != nil {
		return errors.InternalError("failed to sign out", err)
	}

	if sess, err := s.sessionStore.Get(c.Request(), sessionName); err == nil {
		sess.Options.MaxAge = -1
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return errors.InternalError("failed to clear session", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "signed out"})
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.Email == "" {
		return errors.FieldValidationError("email is required", map[string]string{"email": "required"})
	}

	if err := s.auth.ResetPassword(c.Request().Context(), req.Email); err != nil {
		return errors.InternalError("failed to request password reset", err)
	}

	// Same response whether or not the address exists.
	return c.JSON(http.StatusOK, map[string]string{
		"message": "if the address is registered, a reset email is on its way",
	})
}

type confirmEmailRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleConfirmEmail(c echo.Context) error {
	var req confirmEmailRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}

	if err := s.accounts.ConfirmEmail(c.Request().Context(), req.Token); err != nil {
		if stderrors.Is(err, auth.ErrInvalidToken) {
			return errors.ValidationError("invalid or expired confirmation token")
		}
		return errors.InternalError("failed to confirm email", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "email confirmed"})
}

type completeResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleCompleteReset(c echo.Context) error {
	var req completeResetRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if len(req.NewPassword) < 8 {
		return errors.FieldValidationError("invalid password", map[string]string{
			"newPassword": "must be at least 8 characters",
		})
	}

	if err := s.accounts.CompletePasswordReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		if stderrors.Is(err, auth.ErrInvalidToken) {
			return errors.ValidationError("invalid or expired reset token")
		}
		return errors.InternalError("failed to reset password", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) handleMe(c echo.Context) error {
	current := s.auth.Current()
	if current == nil {
		return errors.UnauthorizedError("not authenticated")
	}
	return c.JSON(http.StatusOK, sessionResponse(current))
}

func sessionResponse(session *domain.Session) map[string]any {
	return map[string]any{
		"userId":    session.UserID,
		"email":     session.Email,
		"name":      session.Name,
		"expiresAt": session.ExpiresAt,
	}
}
