package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/middleware"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/session"
)

// SessionAuthority opens and closes login sessions.
type SessionAuthority interface {
	Authenticate(ctx context.Context, creds session.Credentials, priorToken string) (session.Login, error)
	Destroy(ctx context.Context, token string) error
}

// AuthHandler owns login, logout and session checks.
type AuthHandler struct {
	sessions     SessionAuthority
	cookieSecure bool
	logger       zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions SessionAuthority, cookieSecure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookieSecure: cookieSecure, logger: logger}
}

// Routes returns the action table served at /api/auth.
func (h *AuthHandler) Routes() http.Handler {
	return actions{logger: h.logger, table: map[string]action{
		"login":         post(h.login),
		"logout":        {methods: []string{http.MethodPost, http.MethodGet}, handle: h.logout},
		"check_session": get(h.checkSession),
	}}
}

func (h *AuthHandler) login(c *call) error {
	var req dto.LoginRequest
	if err := c.decode(&req); err != nil {
		return err
	}
	login, err := h.sessions.Authenticate(c.r.Context(),
		session.Credentials{Email: req.Email, Password: req.Password},
		middleware.TokenFromRequest(c.r))
	if err != nil {
		return err
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    login.Token,
		Path:     "/",
		Expires:  login.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respond.JSON(c.w, http.StatusOK, "login successful", dto.LoginResponse{Principal: login.Principal, Token: login.Token})
	return nil
}

func (h *AuthHandler) logout(c *call) error {
	if token := middleware.TokenFromRequest(c.r); token != "" {
		if err := h.sessions.Destroy(c.r.Context(), token); err != nil {
			return apperr.Internal("logout failed", err)
		}
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respond.JSON(c.w, http.StatusOK, "logged out", nil)
	return nil
}

func (h *AuthHandler) checkSession(c *call) error {
	if _, ok := middleware.PrincipalFrom(c.r.Context()); !ok {
		return apperr.Unauthorized("authentication required")
	}
	respond.JSON(c.w, http.StatusOK, "session active", c.principal)
	return nil
}
