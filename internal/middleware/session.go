package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

// CookieName is the session cookie set at login.
const CookieName = "chims_session"

type contextKey string

const principalKey contextKey = "principal"

// PrincipalResolver turns a session token into the caller's principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (models.Principal, error)
}

// TokenFromRequest reads the session token from the cookie, falling back to a
// bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal attached by Session, if any.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// Session attaches the caller's principal to the request context when a valid
// token is presented. Requests without one pass through anonymously; route
// guards decide whether that is acceptable.
func Session(resolver PrincipalResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := resolver.Resolve(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(WithPrincipal(r.Context(), p))
			case errors.Is(err, apperr.ErrUnauthorized):
			default:
				respond.FromError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
