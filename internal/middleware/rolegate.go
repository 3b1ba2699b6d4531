package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

// Authorize succeeds only when the principal holds exactly the required role.
// Roles are flat: an administrator is not implicitly a clinician or patient.
func Authorize(p models.Principal, required models.Role) error {
	if p.Role != required {
		return apperr.Forbidden("forbidden")
	}
	return nil
}

// RequireRole rejects anonymous callers with 401 and callers of any other role
// with 403 before the wrapped handler runs.
func RequireRole(role models.Role, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				respond.FromError(w, logger, apperr.Unauthorized("authentication required"))
				return
			}
			if err := Authorize(p, role); err != nil {
				logger.Warn().Int64("user_id", p.UserID).Str("role", string(p.Role)).Str("required", string(role)).Msg("role gate denied")
				respond.Error(w, apperr.Status(err), apperr.PublicMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
