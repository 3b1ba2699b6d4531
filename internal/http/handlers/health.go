package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
)

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and database reachability.
type HealthHandler struct {
	db        Pinger
	startedAt time.Time
	logger    zerolog.Logger
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(db Pinger, startedAt time.Time, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{db: db, startedAt: startedAt, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	uptime := time.Since(h.startedAt).Truncate(time.Second).String()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("health: database ping failed")
		respond.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", map[string]string{
		"status":   "ok",
		"database": "ok",
		"uptime":   uptime,
	})
}
