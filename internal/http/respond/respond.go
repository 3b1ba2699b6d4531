package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Status: StatusError, Message: message})
}

// FromError maps err to its status code and client-safe message. The full
// error chain is logged, never written to the client.
func FromError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := apperr.Status(err)
	evt := logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).Str("kind", string(apperr.KindOf(err))).Int("status", status).Msg("request failed")
	Error(w, status, apperr.PublicMessage(err))
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("respond: encode payload failed")
	}
}
