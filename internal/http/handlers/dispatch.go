package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/middleware"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

const maxBodyBytes = 1 << 20

// call is one dispatched request.
type call struct {
	w         http.ResponseWriter
	r         *http.Request
	principal models.Principal
	body      []byte
}

// decode unmarshals the JSON body into v.
func (c *call) decode(v any) error {
	if len(c.body) == 0 {
		return apperr.Validation("request body is required")
	}
	if err := json.Unmarshal(c.body, v); err != nil {
		return apperr.Validation("invalid JSON payload")
	}
	return nil
}

// id reads a positive integer id from the query string, or from the JSON
// body's "id" field for POST requests.
func (c *call) id() (int64, error) {
	raw := strings.TrimSpace(c.r.URL.Query().Get("id"))
	if raw == "" && len(c.body) > 0 {
		var body struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal(c.body, &body); err == nil {
			raw = body.ID.String()
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("a valid id is required")
	}
	return id, nil
}

type action struct {
	methods []string
	handle  func(c *call) error
}

func get(fn func(c *call) error) action  { return action{methods: []string{http.MethodGet}, handle: fn} }
func post(fn func(c *call) error) action { return action{methods: []string{http.MethodPost}, handle: fn} }

// actions routes requests on the "action" discriminator, taken from the query
// string or, for POST requests, the JSON body.
type actions struct {
	table  map[string]action
	logger zerolog.Logger
}

func (a actions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Method == http.MethodPost {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			respond.Error(w, http.StatusBadRequest, "could not read request body")
			return
		}
		body = b
	}

	name := r.URL.Query().Get("action")
	if name == "" && len(body) > 0 {
		var envelope struct {
			Action string `json:"action"`
		}
		_ = json.Unmarshal(body, &envelope)
		name = envelope.Action
	}

	act, ok := a.table[name]
	if !ok {
		respond.Error(w, http.StatusNotFound, "unknown action")
		return
	}
	if !slices.Contains(act.methods, r.Method) {
		w.Header().Set("Allow", strings.Join(act.methods, ", "))
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	p, _ := middleware.PrincipalFrom(r.Context())
	if err := act.handle(&call{w: w, r: r, principal: p, body: body}); err != nil {
		respond.FromError(w, a.logger.With().Str("action", name).Logger(), err)
	}
}
