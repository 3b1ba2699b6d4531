package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, "ok", map[string]int{"id": 3})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	env := decode(t, rec)
	if env.Status != StatusSuccess || env.Message != "ok" || env.Data == nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestError_OmitsData(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "unknown action")
	if strings.Contains(rec.Body.String(), `"data"`) {
		t.Fatalf("error envelope should not carry data: %s", rec.Body.String())
	}
}

func TestFromError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest},
		{apperr.Unauthorized("authentication required"), http.StatusUnauthorized},
		{apperr.Forbidden("forbidden"), http.StatusForbidden},
		{apperr.NotFound("user not found"), http.StatusNotFound},
		{apperr.Dependency("user has clinical records", errors.New("fk")), http.StatusConflict},
		{apperr.Integrity("duplicate", errors.New("23505")), http.StatusInternalServerError},
		{apperr.Provisioning("could not create", errors.New("tx")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		FromError(rec, zerolog.Nop(), tc.err)
		if rec.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if env := decode(t, rec); env.Status != StatusError {
			t.Errorf("%v: expected error status, got %q", tc.err, env.Status)
		}
	}
}

func TestFromError_DoesNotLeakCause(t *testing.T) {
	cause := fmt.Errorf("insert user: duplicate key value violates unique constraint \"users_email_unique_idx\"")
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	rec := httptest.NewRecorder()
	FromError(rec, logger, apperr.Integrity("email or national id already registered", cause))

	if strings.Contains(rec.Body.String(), "users_email_unique_idx") {
		t.Fatalf("constraint name leaked to client: %s", rec.Body.String())
	}
	if !strings.Contains(logBuf.String(), "users_email_unique_idx") {
		t.Fatalf("expected cause in server log, got %s", logBuf.String())
	}

	rec = httptest.NewRecorder()
	FromError(rec, zerolog.Nop(), errors.New("pq: connection refused"))
	if env := decode(t, rec); env.Message != "internal server error" {
		t.Fatalf("untyped error text leaked: %q", env.Message)
	}
}
