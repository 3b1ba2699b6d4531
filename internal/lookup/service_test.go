package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

type mockStore struct {
	searchCalls int
	lastTerm    string
	lastLimit   int
	from, to    time.Time
	agenda      []models.AgendaEntry
	hits        []models.PatientSummary
	details     map[int64]models.PatientDetail
	err         error
}

func (m *mockStore) AgendaBetween(_ context.Context, _ int64, from, to time.Time) ([]models.AgendaEntry, error) {
	m.from, m.to = from, to
	return m.agenda, m.err
}

func (m *mockStore) SearchPatients(_ context.Context, term string, limit int) ([]models.PatientSummary, error) {
	m.searchCalls++
	m.lastTerm, m.lastLimit = term, limit
	return m.hits, m.err
}

func (m *mockStore) PatientDetail(_ context.Context, userID int64) (models.PatientDetail, error) {
	d, ok := m.details[userID]
	if !ok {
		return models.PatientDetail{}, storage.ErrNotFound
	}
	return d, nil
}

func TestSearchPatients_ShortTermSkipsStorage(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, time.UTC, zerolog.Nop())

	for _, term := range []string{"", "  ", "ab", " jo ", "Zé"} {
		got, err := svc.SearchPatients(context.Background(), term)
		if err != nil {
			t.Fatalf("term %q: %v", term, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("term %q: expected empty non-nil result, got %#v", term, got)
		}
	}
	if store.searchCalls != 0 {
		t.Fatalf("short terms must not reach storage, got %d calls", store.searchCalls)
	}
}

func TestSearchPatients_QueriesWithLimit(t *testing.T) {
	store := &mockStore{hits: []models.PatientSummary{{UserID: 1, FullName: "João Silva"}}}
	svc := NewService(store, time.UTC, zerolog.Nop())

	got, err := svc.SearchPatients(context.Background(), "  Joã ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || store.lastTerm != "Joã" || store.lastLimit != SearchLimit {
		t.Fatalf("unexpected call: term=%q limit=%d hits=%v", store.lastTerm, store.lastLimit, got)
	}

	store.hits = nil
	got, _ = svc.SearchPatients(context.Background(), "nobody")
	if got == nil {
		t.Fatal("no hits should still be a non-nil slice")
	}
}

func TestSearchPatients_StorageFailure(t *testing.T) {
	store := &mockStore{err: errors.New("connection reset")}
	svc := NewService(store, time.UTC, zerolog.Nop())

	_, err := svc.SearchPatients(context.Background(), "maria")
	if apperr.KindOf(err) != apperr.KindInternal || apperr.PublicMessage(err) == "connection reset" {
		t.Fatalf("expected opaque internal error, got %v", err)
	}
}

func TestTodayAgenda_UsesClinicDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	store := &mockStore{}
	svc := NewService(store, loc, zerolog.Nop())
	// 01:30 UTC on the 2nd is still the evening of the 1st in São Paulo.
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 1, 30, 0, 0, time.UTC) }

	got, err := svc.TodayAgenda(context.Background(), 7)
	if err != nil {
		t.Fatalf("agenda: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil agenda")
	}
	wantFrom := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	if !store.from.Equal(wantFrom) || !store.to.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected bounds [%s, %s)", store.from, store.to)
	}
}

func TestPatientDetails(t *testing.T) {
	store := &mockStore{details: map[int64]models.PatientDetail{3: {UserID: 3, FullName: "Ana"}}}
	svc := NewService(store, time.UTC, zerolog.Nop())

	d, err := svc.PatientDetails(context.Background(), 3)
	if err != nil || d.FullName != "Ana" {
		t.Fatalf("unexpected result %+v, %v", d, err)
	}
	if _, err := svc.PatientDetails(context.Background(), 4); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.PatientDetails(context.Background(), 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
