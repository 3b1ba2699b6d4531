// Package lookup serves the clinician portal's read helpers: today's agenda,
// patient search and the patient header.
package lookup

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/textnorm"
)

const (
	// MinSearchLength is the shortest term, in characters, that reaches storage.
	MinSearchLength = 3
	// SearchLimit caps the number of search hits.
	SearchLimit = 10
)

type Service struct {
	store  storage.LookupStore
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store storage.LookupStore, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, logger: logger, now: time.Now}
}

// TodayAgenda lists the clinician's appointments on the current calendar day
// of the clinic's time zone, earliest first.
func (s *Service) TodayAgenda(ctx context.Context, clinicianUserID int64) ([]models.AgendaEntry, error) {
	from, to := dayBounds(s.now(), s.loc)
	entries, err := s.store.AgendaBetween(ctx, clinicianUserID, from, to)
	if err != nil {
		return nil, apperr.Internal("could not load agenda", err)
	}
	if entries == nil {
		entries = []models.AgendaEntry{}
	}
	return entries, nil
}

// SearchPatients matches patients by name or national id. Terms shorter than
// MinSearchLength return no hits without querying.
func (s *Service) SearchPatients(ctx context.Context, term string) ([]models.PatientSummary, error) {
	t, n := textnorm.Term(term)
	if n < MinSearchLength {
		return []models.PatientSummary{}, nil
	}
	hits, err := s.store.SearchPatients(ctx, t, SearchLimit)
	if err != nil {
		return nil, apperr.Internal("could not search patients", err)
	}
	if hits == nil {
		hits = []models.PatientSummary{}
	}
	s.logger.Debug().Int("hits", len(hits)).Msg("patient search")
	return hits, nil
}

// PatientDetails returns the demographic header of a patient.
func (s *Service) PatientDetails(ctx context.Context, patientUserID int64) (models.PatientDetail, error) {
	if patientUserID <= 0 {
		return models.PatientDetail{}, apperr.Validation("patient id is required")
	}
	d, err := s.store.PatientDetail(ctx, patientUserID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.PatientDetail{}, apperr.NotFound("patient not found")
	}
	if err != nil {
		return models.PatientDetail{}, apperr.Internal("could not load patient", err)
	}
	return d, nil
}

// dayBounds returns [midnight, next midnight) of the day containing now in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
