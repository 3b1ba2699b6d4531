// Package clinical assembles and records a patient's clinical history:
// consultations, prescriptions, exams and appointments.
package clinical

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/blobstore"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

type Service struct {
	store     storage.ClinicalStore
	presigner blobstore.Presigner
	loc       *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(store storage.ClinicalStore, presigner blobstore.Presigner, loc *time.Location, logger zerolog.Logger) *Service {
	if presigner == nil {
		presigner = blobstore.NopPresigner{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, presigner: presigner, loc: loc, logger: logger, now: time.Now}
}

// newerFirst orders entries by time descending. Entries sharing a timestamp
// are ordered consultation, prescription, exam, and then by id descending.
func newerFirst(a, b models.TimelineEntry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	if a.Kind.Rank() != b.Kind.Rank() {
		return a.Kind.Rank() < b.Kind.Rank()
	}
	return a.RecordID() > b.RecordID()
}

// Timeline merges a patient's consultations, prescriptions and exams into one
// feed, newest first. It is recomputed on every call.
func (s *Service) Timeline(ctx context.Context, patientID int64) ([]models.TimelineEntry, error) {
	consultations, err := s.store.ListConsultations(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("could not load clinical record", err)
	}
	prescriptions, err := s.store.ListPrescriptions(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("could not load clinical record", err)
	}
	exams, err := s.store.ListExams(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("could not load clinical record", err)
	}

	return MergeSorted(newerFirst,
		tag(consultations, models.ConsultationEntry),
		tag(prescriptions, func(p models.Prescription) models.TimelineEntry {
			e := models.PrescriptionEntry(p)
			e.OccurredAt = s.clinicDay(p.IssuedAt)
			return e
		}),
		tag(exams, func(x models.Exam) models.TimelineEntry {
			e := models.ExamEntry(x)
			e.OccurredAt = s.clinicDay(x.ExamDate)
			return e
		}),
	), nil
}

// clinicDay places a DATE value, read back as midnight UTC, at the start of
// that calendar day in the clinic's time zone so it orders against
// consultation instants the way the clinic's calendar does.
func (s *Service) clinicDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, s.loc)
}

// PatientTimeline is Timeline with clinician-only fields removed.
func (s *Service) PatientTimeline(ctx context.Context, patientID int64) ([]models.TimelineEntry, error) {
	entries, err := s.Timeline(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = redact(entries[i])
	}
	return entries, nil
}

// TimelineForUser resolves a patient user id before building the timeline.
func (s *Service) TimelineForUser(ctx context.Context, patientUserID int64) ([]models.TimelineEntry, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	return s.Timeline(ctx, patientID)
}

// PatientTimelineForUser is the patient portal's view of their own record.
func (s *Service) PatientTimelineForUser(ctx context.Context, patientUserID int64) ([]models.TimelineEntry, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	return s.PatientTimeline(ctx, patientID)
}

func (s *Service) resolvePatient(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, apperr.Validation("patient id is required")
	}
	id, err := s.store.ResolvePatientProfile(ctx, userID)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, storage.ErrNotFound):
		return 0, apperr.NotFound("patient not found")
	case errors.Is(err, storage.ErrProfileMissing):
		return 0, apperr.Integrity("patient profile is missing", err)
	default:
		return 0, apperr.Internal("could not resolve patient", err)
	}
}

func (s *Service) resolveClinician(ctx context.Context, userID int64) (int64, error) {
	id, err := s.store.ResolveClinicianProfile(ctx, userID)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, storage.ErrNotFound):
		return 0, apperr.Forbidden("clinician access required")
	case errors.Is(err, storage.ErrProfileMissing):
		return 0, apperr.Integrity("clinician profile is missing", err)
	default:
		return 0, apperr.Internal("could not resolve clinician", err)
	}
}

func tag[T any](records []T, wrap func(T) models.TimelineEntry) []models.TimelineEntry {
	out := make([]models.TimelineEntry, len(records))
	for i, r := range records {
		out[i] = wrap(r)
	}
	return out
}

// redact drops treatment notes and internal keys that patients do not see.
func redact(e models.TimelineEntry) models.TimelineEntry {
	switch e.Kind {
	case models.KindConsultation:
		c := *e.Consultation
		c.RecommendedTreatment = nil
		c.ClinicianID = 0
		e.Consultation = &c
	case models.KindPrescription:
		p := *e.Prescription
		p.ClinicianID = 0
		p.ConsultationID = nil
		e.Prescription = &p
	case models.KindExam:
		x := *e.Exam
		x.ClinicianID = nil
		e.Exam = &x
	}
	return e
}
