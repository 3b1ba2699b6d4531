package clinical

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

// PrescriptionDiagnosis labels the consultation recorded alongside a
// prescription.
const PrescriptionDiagnosis = "Prescription issued"

// AddConsultation records a consultation authored by the calling clinician.
func (s *Service) AddConsultation(ctx context.Context, clinicianUserID int64, req dto.ConsultationRequest) (int64, error) {
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if req.PatientUserID <= 0 || diagnosis == "" {
		return 0, apperr.Validation("patient id and diagnosis are required")
	}
	patientID, clinicianID, err := s.participants(ctx, req.PatientUserID, clinicianUserID)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateConsultation(ctx, models.Consultation{
		PatientID:            patientID,
		ClinicianID:          clinicianID,
		OccurredAt:           s.now(),
		Diagnosis:            diagnosis,
		Symptoms:             optional(req.Symptoms),
		RecommendedTreatment: optional(req.RecommendedTreatment),
	})
	if err != nil {
		return 0, writeErr("could not save consultation", err)
	}
	s.logger.Info().Int64("consultation_id", id).Int64("patient_id", patientID).Msg("consultation recorded")
	return id, nil
}

// IssuePrescription records a prescription consultation and one prescription
// per named medication in a single transaction. Entries without a medication
// name are skipped. It returns the consultation id.
func (s *Service) IssuePrescription(ctx context.Context, clinicianUserID int64, req dto.PrescriptionRequest) (int64, error) {
	if req.PatientUserID <= 0 {
		return 0, apperr.Validation("patient id is required")
	}
	var items []dto.MedicationItem
	for _, m := range req.Medications {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Instructions = strings.TrimSpace(m.Instructions)
		if m.Dosage == "" || m.Instructions == "" {
			return 0, apperr.Validation("dosage and instructions are required for " + m.Name)
		}
		items = append(items, m)
	}
	if len(items) == 0 {
		return 0, apperr.Validation("at least one medication is required")
	}

	now := s.now().In(s.loc)
	today := dateOf(now)
	var validUntil *time.Time
	if v := strings.TrimSpace(req.ValidUntil); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return 0, apperr.Validation("valid_until must use the YYYY-MM-DD format")
		}
		if d.Before(today) {
			return 0, apperr.Validation("valid_until cannot be in the past")
		}
		validUntil = &d
	}

	patientID, clinicianID, err := s.participants(ctx, req.PatientUserID, clinicianUserID)
	if err != nil {
		return 0, err
	}

	prescriptions := make([]models.Prescription, len(items))
	for i, m := range items {
		prescriptions[i] = models.Prescription{
			PatientID:    patientID,
			ClinicianID:  clinicianID,
			Medication:   m.Name,
			Dosage:       m.Dosage,
			Instructions: m.Instructions,
			IssuedAt:     today,
			ValidUntil:   validUntil,
		}
	}
	consultation := models.Consultation{
		PatientID:   patientID,
		ClinicianID: clinicianID,
		OccurredAt:  now,
		Diagnosis:   PrescriptionDiagnosis,
	}

	id, err := s.store.IssuePrescriptions(ctx, consultation, prescriptions)
	if err != nil {
		return 0, writeErr("could not save prescription", err)
	}
	s.logger.Info().Int64("consultation_id", id).Int("items", len(prescriptions)).Msg("prescription issued")
	return id, nil
}

// AddExam records an exam ordered by the calling clinician.
func (s *Service) AddExam(ctx context.Context, clinicianUserID int64, req dto.ExamRequest) (int64, error) {
	name := strings.TrimSpace(req.ExamName)
	if req.PatientUserID <= 0 || name == "" {
		return 0, apperr.Validation("patient id and exam name are required")
	}
	examDate, err := time.Parse(time.DateOnly, strings.TrimSpace(req.ExamDate))
	if err != nil {
		return 0, apperr.Validation("exam_date must use the YYYY-MM-DD format")
	}
	patientID, clinicianID, err := s.participants(ctx, req.PatientUserID, clinicianUserID)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateExam(ctx, models.Exam{
		PatientID:     patientID,
		ClinicianID:   &clinicianID,
		ExamName:      name,
		ExamDate:      examDate,
		Result:        optional(req.Result),
		AttachmentRef: optional(req.AttachmentRef),
	})
	if err != nil {
		return 0, writeErr("could not save exam", err)
	}
	s.logger.Info().Int64("exam_id", id).Int64("patient_id", patientID).Msg("exam recorded")
	return id, nil
}

// ScheduleAppointment books a future visit with the calling clinician.
func (s *Service) ScheduleAppointment(ctx context.Context, clinicianUserID int64, req dto.AppointmentRequest) (int64, error) {
	if req.PatientUserID <= 0 {
		return 0, apperr.Validation("patient id is required")
	}
	at, err := parseInstant(strings.TrimSpace(req.ScheduledAt), s.loc)
	if err != nil {
		return 0, apperr.Validation("scheduled_at must be RFC 3339 or YYYY-MM-DDTHH:MM")
	}
	if at.Before(s.now()) {
		return 0, apperr.Validation("scheduled_at must be in the future")
	}
	patientID, clinicianID, err := s.participants(ctx, req.PatientUserID, clinicianUserID)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateAppointment(ctx, models.Appointment{
		PatientID:   patientID,
		ClinicianID: clinicianID,
		ScheduledAt: at,
		Notes:       optional(req.Notes),
	})
	if err != nil {
		return 0, writeErr("could not schedule appointment", err)
	}
	s.logger.Info().Int64("appointment_id", id).Time("scheduled_at", at).Msg("appointment scheduled")
	return id, nil
}

func (s *Service) participants(ctx context.Context, patientUserID, clinicianUserID int64) (int64, int64, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return 0, 0, err
	}
	clinicianID, err := s.resolveClinician(ctx, clinicianUserID)
	if err != nil {
		return 0, 0, err
	}
	return patientID, clinicianID, nil
}

// parseInstant accepts RFC 3339, or a wall-clock time in loc as sent by
// datetime-local inputs.
func parseInstant(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", v, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", v, loc)
}

func writeErr(msg string, err error) error {
	if errors.Is(err, storage.ErrHasDependents) {
		return apperr.NotFound("patient or clinician no longer exists")
	}
	return apperr.Internal(msg, err)
}

// dateOf returns the calendar date of t as midnight UTC, matching how DATE
// columns are read back.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
