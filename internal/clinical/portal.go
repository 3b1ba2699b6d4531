package clinical

import (
	"context"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
)

// DashboardSummary backs the patient landing page.
func (s *Service) DashboardSummary(ctx context.Context, patientUserID int64) (dto.PatientDashboard, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return dto.PatientDashboard{}, err
	}
	now := s.now()

	next, err := s.store.NextAppointment(ctx, patientID, now)
	if err != nil {
		return dto.PatientDashboard{}, apperr.Internal("could not load dashboard", err)
	}
	exams, err := s.store.ListExams(ctx, patientID)
	if err != nil {
		return dto.PatientDashboard{}, apperr.Internal("could not load dashboard", err)
	}
	active, err := s.store.CountActivePrescriptions(ctx, patientID, now.In(s.loc))
	if err != nil {
		return dto.PatientDashboard{}, apperr.Internal("could not load dashboard", err)
	}

	summary := dto.PatientDashboard{NextAppointment: next, ActivePrescriptions: active}
	if len(exams) > 0 {
		latest := exams[0]
		latest.ClinicianID = nil
		summary.LatestExam = &latest
	}
	return summary, nil
}

// MyExams lists the caller's exams, newest first, with download links for
// exams that carry an attachment.
func (s *Service) MyExams(ctx context.Context, patientUserID int64) ([]dto.ExamView, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	exams, err := s.store.ListExams(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("could not load exams", err)
	}

	out := make([]dto.ExamView, 0, len(exams))
	for _, e := range exams {
		e.ClinicianID = nil
		view := dto.ExamView{Exam: e}
		if e.AttachmentRef != nil {
			url, err := s.presigner.PresignGet(ctx, *e.AttachmentRef)
			if err != nil {
				s.logger.Warn().Err(err).Int64("exam_id", e.ID).Msg("presign attachment")
			}
			view.AttachmentURL = url
		}
		out = append(out, view)
	}
	return out, nil
}

// MyPrescriptions lists the caller's prescriptions with their derived status.
func (s *Service) MyPrescriptions(ctx context.Context, patientUserID int64) ([]dto.PrescriptionView, error) {
	patientID, err := s.resolvePatient(ctx, patientUserID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := s.store.ListPrescriptions(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("could not load prescriptions", err)
	}

	today := s.now().In(s.loc)
	out := make([]dto.PrescriptionView, 0, len(prescriptions))
	for _, p := range prescriptions {
		p.ClinicianID = 0
		p.ConsultationID = nil
		status := models.PrescriptionExpired
		if p.ActiveOn(today) {
			status = models.PrescriptionActive
		}
		out = append(out, dto.PrescriptionView{Prescription: p, Status: status})
	}
	return out, nil
}
