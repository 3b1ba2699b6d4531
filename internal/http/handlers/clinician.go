package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
)

// ClinicalRecords reads and writes a patient's clinical history.
type ClinicalRecords interface {
	TimelineForUser(ctx context.Context, patientUserID int64) ([]models.TimelineEntry, error)
	PatientTimelineForUser(ctx context.Context, patientUserID int64) ([]models.TimelineEntry, error)
	AddConsultation(ctx context.Context, clinicianUserID int64, req dto.ConsultationRequest) (int64, error)
	IssuePrescription(ctx context.Context, clinicianUserID int64, req dto.PrescriptionRequest) (int64, error)
	AddExam(ctx context.Context, clinicianUserID int64, req dto.ExamRequest) (int64, error)
	ScheduleAppointment(ctx context.Context, clinicianUserID int64, req dto.AppointmentRequest) (int64, error)
	DashboardSummary(ctx context.Context, patientUserID int64) (dto.PatientDashboard, error)
	MyExams(ctx context.Context, patientUserID int64) ([]dto.ExamView, error)
	MyPrescriptions(ctx context.Context, patientUserID int64) ([]dto.PrescriptionView, error)
}

// PatientLookup backs the clinician's agenda and patient search.
type PatientLookup interface {
	TodayAgenda(ctx context.Context, clinicianUserID int64) ([]models.AgendaEntry, error)
	SearchPatients(ctx context.Context, term string) ([]models.PatientSummary, error)
	PatientDetails(ctx context.Context, patientUserID int64) (models.PatientDetail, error)
}

type ClinicianHandler struct {
	records ClinicalRecords
	lookup  PatientLookup
	logger  zerolog.Logger
}

func NewClinicianHandler(records ClinicalRecords, lookup PatientLookup, logger zerolog.Logger) *ClinicianHandler {
	return &ClinicianHandler{records: records, lookup: lookup, logger: logger}
}

// Routes returns the action table served at /api/clinician.
func (h *ClinicianHandler) Routes() http.Handler {
	return actions{logger: h.logger, table: map[string]action{
		"get_agenda_hoje":       get(h.agenda),
		"buscar_pacientes":      get(h.searchPatients),
		"get_paciente_detalhes": get(h.patientDetails),
		"get_prontuario":        get(h.timeline),
		"add_consulta":          post(h.addConsultation),
		"gerar_receita":         post(h.issuePrescription),
		"add_exame":             post(h.addExam),
		"agendar_consulta":      post(h.scheduleAppointment),
	}}
}

func (h *ClinicianHandler) agenda(c *call) error {
	entries, err := h.lookup.TodayAgenda(c.r.Context(), c.principal.UserID)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", entries)
	return nil
}

func (h *ClinicianHandler) searchPatients(c *call) error {
	hits, err := h.lookup.SearchPatients(c.r.Context(), c.r.URL.Query().Get("term"))
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", hits)
	return nil
}

func (h *ClinicianHandler) patientDetails(c *call) error {
	id, err := c.id()
	if err != nil {
		return err
	}
	detail, err := h.lookup.PatientDetails(c.r.Context(), id)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", detail)
	return nil
}

func (h *ClinicianHandler) timeline(c *call) error {
	id, err := c.id()
	if err != nil {
		return err
	}
	entries, err := h.records.TimelineForUser(c.r.Context(), id)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", entries)
	return nil
}

func (h *ClinicianHandler) addConsultation(c *call) error {
	var req dto.ConsultationRequest
	return created(c, &req, "Consultation recorded", func(ctx context.Context) (int64, error) {
		return h.records.AddConsultation(ctx, c.principal.UserID, req)
	})
}

func (h *ClinicianHandler) issuePrescription(c *call) error {
	var req dto.PrescriptionRequest
	return created(c, &req, "Prescription issued", func(ctx context.Context) (int64, error) {
		return h.records.IssuePrescription(ctx, c.principal.UserID, req)
	})
}

func (h *ClinicianHandler) addExam(c *call) error {
	var req dto.ExamRequest
	return created(c, &req, "Exam recorded", func(ctx context.Context) (int64, error) {
		return h.records.AddExam(ctx, c.principal.UserID, req)
	})
}

func (h *ClinicianHandler) scheduleAppointment(c *call) error {
	var req dto.AppointmentRequest
	return created(c, &req, "Appointment scheduled", func(ctx context.Context) (int64, error) {
		return h.records.ScheduleAppointment(ctx, c.principal.UserID, req)
	})
}

// created decodes the body into req, runs write and answers 201 with the new id.
func created(c *call, req any, message string, write func(ctx context.Context) (int64, error)) error {
	if err := c.decode(req); err != nil {
		return err
	}
	id, err := write(c.r.Context())
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusCreated, message, dto.CreatedResponse{ID: id})
	return nil
}
