package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
)

// PatientHandler serves the patient portal. Every action is scoped to the
// caller; no patient id is accepted from the request.
type PatientHandler struct {
	records ClinicalRecords
	logger  zerolog.Logger
}

func NewPatientHandler(records ClinicalRecords, logger zerolog.Logger) *PatientHandler {
	return &PatientHandler{records: records, logger: logger}
}

// Routes returns the action table served at /api/patient.
func (h *PatientHandler) Routes() http.Handler {
	return actions{logger: h.logger, table: map[string]action{
		"get_dashboard_summary": get(h.dashboard),
		"get_my_prontuario":     get(h.timeline),
		"get_my_exames":         get(h.exams),
		"get_my_receitas":       get(h.prescriptions),
	}}
}

func (h *PatientHandler) dashboard(c *call) error {
	summary, err := h.records.DashboardSummary(c.r.Context(), c.principal.UserID)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", summary)
	return nil
}

func (h *PatientHandler) timeline(c *call) error {
	entries, err := h.records.PatientTimelineForUser(c.r.Context(), c.principal.UserID)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", entries)
	return nil
}

func (h *PatientHandler) exams(c *call) error {
	exams, err := h.records.MyExams(c.r.Context(), c.principal.UserID)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", exams)
	return nil
}

func (h *PatientHandler) prescriptions(c *call) error {
	items, err := h.records.MyPrescriptions(c.r.Context(), c.principal.UserID)
	if err != nil {
		return err
	}
	respond.JSON(c.w, http.StatusOK, "ok", items)
	return nil
}
