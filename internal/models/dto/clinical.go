package dto

import "github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"

// ConsultationRequest records a consultation for the patient whose user id is
// PatientUserID.
type ConsultationRequest struct {
	PatientUserID        int64   `json:"patient_id"`
	Diagnosis            string  `json:"diagnosis"`
	Symptoms             *string `json:"symptoms,omitempty"`
	RecommendedTreatment *string `json:"recommended_treatment,omitempty"`
}

type MedicationItem struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

type PrescriptionRequest struct {
	PatientUserID int64            `json:"patient_id"`
	Medications   []MedicationItem `json:"medications"`
	ValidUntil    string           `json:"valid_until,omitempty"`
}

type ExamRequest struct {
	PatientUserID int64   `json:"patient_id"`
	ExamName      string  `json:"exam_name"`
	ExamDate      string  `json:"exam_date"`
	Result        *string `json:"result,omitempty"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`
}

type AppointmentRequest struct {
	PatientUserID int64   `json:"patient_id"`
	ScheduledAt   string  `json:"scheduled_at"`
	Notes         *string `json:"notes,omitempty"`
}

// PrescriptionView is a prescription with its derived status.
type PrescriptionView struct {
	models.Prescription
	Status models.PrescriptionStatus `json:"status"`
}

// ExamView is an exam with an optional short-lived download link.
type ExamView struct {
	models.Exam
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// PatientDashboard backs get_dashboard_summary.
type PatientDashboard struct {
	NextAppointment     *models.UpcomingAppointment `json:"next_appointment"`
	LatestExam          *models.Exam                `json:"latest_exam"`
	ActivePrescriptions int64                       `json:"active_prescriptions"`
}
