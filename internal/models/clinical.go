package models

import "time"

// Consultation is a clinician-authored visit note. Rows are never updated.
type Consultation struct {
	ID                   int64     `json:"id"`
	PatientID            int64     `json:"-"`
	ClinicianID          int64     `json:"clinician_id,omitempty"`
	ClinicianName        string    `json:"clinician_name"`
	OccurredAt           time.Time `json:"occurred_at"`
	Diagnosis            string    `json:"diagnosis"`
	Symptoms             *string   `json:"symptoms,omitempty"`
	RecommendedTreatment *string   `json:"recommended_treatment,omitempty"`
}

// Prescription is one medication issued to a patient.
type Prescription struct {
	ID             int64      `json:"id"`
	ConsultationID *int64     `json:"consultation_id,omitempty"`
	PatientID      int64      `json:"-"`
	ClinicianID    int64      `json:"clinician_id,omitempty"`
	ClinicianName  string     `json:"clinician_name"`
	LicenseNumber  string     `json:"license_number,omitempty"`
	Medication     string     `json:"medication"`
	Dosage         string     `json:"dosage"`
	Instructions   string     `json:"instructions"`
	IssuedAt       time.Time  `json:"issued_at"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
}

// ActiveOn reports whether the prescription is still valid on day. A
// prescription without an expiry date is never considered active.
func (p Prescription) ActiveOn(day time.Time) bool {
	if p.ValidUntil == nil {
		return false
	}
	y, m, d := day.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	vy, vm, vd := p.ValidUntil.Date()
	until := time.Date(vy, vm, vd, 0, 0, 0, 0, time.UTC)
	return !until.Before(today)
}

// PrescriptionStatus is the derived, never stored validity label.
type PrescriptionStatus string

const (
	PrescriptionActive  PrescriptionStatus = "active"
	PrescriptionExpired PrescriptionStatus = "expired"
)

// Exam is a test result. ClinicianID is nil when a third party ordered it.
type Exam struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"-"`
	ClinicianID   *int64    `json:"clinician_id,omitempty"`
	ClinicianName *string   `json:"clinician_name,omitempty"`
	ExamName      string    `json:"exam_name"`
	ExamDate      time.Time `json:"exam_date"`
	Result        *string   `json:"result,omitempty"`
	AttachmentRef *string   `json:"attachment_ref,omitempty"`
}

// Appointment is a scheduled visit.
type Appointment struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"-"`
	ClinicianID int64     `json:"-"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       *string   `json:"notes,omitempty"`
}
