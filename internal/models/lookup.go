package models

import "time"

// AgendaEntry is one of a clinician's appointments for the day.
type AgendaEntry struct {
	AppointmentID int64     `json:"id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	PatientName   string    `json:"patient_name"`
	PatientUserID int64     `json:"patient_user_id"`
}

// PatientSummary is a patient search hit.
type PatientSummary struct {
	UserID     int64  `json:"id"`
	FullName   string `json:"full_name"`
	NationalID string `json:"national_id"`
}

// PatientDetail is the demographic header shown above a patient's record.
type PatientDetail struct {
	UserID     int64     `json:"id"`
	FullName   string    `json:"full_name"`
	NationalID string    `json:"national_id"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	BirthDate  time.Time `json:"birth_date"`
	Address    *string   `json:"address,omitempty"`
	BloodType  *string   `json:"blood_type,omitempty"`
}

// UpcomingAppointment is the next visit shown on the patient dashboard.
type UpcomingAppointment struct {
	ScheduledAt   time.Time `json:"scheduled_at"`
	ClinicianName string    `json:"clinician_name"`
}
