package models

import "time"

// User is the base identity row shared by every role.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	NationalID   string    `json:"national_id"`
	Email        string    `json:"email"`
	BirthDate    time.Time `json:"birth_date"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClinicianProfile completes a clinician User.
type ClinicianProfile struct {
	ID            int64  `json:"clinician_id"`
	UserID        int64  `json:"user_id"`
	LicenseNumber string `json:"license_number"`
	Specialty     string `json:"specialty"`
}

// PatientProfile completes a patient User. Its ID is the key used by every
// clinical table.
type PatientProfile struct {
	ID        int64   `json:"patient_id"`
	UserID    int64   `json:"user_id"`
	Address   *string `json:"address,omitempty"`
	BloodType *string `json:"blood_type,omitempty"`
}

// UserStatus is the externally visible form of the active flag.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// StatusOf converts the stored flag.
func StatusOf(active bool) UserStatus {
	if active {
		return StatusActive
	}
	return StatusInactive
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	ID         int64      `json:"id"`
	FullName   string     `json:"full_name"`
	NationalID string     `json:"national_id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Status     UserStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UserFilter narrows ListUsers. Zero value matches everyone.
type UserFilter struct {
	Search string
	Role   Role
}

// DashboardStats backs the admin dashboard counters.
type DashboardStats struct {
	TotalPatients   int64 `json:"total_patients"`
	TotalClinicians int64 `json:"total_clinicians"`
	NewLastWeek     int64 `json:"new_last_week"`
}
