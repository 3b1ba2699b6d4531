package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrHasDependents indicates a delete was blocked by rows referencing the target.
var ErrHasDependents = errors.New("record has dependent rows")

// ErrProfileMissing indicates a non-admin user has no subtype row.
var ErrProfileMissing = errors.New("role profile missing for user")

// UserStore captures user persistence needed by provisioning and login.
type UserStore interface {
	// WithinTx runs fn in one transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx UserTx) error) error
	FindIdentity(ctx context.Context, id int64) (models.Identity, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.UserSummary, error)
	// ToggleActive flips the active flag in a single statement and returns the new value.
	ToggleActive(ctx context.Context, id int64) (bool, error)
	DashboardStats(ctx context.Context, since time.Time) (models.DashboardStats, error)
}

// UserTx is the write surface available inside UserStore.WithinTx.
type UserTx interface {
	InsertUser(ctx context.Context, user models.User) (int64, error)
	InsertClinicianProfile(ctx context.Context, p models.ClinicianProfile) error
	InsertPatientProfile(ctx context.Context, p models.PatientProfile) error
	// LockRole returns the stored role of id and locks the row until commit.
	LockRole(ctx context.Context, id int64) (models.Role, error)
	UpdateUser(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateClinicianProfile(ctx context.Context, p models.ClinicianProfile) error
	UpdatePatientProfile(ctx context.Context, p models.PatientProfile) error
	DeleteUser(ctx context.Context, id int64) error
}

// ClinicalStore captures the clinical record tables.
type ClinicalStore interface {
	// ResolvePatientProfile maps a patient user id to its profile id.
	ResolvePatientProfile(ctx context.Context, userID int64) (int64, error)
	ResolveClinicianProfile(ctx context.Context, userID int64) (int64, error)
	ListConsultations(ctx context.Context, patientID int64) ([]models.Consultation, error)
	ListPrescriptions(ctx context.Context, patientID int64) ([]models.Prescription, error)
	ListExams(ctx context.Context, patientID int64) ([]models.Exam, error)
	CreateConsultation(ctx context.Context, c models.Consultation) (int64, error)
	// IssuePrescriptions stores the consultation and its prescriptions atomically.
	IssuePrescriptions(ctx context.Context, c models.Consultation, items []models.Prescription) (int64, error)
	CreateExam(ctx context.Context, e models.Exam) (int64, error)
	CreateAppointment(ctx context.Context, a models.Appointment) (int64, error)
	NextAppointment(ctx context.Context, patientID int64, after time.Time) (*models.UpcomingAppointment, error)
	CountActivePrescriptions(ctx context.Context, patientID int64, day time.Time) (int64, error)
}

// LookupStore captures the clinician portal read helpers.
type LookupStore interface {
	AgendaBetween(ctx context.Context, clinicianUserID int64, from, to time.Time) ([]models.AgendaEntry, error)
	SearchPatients(ctx context.Context, term string, limit int) ([]models.PatientSummary, error)
	PatientDetail(ctx context.Context, userID int64) (models.PatientDetail, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s models.Session) error
	Find(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
