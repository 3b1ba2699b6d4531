package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

// ResolvePatientProfile maps a patient's user id to the profile id used by the
// clinical tables. Users that are missing or not patients are ErrNotFound; a
// patient without a profile row is ErrProfileMissing.
func (s *Store) ResolvePatientProfile(ctx context.Context, userID int64) (int64, error) {
	return s.resolveProfile(ctx, userID, models.RolePatient,
		`SELECT u.role, p.id FROM users u LEFT JOIN patient_profiles p ON p.user_id = u.id WHERE u.id = $1;`)
}

// ResolveClinicianProfile maps a clinician's user id to its profile id.
func (s *Store) ResolveClinicianProfile(ctx context.Context, userID int64) (int64, error) {
	return s.resolveProfile(ctx, userID, models.RoleClinician,
		`SELECT u.role, c.id FROM users u LEFT JOIN clinician_profiles c ON c.user_id = u.id WHERE u.id = $1;`)
}

func (s *Store) resolveProfile(ctx context.Context, userID int64, want models.Role, query string) (int64, error) {
	var (
		role      models.Role
		profileID *int64
	)
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&role, &profileID); err != nil {
		return 0, mapErr(err)
	}
	if role != want {
		return 0, storage.ErrNotFound
	}
	if profileID == nil {
		return 0, fmt.Errorf("%w: %s user %d", storage.ErrProfileMissing, want, userID)
	}
	return *profileID, nil
}

// ListConsultations returns a patient's consultations, newest first.
func (s *Store) ListConsultations(ctx context.Context, patientID int64) ([]models.Consultation, error) {
	const query = `
	SELECT c.id, c.patient_id, c.clinician_id, u.full_name, c.occurred_at, c.diagnosis, c.symptoms, c.recommended_treatment
	FROM consultations c
	JOIN clinician_profiles cp ON cp.id = c.clinician_id
	JOIN users u ON u.id = cp.user_id
	WHERE c.patient_id = $1
	ORDER BY c.occurred_at DESC, c.id DESC;
	`
	rows, err := s.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Consultation, error) {
		var c models.Consultation
		err := row.Scan(&c.ID, &c.PatientID, &c.ClinicianID, &c.ClinicianName, &c.OccurredAt, &c.Diagnosis, &c.Symptoms, &c.RecommendedTreatment)
		return c, err
	})
}

// ListPrescriptions returns a patient's prescriptions, newest first.
func (s *Store) ListPrescriptions(ctx context.Context, patientID int64) ([]models.Prescription, error) {
	const query = `
	SELECT r.id, r.consultation_id, r.patient_id, r.clinician_id, u.full_name, cp.license_number,
		r.medication, r.dosage, r.instructions, r.issued_at, r.valid_until
	FROM prescriptions r
	JOIN clinician_profiles cp ON cp.id = r.clinician_id
	JOIN users u ON u.id = cp.user_id
	WHERE r.patient_id = $1
	ORDER BY r.issued_at DESC, r.id DESC;
	`
	rows, err := s.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Prescription, error) {
		var p models.Prescription
		err := row.Scan(&p.ID, &p.ConsultationID, &p.PatientID, &p.ClinicianID, &p.ClinicianName, &p.LicenseNumber,
			&p.Medication, &p.Dosage, &p.Instructions, &p.IssuedAt, &p.ValidUntil)
		return p, err
	})
}

// ListExams returns a patient's exams, newest first. Exams ordered outside
// the clinic carry no clinician.
func (s *Store) ListExams(ctx context.Context, patientID int64) ([]models.Exam, error) {
	const query = `
	SELECT e.id, e.patient_id, e.clinician_id, u.full_name, e.exam_name, e.exam_date, e.result, e.attachment_ref
	FROM exams e
	LEFT JOIN clinician_profiles cp ON cp.id = e.clinician_id
	LEFT JOIN users u ON u.id = cp.user_id
	WHERE e.patient_id = $1
	ORDER BY e.exam_date DESC, e.id DESC;
	`
	rows, err := s.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Exam, error) {
		var e models.Exam
		err := row.Scan(&e.ID, &e.PatientID, &e.ClinicianID, &e.ClinicianName, &e.ExamName, &e.ExamDate, &e.Result, &e.AttachmentRef)
		return e, err
	})
}

// CreateConsultation inserts a consultation and returns its id.
func (s *Store) CreateConsultation(ctx context.Context, c models.Consultation) (int64, error) {
	return insertConsultation(ctx, s.pool, c)
}

func insertConsultation(ctx context.Context, q querier, c models.Consultation) (int64, error) {
	const query = `
	INSERT INTO consultations (patient_id, clinician_id, occurred_at, diagnosis, symptoms, recommended_treatment)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id;
	`
	var id int64
	err := q.QueryRow(ctx, query, c.PatientID, c.ClinicianID, c.OccurredAt, c.Diagnosis, c.Symptoms, c.RecommendedTreatment).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// IssuePrescriptions stores a consultation and the prescriptions linked to it
// in one transaction, returning the consultation id.
func (s *Store) IssuePrescriptions(ctx context.Context, c models.Consultation, items []models.Prescription) (int64, error) {
	var consultationID int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		id, err := insertConsultation(ctx, tx, c)
		if err != nil {
			return fmt.Errorf("insert consultation: %w", err)
		}
		consultationID = id

		batch := &pgx.Batch{}
		for _, p := range items {
			batch.Queue(`
				INSERT INTO prescriptions (consultation_id, patient_id, clinician_id, medication, dosage, instructions, issued_at, valid_until)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
				id, p.PatientID, p.ClinicianID, p.Medication, p.Dosage, p.Instructions, p.IssuedAt, p.ValidUntil)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert prescriptions: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return consultationID, nil
}

// CreateExam inserts an exam and returns its id.
func (s *Store) CreateExam(ctx context.Context, e models.Exam) (int64, error) {
	const query = `
	INSERT INTO exams (patient_id, clinician_id, exam_name, exam_date, result, attachment_ref)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id;
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, e.PatientID, e.ClinicianID, e.ExamName, e.ExamDate, e.Result, e.AttachmentRef).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// CreateAppointment inserts an appointment and returns its id.
func (s *Store) CreateAppointment(ctx context.Context, a models.Appointment) (int64, error) {
	const query = `
	INSERT INTO appointments (patient_id, clinician_id, scheduled_at, notes)
	VALUES ($1, $2, $3, $4)
	RETURNING id;
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, a.PatientID, a.ClinicianID, a.ScheduledAt, a.Notes).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// NextAppointment returns the patient's first appointment at or after the
// given instant, or nil when none is scheduled.
func (s *Store) NextAppointment(ctx context.Context, patientID int64, after time.Time) (*models.UpcomingAppointment, error) {
	const query = `
	SELECT a.scheduled_at, u.full_name
	FROM appointments a
	JOIN clinician_profiles cp ON cp.id = a.clinician_id
	JOIN users u ON u.id = cp.user_id
	WHERE a.patient_id = $1 AND a.scheduled_at >= $2
	ORDER BY a.scheduled_at ASC
	LIMIT 1;
	`
	var next models.UpcomingAppointment
	err := s.pool.QueryRow(ctx, query, patientID, after).Scan(&next.ScheduledAt, &next.ClinicianName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next appointment: %w", err)
	}
	return &next, nil
}

// CountActivePrescriptions counts prescriptions still valid on day.
func (s *Store) CountActivePrescriptions(ctx context.Context, patientID int64, day time.Time) (int64, error) {
	y, m, d := day.Date()
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM prescriptions WHERE patient_id = $1 AND valid_until >= $2;`,
		patientID, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active prescriptions: %w", err)
	}
	return n, nil
}
