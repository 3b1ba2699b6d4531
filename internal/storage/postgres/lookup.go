package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

// AgendaBetween lists a clinician's appointments in [from, to), earliest first.
func (s *Store) AgendaBetween(ctx context.Context, clinicianUserID int64, from, to time.Time) ([]models.AgendaEntry, error) {
	const query = `
	SELECT a.id, a.scheduled_at, pu.full_name, pu.id
	FROM appointments a
	JOIN patient_profiles p ON p.id = a.patient_id
	JOIN users pu ON pu.id = p.user_id
	JOIN clinician_profiles c ON c.id = a.clinician_id
	WHERE c.user_id = $1 AND a.scheduled_at >= $2 AND a.scheduled_at < $3
	ORDER BY a.scheduled_at ASC, a.id ASC;
	`
	rows, err := s.pool.Query(ctx, query, clinicianUserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("agenda: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AgendaEntry, error) {
		var e models.AgendaEntry
		err := row.Scan(&e.AppointmentID, &e.ScheduledAt, &e.PatientName, &e.PatientUserID)
		return e, err
	})
}

// SearchPatients matches patients by name or national id substring.
func (s *Store) SearchPatients(ctx context.Context, term string, limit int) ([]models.PatientSummary, error) {
	const query = `
	SELECT u.id, u.full_name, u.national_id
	FROM users u
	WHERE u.role = 'patient' AND (u.full_name ILIKE $1 OR u.national_id ILIKE $1)
	ORDER BY u.full_name ASC, u.id ASC
	LIMIT $2;
	`
	rows, err := s.pool.Query(ctx, query, likePattern(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.PatientSummary, error) {
		var p models.PatientSummary
		err := row.Scan(&p.UserID, &p.FullName, &p.NationalID)
		return p, err
	})
}

// PatientDetail loads the demographic header of a patient user.
func (s *Store) PatientDetail(ctx context.Context, userID int64) (models.PatientDetail, error) {
	const query = `
	SELECT u.id, u.full_name, u.national_id, u.email, u.phone, u.birth_date, p.address, p.blood_type
	FROM users u
	LEFT JOIN patient_profiles p ON p.user_id = u.id
	WHERE u.id = $1 AND u.role = 'patient';
	`
	var d models.PatientDetail
	err := s.pool.QueryRow(ctx, query, userID).Scan(&d.UserID, &d.FullName, &d.NationalID, &d.Email, &d.Phone, &d.BirthDate, &d.Address, &d.BloodType)
	if err != nil {
		return models.PatientDetail{}, mapErr(err)
	}
	return d, nil
}
