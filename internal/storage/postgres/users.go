package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

const userCols = `u.id, u.full_name, u.national_id, u.email, u.birth_date, u.phone, u.password_hash, u.role, u.active, u.created_at`

// txStore implements storage.UserTx on an open transaction.
type txStore struct {
	q querier
}

var _ storage.UserTx = (*txStore)(nil)

// FindIdentity loads a user together with whichever subtype row it owns.
func (s *Store) FindIdentity(ctx context.Context, id int64) (models.Identity, error) {
	const query = `
	SELECT ` + userCols + `,
		c.id, c.license_number, c.specialty,
		p.id, p.address, p.blood_type
	FROM users u
	LEFT JOIN clinician_profiles c ON c.user_id = u.id
	LEFT JOIN patient_profiles p ON p.user_id = u.id
	WHERE u.id = $1;
	`
	var user models.User
	var clinicianID, patientID *int64
	var license, specialty, address, bloodType *string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.FullName, &user.NationalID, &user.Email, &user.BirthDate, &user.Phone,
		&user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt,
		&clinicianID, &license, &specialty,
		&patientID, &address, &bloodType,
	)
	if err != nil {
		return nil, mapErr(err)
	}

	switch user.Role {
	case models.RoleClinician:
		if clinicianID == nil {
			return nil, fmt.Errorf("%w: user %d", storage.ErrProfileMissing, id)
		}
		return models.ClinicianIdentity{User: user, Profile: models.ClinicianProfile{
			ID: *clinicianID, UserID: user.ID, LicenseNumber: deref(license), Specialty: deref(specialty),
		}}, nil
	case models.RolePatient:
		if patientID == nil {
			return nil, fmt.Errorf("%w: user %d", storage.ErrProfileMissing, id)
		}
		return models.PatientIdentity{User: user, Profile: models.PatientProfile{
			ID: *patientID, UserID: user.ID, Address: address, BloodType: bloodType,
		}}, nil
	default:
		return models.AdminIdentity{User: user}, nil
	}
}

// FindByEmail fetches a user by email address, ignoring case.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userCols + ` FROM users u WHERE lower(u.email) = lower($1);`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// ListUsers returns users newest first, optionally filtered by name or
// national id substring and by role.
func (s *Store) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.UserSummary, error) {
	var (
		where []string
		args  []any
	)
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, likePattern(term))
		where = append(where, fmt.Sprintf("(u.full_name ILIKE $%d OR u.national_id ILIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("u.role = $%d", len(args)))
	}

	query := `SELECT u.id, u.full_name, u.national_id, u.email, u.role, u.active, u.created_at FROM users u`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.created_at DESC, u.id DESC;"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []models.UserSummary{}
	for rows.Next() {
		var (
			sum    models.UserSummary
			active bool
		)
		if err := rows.Scan(&sum.ID, &sum.FullName, &sum.NationalID, &sum.Email, &sum.Role, &active, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		sum.Status = models.StatusOf(active)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ToggleActive flips the active flag atomically.
func (s *Store) ToggleActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.pool.QueryRow(ctx, `UPDATE users SET active = NOT active WHERE id = $1 RETURNING active;`, id).Scan(&active)
	if err != nil {
		return false, mapErr(err)
	}
	return active, nil
}

// DashboardStats counts users per role and recent sign-ups.
func (s *Store) DashboardStats(ctx context.Context, since time.Time) (models.DashboardStats, error) {
	const query = `
	SELECT
		COUNT(*) FILTER (WHERE role = 'patient'),
		COUNT(*) FILTER (WHERE role = 'clinician'),
		COUNT(*) FILTER (WHERE created_at >= $1)
	FROM users;
	`
	var stats models.DashboardStats
	if err := s.pool.QueryRow(ctx, query, since).Scan(&stats.TotalPatients, &stats.TotalClinicians, &stats.NewLastWeek); err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// InsertUser inserts the base row and returns its generated id.
func (t *txStore) InsertUser(ctx context.Context, user models.User) (int64, error) {
	const query = `
	INSERT INTO users (full_name, national_id, email, birth_date, phone, password_hash, role, active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	RETURNING id;
	`
	var id int64
	err := t.q.QueryRow(ctx, query,
		user.FullName, user.NationalID, user.Email, user.BirthDate, user.Phone, user.PasswordHash, user.Role,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (t *txStore) InsertClinicianProfile(ctx context.Context, p models.ClinicianProfile) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO clinician_profiles (user_id, license_number, specialty) VALUES ($1, $2, $3);`,
		p.UserID, p.LicenseNumber, p.Specialty)
	return mapErr(err)
}

func (t *txStore) InsertPatientProfile(ctx context.Context, p models.PatientProfile) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO patient_profiles (user_id, address, blood_type) VALUES ($1, $2, $3);`,
		p.UserID, p.Address, p.BloodType)
	return mapErr(err)
}

func (t *txStore) LockRole(ctx context.Context, id int64) (models.Role, error) {
	var role models.Role
	if err := t.q.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE;`, id).Scan(&role); err != nil {
		return "", mapErr(err)
	}
	return role, nil
}

func (t *txStore) UpdateUser(ctx context.Context, user models.User) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE users SET full_name = $2, national_id = $3, email = $4, birth_date = $5, phone = $6
		WHERE id = $1;`,
		user.ID, user.FullName, user.NationalID, user.Email, user.BirthDate, user.Phone)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *txStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := t.q.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1;`, id, hash)
	return mapErr(err)
}

func (t *txStore) UpdateClinicianProfile(ctx context.Context, p models.ClinicianProfile) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE clinician_profiles SET license_number = $2, specialty = $3 WHERE user_id = $1;`,
		p.UserID, p.LicenseNumber, p.Specialty)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", storage.ErrProfileMissing, p.UserID)
	}
	return nil
}

func (t *txStore) UpdatePatientProfile(ctx context.Context, p models.PatientProfile) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE patient_profiles SET address = $2, blood_type = $3 WHERE user_id = $1;`,
		p.UserID, p.Address, p.BloodType)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", storage.ErrProfileMissing, p.UserID)
	}
	return nil
}

// DeleteUser removes the base row; subtype and clinical rows follow the
// schema's cascade rules.
func (t *txStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM users WHERE id = $1;`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.FullName, &user.NationalID, &user.Email, &user.BirthDate, &user.Phone,
		&user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		return models.User{}, mapErr(err)
	}
	return user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
