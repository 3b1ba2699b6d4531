package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore     = (*Store)(nil)
	_ storage.ClinicalStore = (*Store)(nil)
	_ storage.LookupStore   = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users and clinical records.
type Store struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStore connects to Postgres and runs migrations.
func NewStore(ctx context.Context, databaseURL string, maxConns, minConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pool for stores sharing the connection.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies the idempotent schema. Clinical rows cascade with the
// patient profile; rows authored by a clinician restrict the clinician's
// deletion.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			national_id TEXT NOT NULL,
			email TEXT NOT NULL,
			birth_date DATE NOT NULL,
			phone TEXT,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('patient', 'clinician', 'admin')),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_national_id_unique_idx ON users (national_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique_idx ON users (lower(email));`,
		`CREATE INDEX IF NOT EXISTS users_created_at_idx ON users (created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS clinician_profiles (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			license_number TEXT NOT NULL,
			specialty TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS patient_profiles (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			address TEXT,
			blood_type TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS consultations (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patient_profiles(id) ON DELETE CASCADE,
			clinician_id BIGINT NOT NULL REFERENCES clinician_profiles(id) ON DELETE RESTRICT,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			diagnosis TEXT NOT NULL,
			symptoms TEXT,
			recommended_treatment TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS prescriptions (
			id BIGSERIAL PRIMARY KEY,
			consultation_id BIGINT REFERENCES consultations(id) ON DELETE SET NULL,
			patient_id BIGINT NOT NULL REFERENCES patient_profiles(id) ON DELETE CASCADE,
			clinician_id BIGINT NOT NULL REFERENCES clinician_profiles(id) ON DELETE RESTRICT,
			medication TEXT NOT NULL,
			dosage TEXT NOT NULL,
			instructions TEXT NOT NULL,
			issued_at DATE NOT NULL DEFAULT CURRENT_DATE,
			valid_until DATE
		);`,
		`CREATE TABLE IF NOT EXISTS exams (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patient_profiles(id) ON DELETE CASCADE,
			clinician_id BIGINT REFERENCES clinician_profiles(id) ON DELETE SET NULL,
			exam_name TEXT NOT NULL,
			exam_date DATE NOT NULL,
			result TEXT,
			attachment_ref TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id BIGSERIAL PRIMARY KEY,
			patient_id BIGINT NOT NULL REFERENCES patient_profiles(id) ON DELETE CASCADE,
			clinician_id BIGINT NOT NULL REFERENCES clinician_profiles(id) ON DELETE RESTRICT,
			scheduled_at TIMESTAMPTZ NOT NULL,
			notes TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			display_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS consultations_patient_idx ON consultations (patient_id, occurred_at DESC);`,
		`CREATE INDEX IF NOT EXISTS prescriptions_patient_idx ON prescriptions (patient_id, issued_at DESC);`,
		`CREATE INDEX IF NOT EXISTS exams_patient_idx ON exams (patient_id, exam_date DESC);`,
		`CREATE INDEX IF NOT EXISTS appointments_clinician_idx ON appointments (clinician_id, scheduled_at);`,
		`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, scheduled_at);`,
		`CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// WithinTx runs fn inside a transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.UserTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txStore{q: tx})
	})
}

// mapErr converts driver errors into storage sentinels, keeping the driver
// detail in the chain for logging.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", storage.ErrHasDependents, pgErr.ConstraintName)
		}
	}
	return err
}

// likePattern escapes LIKE metacharacters and wraps term for substring matching.
func likePattern(term string) string {
	r := []rune{}
	for _, c := range term {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return "%" + string(r) + "%"
}
