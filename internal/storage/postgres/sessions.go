package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

var _ storage.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in the sessions table so they survive restarts
// and are shared between instances.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, sess models.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, role, display_name, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6);`,
		sess.ID, sess.Principal.UserID, sess.Principal.Role, sess.Principal.DisplayName, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", mapErr(err))
	}
	return nil
}

func (s *SessionStore) Find(ctx context.Context, id string) (models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, role, display_name, created_at, expires_at
		FROM sessions WHERE id = $1;`, id).Scan(
		&sess.ID, &sess.Principal.UserID, &sess.Principal.Role, &sess.Principal.DisplayName, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return models.Session{}, mapErr(err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1;`, id)
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1;`, userID)
	return err
}

// PurgeExpired removes sessions past their expiry.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW();`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
