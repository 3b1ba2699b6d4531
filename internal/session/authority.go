// Package session authenticates users and tracks their login sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/auth"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgUnauthenticated    = "authentication required"
)

// UserFinder is the slice of the user store login needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// Credentials is the login payload.
type Credentials struct {
	Email    string
	Password string
}

// Login is the outcome of a successful Authenticate.
type Login struct {
	Principal models.Principal
	Token     string
	ExpiresAt time.Time
}

// Authority issues, resolves and destroys sessions.
type Authority struct {
	users  UserFinder
	store  storage.SessionStore
	tokens *auth.TokenManager
	ttl    time.Duration
	logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewAuthority(users UserFinder, store storage.SessionStore, tokens *auth.TokenManager, ttl time.Duration, logger zerolog.Logger) *Authority {
	return &Authority{
		users:  users,
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Authenticate verifies credentials and opens a fresh session. On success any
// prior session presented with the request is destroyed, so a login never
// reuses an existing session id. A failed attempt leaves it untouched.
func (a *Authority) Authenticate(ctx context.Context, creds Credentials, priorToken string) (Login, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return Login{}, apperr.Validation("email and password are required")
	}

	user, err := a.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		auth.BurnPasswordCheck(creds.Password)
		return Login{}, apperr.Unauthorized(msgInvalidCredentials)
	case err != nil:
		return Login{}, apperr.Internal("login failed", fmt.Errorf("find user by email: %w", err))
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) || !user.Active {
		return Login{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	if priorToken != "" {
		if err := a.Destroy(ctx, priorToken); err != nil {
			a.logger.Warn().Err(err).Msg("destroy prior session")
		}
	}

	now := a.now()
	sess := models.Session{
		ID: a.newID(),
		Principal: models.Principal{
			UserID:      user.ID,
			Role:        user.Role,
			DisplayName: user.FullName,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.store.Create(ctx, sess); err != nil {
		return Login{}, apperr.Internal("login failed", fmt.Errorf("create session: %w", err))
	}
	token, err := a.tokens.Issue(sess.ID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		_ = a.store.Delete(ctx, sess.ID)
		return Login{}, apperr.Internal("login failed", err)
	}

	a.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("session opened")
	return Login{Principal: sess.Principal, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Resolve returns the principal bound to token.
func (a *Authority) Resolve(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		return models.Principal{}, apperr.Unauthorized(msgUnauthenticated)
	}
	sid, err := a.tokens.Parse(token)
	if err != nil {
		return models.Principal{}, apperr.Unauthorized(msgUnauthenticated)
	}
	sess, err := a.store.Find(ctx, sid)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.Principal{}, apperr.Unauthorized(msgUnauthenticated)
	case err != nil:
		return models.Principal{}, apperr.Internal("session lookup failed", err)
	}
	if sess.Expired(a.now()) {
		_ = a.store.Delete(ctx, sid)
		return models.Principal{}, apperr.Unauthorized(msgUnauthenticated)
	}
	return sess.Principal, nil
}

// Destroy ends the session behind token. Unknown or invalid tokens are ignored.
func (a *Authority) Destroy(ctx context.Context, token string) error {
	sid, err := a.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return a.store.Delete(ctx, sid)
}

// RevokeUser ends every session owned by userID.
func (a *Authority) RevokeUser(ctx context.Context, userID int64) error {
	if err := a.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions of user %d: %w", userID, err)
	}
	return nil
}
