// Package provisioning creates, edits and removes users together with their
// role-specific profile. Every write is all-or-nothing.
package provisioning

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/auth"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/textnorm"
)

const msgDuplicate = "a user with this email or national id already exists"

// SessionRevoker ends the sessions of a user that lost access.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

type Service struct {
	users    storage.UserStore
	sessions SessionRevoker
	logger   zerolog.Logger
	now      func() time.Time
	hash     func(string) (string, error)
}

func NewService(users storage.UserStore, sessions SessionRevoker, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		hash:     auth.HashPassword,
	}
}

// CreateUser inserts the base user row and exactly one subtype row (none for
// administrators) in a single transaction, returning the new user id.
func (s *Service) CreateUser(ctx context.Context, req dto.CreateUserRequest) (int64, error) {
	user, err := baseUser(req.FullName, req.NationalID, req.Email, req.BirthDate, req.Phone)
	if err != nil {
		return 0, err
	}
	role, err := models.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		return 0, apperr.Validation("role must be one of patient, clinician or admin")
	}
	user.Role = role
	if req.Password == "" {
		return 0, apperr.Validation("password is required")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return 0, apperr.Validation(err.Error())
	}
	license, specialty := strings.TrimSpace(req.LicenseNumber), strings.TrimSpace(req.Specialty)
	if role == models.RoleClinician && (license == "" || specialty == "") {
		return 0, apperr.Validation("license number and specialty are required for clinicians")
	}

	user.PasswordHash, err = s.hash(req.Password)
	if err != nil {
		return 0, apperr.Provisioning("could not create user", err)
	}

	var id int64
	err = s.users.WithinTx(ctx, func(tx storage.UserTx) error {
		newID, err := tx.InsertUser(ctx, user)
		if err != nil {
			return err
		}
		switch role {
		case models.RoleClinician:
			err = tx.InsertClinicianProfile(ctx, models.ClinicianProfile{UserID: newID, LicenseNumber: license, Specialty: specialty})
		case models.RolePatient:
			err = tx.InsertPatientProfile(ctx, models.PatientProfile{UserID: newID, Address: trimmed(req.Address), BloodType: trimmed(req.BloodType)})
		}
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrAlreadyExists):
		return 0, apperr.Integrity(msgDuplicate, err)
	default:
		return 0, apperr.Provisioning("could not create user", err)
	}

	s.logger.Info().Int64("user_id", id).Str("role", string(role)).Msg("user created")
	return id, nil
}

// UpdateUser rewrites the base row and the subtype row of the stored role.
// The role itself cannot change.
func (s *Service) UpdateUser(ctx context.Context, req dto.UpdateUserRequest) error {
	if req.ID <= 0 {
		return apperr.Validation("user id is required")
	}
	user, err := baseUser(req.FullName, req.NationalID, req.Email, req.BirthDate, req.Phone)
	if err != nil {
		return err
	}
	user.ID = req.ID

	var hash string
	if req.Password != "" {
		if err := auth.ValidatePassword(req.Password); err != nil {
			return apperr.Validation(err.Error())
		}
		if hash, err = s.hash(req.Password); err != nil {
			return apperr.Provisioning("could not update user", err)
		}
	}

	err = s.users.WithinTx(ctx, func(tx storage.UserTx) error {
		role, err := tx.LockRole(ctx, req.ID)
		if err != nil {
			return err
		}
		if requested := strings.TrimSpace(req.Role); requested != "" && models.Role(requested) != role {
			return apperr.Validation("role changes are not supported")
		}
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		if hash != "" {
			if err := tx.UpdatePassword(ctx, req.ID, hash); err != nil {
				return err
			}
		}
		switch role {
		case models.RoleClinician:
			license, specialty := strings.TrimSpace(req.LicenseNumber), strings.TrimSpace(req.Specialty)
			if license == "" || specialty == "" {
				return apperr.Validation("license number and specialty are required for clinicians")
			}
			return tx.UpdateClinicianProfile(ctx, models.ClinicianProfile{UserID: req.ID, LicenseNumber: license, Specialty: specialty})
		case models.RolePatient:
			return tx.UpdatePatientProfile(ctx, models.PatientProfile{UserID: req.ID, Address: trimmed(req.Address), BloodType: trimmed(req.BloodType)})
		}
		return nil
	})
	if err != nil {
		return mapUpdateErr(err)
	}
	s.logger.Info().Int64("user_id", req.ID).Msg("user updated")
	return nil
}

func mapUpdateErr(err error) error {
	var typed *apperr.Error
	switch {
	case errors.As(err, &typed):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperr.Integrity(msgDuplicate, err)
	case errors.Is(err, storage.ErrProfileMissing):
		return apperr.Integrity("user profile is missing", err)
	default:
		return apperr.Provisioning("could not update user", err)
	}
}

// ToggleActive flips the user's active flag and returns the new status.
// Deactivated users lose their open sessions.
func (s *Service) ToggleActive(ctx context.Context, id int64) (models.UserStatus, error) {
	if id <= 0 {
		return "", apperr.Validation("user id is required")
	}
	active, err := s.users.ToggleActive(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "", apperr.NotFound("user not found")
	case err != nil:
		return "", apperr.Internal("could not change user status", err)
	}
	if !active {
		s.revoke(ctx, id)
	}
	status := models.StatusOf(active)
	s.logger.Info().Int64("user_id", id).Str("status", string(status)).Msg("user status toggled")
	return status, nil
}

// DeleteUser removes the user. Patient records cascade; a clinician who
// authored clinical records cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Validation("user id is required")
	}
	err := s.users.WithinTx(ctx, func(tx storage.UserTx) error {
		return tx.DeleteUser(ctx, id)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, storage.ErrHasDependents):
		return apperr.Dependency("user has clinical records and cannot be deleted", err)
	case err != nil:
		return apperr.Internal("could not delete user", err)
	}
	s.revoke(ctx, id)
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// GetUserDetails returns the merged base and subtype record.
func (s *Service) GetUserDetails(ctx context.Context, id int64) (models.UserDetail, error) {
	if id <= 0 {
		return models.UserDetail{}, apperr.Validation("user id is required")
	}
	identity, err := s.users.FindIdentity(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.UserDetail{}, apperr.NotFound("user not found")
	case errors.Is(err, storage.ErrProfileMissing):
		return models.UserDetail{}, apperr.Integrity("user profile is missing", err)
	case err != nil:
		return models.UserDetail{}, apperr.Internal("could not load user", err)
	}
	return identity.Detail(), nil
}

// ListUsers returns users newest first.
func (s *Service) ListUsers(ctx context.Context, search, role string) ([]models.UserSummary, error) {
	filter := models.UserFilter{Search: textnorm.Name(search)}
	if role = strings.TrimSpace(role); role != "" {
		r, err := models.ParseRole(role)
		if err != nil {
			return nil, apperr.Validation("role must be one of patient, clinician or admin")
		}
		filter.Role = r
	}
	users, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("could not list users", err)
	}
	return users, nil
}

// DashboardStats counts patients, clinicians and users created in the last week.
func (s *Service) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	stats, err := s.users.DashboardStats(ctx, s.now().AddDate(0, 0, -7))
	if err != nil {
		return models.DashboardStats{}, apperr.Internal("could not load dashboard statistics", err)
	}
	return stats, nil
}

func (s *Service) revoke(ctx context.Context, id int64) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		s.logger.Error().Err(err).Int64("user_id", id).Msg("revoke sessions")
	}
}

func baseUser(fullName, nationalID, email, birthDate string, phone *string) (models.User, error) {
	user := models.User{
		FullName:   textnorm.Name(fullName),
		NationalID: strings.TrimSpace(nationalID),
		Email:      textnorm.Email(email),
		Phone:      trimmed(phone),
	}
	if user.FullName == "" || user.NationalID == "" || user.Email == "" || strings.TrimSpace(birthDate) == "" {
		return models.User{}, apperr.Validation("full name, national id, email and birth date are required")
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return models.User{}, apperr.Validation("email is not valid")
	}
	bd, err := time.Parse(time.DateOnly, strings.TrimSpace(birthDate))
	if err != nil {
		return models.User{}, apperr.Validation("birth date must use the YYYY-MM-DD format")
	}
	user.BirthDate = bd
	return user, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
