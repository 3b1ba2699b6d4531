// Package seed loads user fixtures from YAML and provisions them through the
// regular provisioning path, so seeded users get hashed passwords and subtype
// rows like any other.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
)

// File is the fixture document layout.
type File struct {
	Users []dto.CreateUserRequest `yaml:"users"`
}

// UserCreator is satisfied by provisioning.Service.
type UserCreator interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (int64, error)
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document, rejecting unknown keys.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.NewDecoder(bytes.NewReader(data), yaml.Strict()).Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

// Apply creates every user in f. Users that already exist (same email or
// national id) are skipped; any other failure stops the run.
func Apply(ctx context.Context, creator UserCreator, f File, logger zerolog.Logger) (Result, error) {
	var res Result
	for i, u := range f.Users {
		id, err := creator.CreateUser(ctx, u)
		switch {
		case err == nil:
			res.Created++
			logger.Info().Int64("user_id", id).Str("role", u.Role).Msg("seeded user")
		case errors.Is(err, apperr.ErrIntegrity):
			res.Skipped++
			logger.Info().Str("email", u.Email).Msg("user already exists, skipping")
		default:
			return res, fmt.Errorf("seed user %d (%s): %w", i+1, u.Email, err)
		}
	}
	return res, nil
}
