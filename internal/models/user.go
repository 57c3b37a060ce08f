package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivmartynov/bookverse/internal/apperrors"
)

// Role is a closed set. Anything user provided must go through ParseRole.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, value)
	}
}

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Email          string
	HashedPassword string
	Role           Role
	Banned         bool
}

// Principal is the identity bound to a request by the auth middleware.
// It carries verified access token claims only, no user row is loaded.
type Principal struct {
	Username string
	Role     Role
}
