package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the coarse-grained role carried by an authenticated user.
type Role string

const (
	// RoleOrganizer may create funds and administers the funds they created.
	RoleOrganizer Role = "organizer"
	// RoleMember may join funds and submit payments.
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOrganizer || r == RoleMember
}

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address, stored lowercased (unique).
	Email string

	// DisplayName is the name shown in ledgers and member lists.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Role decides which fund operations the user may perform.
	Role Role

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last profile change.
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string, role Role) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lowercases an email address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
