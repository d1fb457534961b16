package identity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/apperr"
)

// Role tags the two account kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole validates a role string from untrusted input.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher:
		return Role(s), nil
	default:
		return "", apperr.Newf(apperr.Validation, "unknown role %q", s)
	}
}

// Student is a registered student account. PasswordHash never leaves the
// identity package boundary in API responses.
type Student struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	QRCode       []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Teacher is a staff account. Teachers are only ever created by another
// teacher (or the bootstrap CLI) and are never updated or deleted.
type Teacher struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated actor making a request. A numeric id
// alone is ambiguous across the two account tables, so the role tag is
// part of the identity.
type Principal struct {
	Role Role
	ID   int64
}

// Key renders the composite session key, e.g. "student_5".
func (p Principal) Key() string {
	return fmt.Sprintf("%s_%d", p.Role, p.ID)
}

// IsTeacher reports whether the principal holds the teacher role.
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }

// ParsePrincipal resolves a composite session key back to a principal.
func ParsePrincipal(key string) (Principal, error) {
	role, idStr, ok := strings.Cut(key, "_")
	if !ok {
		return Principal{}, apperr.New(apperr.Authentication, "invalid session")
	}
	r, err := ParseRole(role)
	if err != nil {
		return Principal{}, apperr.New(apperr.Authentication, "invalid session")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, apperr.New(apperr.Authentication, "invalid session")
	}
	return Principal{Role: r, ID: id}, nil
}
