// Package auth verifies bearer tokens and carries the caller identity through
// request contexts.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized is returned for missing, malformed or expired tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a valid caller lacks the admin role.
	ErrForbidden = errors.New("forbidden")
)

// Role is the access level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a stored or claimed role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller may use admin operations.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User is an account known to the service.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// UserRepository stores user accounts.
type UserRepository interface {
	Upsert(ctx context.Context, u *User) error
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
