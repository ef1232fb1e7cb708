// Package user defines the user record model and the read-only store
// the credential verifier queries. The store itself is an external
// collaborator; this package only looks records up by email.
package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record matches the given email.
var ErrNotFound = errors.New("user not found")

// User is a record in the external user store. PasswordHash is never
// serialized to responses.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"firstName"`
}

// Store looks user records up by email. Email comparison is
// case-insensitive; implementations must include the password hash in
// the returned record even if it is normally hidden.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}
