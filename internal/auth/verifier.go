package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	apperrors "appgate/internal/errors"
	"appgate/internal/user"
)

// Sentinel errors surfaced by Verify. The handler maps them onto the
// HTTP contract; everything else is treated as an internal error.
var (
	ErrEmailNotFound     = errors.New("email not found")
	ErrPasswordIncorrect = errors.New("password incorrect")
)

// LoginInput is the transient login request payload. It is validated,
// never persisted.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// InputError carries the ordered list of failed input constraints.
type InputError struct {
	Fields []apperrors.FieldError
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid login input: " + strings.Join(parts, "; ")
}

// Service is the credential verifier. It validates input shape and
// checks email+password against the user record store.
type Service struct {
	store    user.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a credential verifier backed by the given store.
func NewService(store user.Store, logger *slog.Logger) *Service {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		store:    store,
		validate: v,
		logger:   logger.With(slog.String("component", "credential_verifier")),
	}
}

// Verify validates the login input and checks the credentials against
// the user store. All input violations are collected and returned
// together; the password comparison uses bcrypt, which is slow,
// salted, and constant-time on the hash.
func (s *Service) Verify(ctx context.Context, in LoginInput) (*user.User, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("input validation: %w", err)
		}
		return nil, &InputError{Fields: fieldErrors(verrs)}
	}

	u, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.InfoContext(ctx, "login attempt for unknown email")
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.InfoContext(ctx, "login attempt with wrong password",
				slog.String("user_id", u.ID))
			return nil, ErrPasswordIncorrect
		}
		return nil, fmt.Errorf("password comparison: %w", err)
	}

	return u, nil
}

// fieldErrors maps validator violations onto the wire shape,
// preserving struct field order.
func fieldErrors(verrs validator.ValidationErrors) []apperrors.FieldError {
	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		switch fe.Field() {
		case "email":
			return "Email is required"
		case "password":
			return "Password is required"
		}
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Password must be at least %s characters long", fe.Param())
	default:
		return fmt.Sprintf("Invalid value for %s", fe.Field())
	}
}
