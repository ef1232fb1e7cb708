package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"appgate/internal/user"
)

func testService(t *testing.T) (*Service, *user.MemoryStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)

	store := user.NewMemoryStore()
	store.Add(user.User{
		ID:           "u-1",
		Email:        "ok@user.com",
		PasswordHash: string(hash),
		FirstName:    "Olga",
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger), store
}

func TestVerifyInputValidation(t *testing.T) {
	svc, _ := testService(t)

	tests := []struct {
		name       string
		input      LoginInput
		wantFields []string
	}{
		{
			name:       "malformed email",
			input:      LoginInput{Email: "not-an-email", Password: "longenough1"},
			wantFields: []string{"email"},
		},
		{
			name:       "short password",
			input:      LoginInput{Email: "ok@user.com", Password: "short"},
			wantFields: []string{"password"},
		},
		{
			name:       "missing password",
			input:      LoginInput{Email: "x@y.com"},
			wantFields: []string{"password"},
		},
		{
			name:       "both violations collected together",
			input:      LoginInput{Email: "not-an-email", Password: "short"},
			wantFields: []string{"email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tt.input)
			require.Error(t, err)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)

			fields := make([]string, 0, len(inputErr.Fields))
			for _, f := range inputErr.Fields {
				fields = append(fields, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestVerifyUnknownEmail(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Verify(context.Background(), LoginInput{
		Email:    "new@user.com",
		Password: "longenough1",
	})
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestVerifyWrongPassword(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Verify(context.Background(), LoginInput{
		Email:    "ok@user.com",
		Password: "wrongpassword",
	})
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
}

func TestVerifySuccess(t *testing.T) {
	svc, _ := testService(t)

	u, err := svc.Verify(context.Background(), LoginInput{
		Email:    "ok@user.com",
		Password: "correctpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "Olga", u.FirstName)
}

func TestVerifyEmailCaseInsensitive(t *testing.T) {
	svc, _ := testService(t)

	u, err := svc.Verify(context.Background(), LoginInput{
		Email:    "OK@USER.COM",
		Password: "correctpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}
