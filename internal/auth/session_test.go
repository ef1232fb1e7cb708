package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("super-secret", 2*time.Hour, "token", false)

	token, cookie, err := issuer.Issue("u-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-123", subject)

	assert.Equal(t, token, cookie.Value)
}

func TestCookieAttributes(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		issuer := NewIssuer("secret", 2*time.Hour, "token", false)
		_, cookie, err := issuer.Issue("u-1")
		require.NoError(t, err)

		assert.Equal(t, "token", cookie.Name)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 7200, cookie.MaxAge)
		assert.True(t, cookie.HttpOnly)
		assert.False(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	})

	t.Run("production sets Secure", func(t *testing.T) {
		issuer := NewIssuer("secret", 2*time.Hour, "token", true)
		_, cookie, err := issuer.Issue("u-1")
		require.NoError(t, err)
		assert.True(t, cookie.Secure)
	})
}

func TestParseExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", 2*time.Hour, "token", false)
	issuer.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }

	token, _, err := issuer.Issue("u-1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseWrongSecret(t *testing.T) {
	issuer := NewIssuer("right-secret", 2*time.Hour, "token", false)
	token, _, err := issuer.Issue("u-1")
	require.NoError(t, err)

	other := NewIssuer("wrong-secret", 2*time.Hour, "token", false)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseMalformedToken(t *testing.T) {
	issuer := NewIssuer("secret", 2*time.Hour, "token", false)
	_, err := issuer.Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
