package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Parse for tokens that fail signature
// or expiry checks.
var ErrInvalidToken = errors.New("invalid session token")

// Issuer mints signed, time-bounded session tokens. The signing
// secret is process-wide, loaded once at startup.
type Issuer struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewIssuer creates a session issuer. Secure cookies are enabled only
// for production deployments; local development stays on plain HTTP.
func NewIssuer(secret string, ttl time.Duration, cookieName string, production bool) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		secure:     production,
		now:        time.Now,
	}
}

// Issue mints a token with subject = userID and the configured
// lifetime, and builds the session cookie carrying it. The cookie is
// the only state handed out; nothing is recorded server-side.
func (i *Issuer) Issue(userID string) (string, *http.Cookie, error) {
	now := i.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     i.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(i.ttl.Seconds()),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}

	return signed, cookie, nil
}

// Parse verifies a token's signature and expiry and returns its
// subject.
func (i *Issuer) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
