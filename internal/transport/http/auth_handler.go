package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"appgate/internal/auth"
	apperrors "appgate/internal/errors"
	"appgate/internal/user"
)

// AuthHandler handles the login endpoint. Validation and
// authentication failures become typed HTTP responses here; nothing
// below this boundary writes to the client.
type AuthHandler struct {
	verifier *auth.Service
	issuer   *auth.Issuer
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(verifier *auth.Service, issuer *auth.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		issuer:   issuer,
		logger:   logger.With(slog.String("handler", "auth")),
	}
}

// Routes returns a chi router for auth endpoints.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// LoginResponse is the success payload. The user record's password
// hash never serializes.
type LoginResponse struct {
	Success bool       `json:"success"`
	User    *user.User `json:"user"`
}

// Render implements the render.Renderer interface
func (l *LoginResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in auth.LoginInput
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		render.Render(w, r, apperrors.MalformedBody())
		return
	}

	u, err := h.verifier.Verify(ctx, in)
	if err != nil {
		var inputErr *auth.InputError
		switch {
		case errors.As(err, &inputErr):
			render.Render(w, r, apperrors.ValidationFailed(inputErr.Fields))
		case errors.Is(err, auth.ErrEmailNotFound):
			render.Render(w, r, apperrors.ErrEmailNotFound)
		case errors.Is(err, auth.ErrPasswordIncorrect):
			render.Render(w, r, apperrors.ErrIncorrectPassword)
		default:
			h.logger.ErrorContext(ctx, "login failed unexpectedly",
				slog.String("error", err.Error()))
			render.Render(w, r, apperrors.ErrInternal)
		}
		return
	}

	_, cookie, err := h.issuer.Issue(u.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session",
			slog.String("error", err.Error()),
			slog.String("user_id", u.ID))
		render.Render(w, r, apperrors.ErrInternal)
		return
	}

	http.SetCookie(w, cookie)

	h.logger.InfoContext(ctx, "login succeeded", slog.String("user_id", u.ID))
	render.Render(w, r, &LoginResponse{Success: true, User: u})
}
