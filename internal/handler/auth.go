package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/profiles-api/internal/domain"
	"github.com/msomdec/profiles-api/internal/service"
)

// LoginRecorder counts login outcomes.
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuthHandler issues tokens.
type AuthHandler struct {
	auth    *service.AuthService
	metrics LoginRecorder
}

// NewAuthHandler creates a new AuthHandler. metrics may be nil.
func NewAuthHandler(auth *service.AuthService, metrics LoginRecorder) *AuthHandler {
	return &AuthHandler{auth: auth, metrics: metrics}
}

// HandleLogin exchanges credentials for a token.
// POST /login/
// Request:  {"username":"<email>","password":"..."}
// Response: {"token":"..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			h.record("invalid")
			writeValidationError(w, verr)
		case errors.Is(err, domain.ErrUnauthorized):
			h.record("invalid")
			writeValidationError(w, domain.NewValidationError("non_field_errors", "Unable to log in with provided credentials."))
		default:
			h.record("error")
			writeServiceError(w, r, "login", err)
		}
		return
	}

	h.record("success")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}
