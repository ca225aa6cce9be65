package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/identikit/identikit/auth"
)

// envelope is the uniform response shape. Data is omitted for plain
// acknowledgements.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), envelope{Success: false, Message: publicMessage(err)})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message})
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidProviderToken),
		errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrNoPasswordSet):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrExpiredOTP),
		errors.Is(err, auth.ErrResetNotVerified),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrEmailAlreadyVerified):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps internal failure detail out of responses while
// passing the service's own sentinel texts through.
func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	for _, sentinel := range []error{
		auth.ErrUnauthorized,
		auth.ErrInvalidCredentials,
		auth.ErrInvalidProviderToken,
		auth.ErrAccountInactive,
		auth.ErrEmailNotVerified,
		auth.ErrNoPasswordSet,
		auth.ErrEmailTaken,
		auth.ErrUsernameTaken,
		auth.ErrUserNotFound,
		auth.ErrSessionNotFound,
		auth.ErrInvalidOTP,
		auth.ErrExpiredOTP,
		auth.ErrResetNotVerified,
		auth.ErrPasswordMismatch,
		auth.ErrEmailAlreadyVerified,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
