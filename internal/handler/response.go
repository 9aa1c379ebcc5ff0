package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Every response body has a "message" field. Existing clients of the signal
// API only ever look at that field, and they expect the old text in it.
//
// TWO RESPONSE MODES:
//   strict  failures get a 4xx/5xx status and an extra machine-readable
//           "error" field: {"error": "not_found", "message": "..."}
//   compat  every request gets 200 and only {"message": "..."}, the contract
//           the first version of the service shipped with
//
// The mode is chosen once at startup (RESPONSE_MODE) and passed to the handlers.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/signal-registry/internal/apperror"
)

// Mode selects how failures are reported to clients.
type Mode string

const (
	ModeStrict Mode = "strict"
	ModeCompat Mode = "compat"
)

// Error codes that do not come from an apperror.Kind.
const (
	codeInvalidJSON = "invalid_json"
	codeInternal    = "internal_error"
)

// MsgInvalidJSON is returned when the request body is not a JSON object.
const MsgInvalidJSON = "Invalid JSON body"

// msgInternal is the only text a client sees for unexpected errors.
const msgInternal = "An internal error occurred"

// ErrorResponse is the error format returned in strict mode.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Legacy human-readable text
}

// MessageResponse is the error format returned in compat mode.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status MUST be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to an HTTP status and machine-readable code.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w", err) still maps correctly.
func statusFor(err error) (int, string) {
	kind := string(apperror.KindOf(err))

	switch {
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, kind
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, kind
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, kind
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, kind
	}
	return http.StatusInternalServerError, codeInternal
}

// writeError reports err to the client according to mode.
//
// Only *apperror.AppError messages reach the client. Anything else (SQL
// errors, file paths) is replaced by a generic message and logged by the caller.
func writeError(w http.ResponseWriter, mode Mode, err error) {
	status, code := statusFor(err)

	message := msgInternal
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else {
		status, code = http.StatusInternalServerError, codeInternal
	}

	writeFailure(w, mode, status, code, message)
}

// writeFailure sends a failure body in the shape mode calls for.
func writeFailure(w http.ResponseWriter, mode Mode, status int, code, message string) {
	if mode == ModeCompat {
		writeJSON(w, http.StatusOK, MessageResponse{Message: message})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
