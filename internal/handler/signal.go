// Package handler turns HTTP requests into service calls and service results
// into JSON responses. Handlers hold no business rules: validation order,
// messages and object-store checks all live in the service layer.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/signal-registry/internal/auth"
	"github.com/sakif/signal-registry/internal/model"
	"github.com/sakif/signal-registry/internal/service"
)

// maxBodyBytes bounds request bodies. Signal requests are a handful of short fields.
const maxBodyBytes = 1 << 20

// SignalService is the subset of *service.SignalService the handler needs.
// Declared here, where it is used, so tests can substitute a fake.
type SignalService interface {
	Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error)
	Modify(ctx context.Context, in service.ModifyInput) (*service.ModifyResult, error)
	Read(ctx context.Context, in service.ReadInput) (*service.ReadResult, error)
	Delete(ctx context.Context, in service.DeleteInput) (*service.DeleteResult, error)
}

// SignalHandler serves the /api/signal routes.
type SignalHandler struct {
	signals SignalService
	mode    Mode
	logger  *slog.Logger
}

// NewSignalHandler creates a new SignalHandler. An empty mode means ModeStrict.
func NewSignalHandler(signals SignalService, mode Mode, logger *slog.Logger) *SignalHandler {
	if mode == "" {
		mode = ModeStrict
	}
	return &SignalHandler{signals: signals, mode: mode, logger: logger}
}

// looseString accepts a JSON string or a JSON number and keeps the raw text.
//
// Clients send signal_id both as "12" and as 12. A number is kept exactly as
// written (12.5 stays "12.5") so the digits-only check downstream rejects it.
// null is treated as absent.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(num.String())
	return nil
}

// signalRequest is the JSON body shared by all signal endpoints.
type signalRequest struct {
	UserID      looseString `json:"user_id"`
	SignalID    looseString `json:"signal_id"`
	Description string      `json:"signal_description"`
	// ObjectKey is a pointer so "absent" and "empty" can be told apart.
	ObjectKey *string `json:"s3"`
}

// SignalResponse is returned by create and modify.
type SignalResponse struct {
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// ReadResponse is returned by a successful read.
type ReadResponse struct {
	Message   string `json:"message"`
	CSVString string `json:"csv_string"`
}

// decodeRequest reads the JSON body into req.
//
// An empty body is not an error: req stays zero-valued and the service
// reports the missing fields with its usual messages.
// It reports whether a body was present.
func decodeRequest(r *http.Request, req *signalRequest) (bool, error) {
	err := json.NewDecoder(r.Body).Decode(req)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return true, err
}

// decode wraps decodeRequest with the body size limit and the invalid-JSON
// response. It returns false when a response has already been written.
func (h *SignalHandler) decode(w http.ResponseWriter, r *http.Request, req *signalRequest) (present, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	present, err := decodeRequest(r, req)
	if err != nil {
		h.logger.Warn("invalid signal JSON",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeFailure(w, h.mode, http.StatusBadRequest, codeInvalidJSON, MsgInvalidJSON)
		return present, false
	}
	return present, true
}

// fail writes err and logs anything that is not a client mistake.
func (h *SignalHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := statusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error("signal request failed",
			slog.String("path", r.URL.Path),
			auth.SubjectAttr(r.Context()),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, h.mode, err)
}

// === CREATE ===

// HandleCreate registers a new signal under a freshly allocated ID.
//
// HTTP: POST /api/signal/create
// REQUEST BODY: {"user_id": "7", "signal_description": "...", "s3": "prices.csv"}
//
// A signal_id in the body is accepted and ignored.
func (h *SignalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	res, err := h.signals.Create(r.Context(), service.CreateInput{
		UserID:      string(req.UserID),
		Description: req.Description,
		ObjectKey:   req.ObjectKey,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SignalResponse{Message: res.Message, Signal: res.Signal})
}

// === MODIFY ===

// HandleModify changes the description and optionally the CSV file of a signal.
//
// HTTP: PUT /api/signal/modify
func (h *SignalHandler) HandleModify(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	res, err := h.signals.Modify(r.Context(), service.ModifyInput{
		UserID:      string(req.UserID),
		SignalID:    string(req.SignalID),
		Description: req.Description,
		ObjectKey:   req.ObjectKey,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SignalResponse{Message: res.Message, Signal: res.Signal})
}

// === READ ===

// HandleRead returns the CSV content behind a signal.
//
// HTTP: GET /api/signal/read
//
// The IDs come from the JSON body. Many HTTP clients cannot send a body with
// GET, so when the body is empty ?user_id=&signal_id= is used instead.
func (h *SignalHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	present, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	if !present {
		q := r.URL.Query()
		req.UserID = looseString(q.Get("user_id"))
		req.SignalID = looseString(q.Get("signal_id"))
	}

	res, err := h.signals.Read(r.Context(), service.ReadInput{
		UserID:   string(req.UserID),
		SignalID: string(req.SignalID),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReadResponse{Message: res.Message, CSVString: res.CSV})
}

// === DELETE ===

// HandleDelete removes a signal and, if nothing else uses it, its CSV file.
//
// HTTP: DELETE /api/signal/modify
func (h *SignalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	res, err := h.signals.Delete(r.Context(), service.DeleteInput{
		UserID:      string(req.UserID),
		SignalID:    string(req.SignalID),
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: res.Message})
}
