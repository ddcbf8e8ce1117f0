package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/domain/schedule"
	"github.com/rpggio/lectern/internal/graph"
	"github.com/rpggio/lectern/internal/identity"
	"github.com/rpggio/lectern/internal/officeaddin"
	"github.com/rpggio/lectern/internal/presenter"
	"github.com/rpggio/lectern/internal/viewer"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errMissingToken   = errors.New("missing bearer token")
	errInvalidToken   = errors.New("invalid bearer token")
	errInvalidQuery   = errors.New("invalid query parameter")
	errMissingFile    = errors.New("multipart field \"file\" is required")
	errOAuthState     = errors.New("login state mismatch")
	errControlKey     = errors.New("missing or invalid presenter key")
)

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// handleServiceError maps domain errors onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "request validation failed",
			Errors:    translateValidationErrors(vErrs),
		})
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
		if status == http.StatusInternalServerError {
			r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: http.StatusText(status)})
			return
		}
	}
	r.writeError(ctx, w, status, code, err)
}

// classify returns the HTTP status and error code for a service error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, presentation.ErrNotFound), errors.Is(err, presenter.ErrSessionNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, presentation.ErrInvalidInput),
		errors.Is(err, audit.ErrInvalidInput),
		errors.Is(err, schedule.ErrInvalidCSV),
		errors.Is(err, schedule.ErrEmptySchedule),
		errors.Is(err, presenter.ErrInvalidDirection),
		errors.Is(err, presenter.ErrInvalidMode):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, presenter.ErrNoFile):
		return http.StatusConflict, "NO_FILE"
	case errors.Is(err, presenter.ErrNotReady), errors.Is(err, presenter.ErrNoViewURL), errors.Is(err, presenter.ErrClosed):
		return http.StatusConflict, "NOT_READY"
	case errors.Is(err, identity.ErrAuthRequired):
		return http.StatusUnauthorized, "AUTH_REQUIRED"
	case errors.Is(err, identity.ErrNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED"
	case errors.Is(err, viewer.ErrDownloadURLMissing),
		errors.Is(err, viewer.ErrFileNotAccessible),
		errors.Is(err, graph.ErrStorageOperationFailed):
		return http.StatusBadGateway, "STORAGE_ERROR"
	case errors.Is(err, presenter.ErrAddinUnavailable),
		errors.Is(err, officeaddin.ErrHostUnavailable),
		errors.Is(err, officeaddin.ErrNotInitialized),
		errors.Is(err, officeaddin.ErrNotOfficeHost):
		return http.StatusServiceUnavailable, "ADDIN_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
