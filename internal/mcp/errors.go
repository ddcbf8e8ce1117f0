package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/rpggio/lectern/internal/domain/presentation"
	"github.com/rpggio/lectern/internal/graph"
	"github.com/rpggio/lectern/internal/identity"
	"github.com/rpggio/lectern/internal/officeaddin"
	"github.com/rpggio/lectern/internal/presenter"
	"github.com/rpggio/lectern/internal/viewer"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to
// INTERNAL with the original message.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, presentation.ErrNotFound):
		return &APIError{Code: "PRESENTATION_NOT_FOUND", Message: "presentation not found", RecoveryHint: "Use list_presentations to find the ID"}
	case errors.Is(err, presenter.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "no presenter session is open", RecoveryHint: "Call open_presenter first"}
	case errors.Is(err, presenter.ErrNoFile):
		return &APIError{Code: "NO_FILE", Message: "presentation has no file attached", RecoveryHint: "Upload a file before presenting"}
	case errors.Is(err, presenter.ErrNotReady), errors.Is(err, presenter.ErrClosed):
		return &APIError{Code: "NOT_READY", Message: err.Error(), RecoveryHint: "Check presenter_state and reopen the session"}
	case errors.Is(err, presenter.ErrNoViewURL):
		return &APIError{Code: "NO_VIEW_URL", Message: "no viewer URL resolved", RecoveryHint: "Reopen the presenter once the file is accessible"}
	case errors.Is(err, presenter.ErrInvalidDirection), errors.Is(err, presenter.ErrInvalidMode),
		errors.Is(err, presentation.ErrInvalidInput), errors.Is(err, audit.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, identity.ErrAuthRequired):
		return &APIError{Code: "AUTH_REQUIRED", Message: "storage account sign-in required", RecoveryHint: "Visit /auth/login"}
	case errors.Is(err, viewer.ErrDownloadURLMissing), errors.Is(err, viewer.ErrFileNotAccessible),
		errors.Is(err, graph.ErrStorageOperationFailed):
		return &APIError{Code: "STORAGE_ERROR", Message: err.Error()}
	case errors.Is(err, presenter.ErrAddinUnavailable), errors.Is(err, officeaddin.ErrHostUnavailable),
		errors.Is(err, officeaddin.ErrNotInitialized), errors.Is(err, officeaddin.ErrNotOfficeHost):
		return &APIError{Code: "ADDIN_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Open the lectern task pane in PowerPoint"}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
