package presenter

import "errors"

var (
	// ErrNotReady indicates the session has not finished loading or failed.
	ErrNotReady = errors.New("presenter not ready")
	// ErrNoViewURL indicates the audience view was requested before a
	// viewer URL was resolved.
	ErrNoViewURL = errors.New("no view url available")
	// ErrSessionNotFound indicates no presenter session is open for the
	// presentation.
	ErrSessionNotFound = errors.New("presenter session not found")
	// ErrNoFile indicates the presentation has no attached file.
	ErrNoFile = errors.New("presentation has no file")
	// ErrInvalidDirection indicates a direction other than next or prev.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrInvalidMode indicates an unknown navigation mode.
	ErrInvalidMode = errors.New("invalid presenter mode")
	// ErrAddinUnavailable indicates add-in mode was requested without an
	// Office host bridge.
	ErrAddinUnavailable = errors.New("office add-in not available")
	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("presenter session closed")
)
