package presentation

import "errors"

var (
	// ErrNotFound indicates the presentation doesn't exist.
	ErrNotFound = errors.New("presentation not found")
	// ErrInvalidInput indicates invalid presentation input.
	ErrInvalidInput = errors.New("invalid presentation input")
)
