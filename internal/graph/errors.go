package graph

import (
	"errors"
	"fmt"
)

// ErrStorageOperationFailed matches every *StatusError.
var ErrStorageOperationFailed = errors.New("storage operation failed")

// StatusError reports a non-2xx response from the storage provider.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to %s: %d - %s", e.Op, e.Status, e.Body)
}

// Is makes errors.Is(err, ErrStorageOperationFailed) hold.
func (e *StatusError) Is(target error) bool {
	return target == ErrStorageOperationFailed
}
