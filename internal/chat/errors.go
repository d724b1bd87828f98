package chat

import (
	"errors"
	"fmt"

	"ask-ai/internal/models"
)

var (
	ErrEmptyMessage       = errors.New("message is required")
	ErrBackendUnavailable = errors.New("chat service not available, check server configuration")
	ErrStaleSession       = errors.New("session was reset while the request was in flight")
	ErrNoDocument         = errors.New("no document loaded")
)

// RequestError is a failed model round trip.
type RequestError struct {
	RequestType models.RequestType
	Err         error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.RequestType, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
