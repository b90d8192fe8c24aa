package session

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when the server rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized matches a *StatusError for 401 and 403 responses.
	ErrUnauthorized = errors.New("not authorized")
)

// NetworkError reports a request that never produced an HTTP response:
// connect failures, timeouts and cancellation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. Body holds the response body so
// callers can still read business errors the server sends with 4xx codes.
type StatusError struct {
	Path string
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// Is lets errors.Is(err, ErrUnauthorized) match authorization failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}
