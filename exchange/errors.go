package exchange

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const (
	// ConnectionFailedMessage is the Response.Error of every call that never
	// obtained a status from the server.
	ConnectionFailedMessage = "connection failed"

	// StatusNoResponse marks a response that never reached the network or
	// never got a status.
	StatusNoResponse = -1
)

var (
	// ErrBaseURLNotSet is reported when no backend origin is configured.
	ErrBaseURLNotSet = errors.New("Base API url is not set")

	// ErrUnauthorized matches any *RequestError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches any *RequestError with status 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches any *RequestError with status 404.
	ErrNotFound = errors.New("not found")
)

// RequestError is raised when the server answered with a non-2xx status.
type RequestError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s %s failed: %s", e.Method, e.URL, e.Message)
}

// Is implements errors.Is for the status sentinels.
func (e *RequestError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusForbidden:
		return target == ErrForbidden
	case http.StatusNotFound:
		return target == ErrNotFound
	}
	return false
}

// ConnectionError is raised when no status was obtained (DNS, connect,
// TLS, timeout, cancellation). Cause holds the underlying error.
type ConnectionError struct {
	Method string
	URL    string
	Cause  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, ConnectionFailedMessage, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
