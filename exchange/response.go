package exchange

import (
	"io"
	"net/http"

	"github.com/nojima/dashreq/internal/json"
	"github.com/pkg/errors"
)

// Response is the envelope returned by every call, whatever the outcome.
//
// Error is non-empty exactly when the call did not succeed. The payload
// accessors (Data, Bytes, Text, Body, Decode) return the failure instead of a
// value in that case, so a payload is never observed alongside an error.
type Response struct {
	Status int
	Proto  string
	Header http.Header
	Error  string

	method       string
	url          string
	responseType ResponseType
	data         any
	raw          []byte
	stream       io.ReadCloser
	failure      error
}

// FailedResponse builds a response for a call that never obtained a status.
func FailedResponse(method, url string, err error) *Response {
	message := err.Error()
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		message = ConnectionFailedMessage
	}
	return &Response{
		Status:  StatusNoResponse,
		Header:  make(http.Header),
		Error:   message,
		method:  method,
		url:     url,
		failure: err,
	}
}

// OK reports whether the call succeeded.
func (r *Response) OK() bool {
	return r.failure == nil
}

// CheckError returns the same error the payload accessors would return, or
// nil on success.
func (r *Response) CheckError() error {
	return r.failure
}

// Err is CheckError under the conventional name.
func (r *Response) Err() error {
	return r.failure
}

func (r *Response) Method() string { return r.method }

func (r *Response) URL() string { return r.url }

// Data returns the decoded body: a generic JSON value, a string, a []byte or
// an io.ReadCloser depending on the requested ResponseType.
func (r *Response) Data() (any, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	if r.responseType == StreamResponse {
		return r.stream, nil
	}
	return r.data, nil
}

// Bytes returns the raw body bytes. It fails for stream responses.
func (r *Response) Bytes() ([]byte, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	if r.responseType == StreamResponse {
		return nil, errors.New("response body is a stream")
	}
	return r.raw, nil
}

func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Body returns the live body of a stream response. The caller must close it.
func (r *Response) Body() (io.ReadCloser, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	if r.stream == nil {
		return nil, errors.New("response body is not a stream")
	}
	return r.stream, nil
}

// Close releases a stream body. It is a no-op for buffered responses.
func (r *Response) Close() error {
	if r.stream == nil {
		return nil
	}
	return r.stream.Close()
}

// Decode unmarshals the body of a successful response into a T.
func Decode[T any](r *Response) (T, error) {
	var v T
	if r.failure != nil {
		return v, r.failure
	}
	if r.responseType == StreamResponse {
		defer r.stream.Close()
		data, err := io.ReadAll(r.stream)
		if err != nil {
			return v, errors.Wrap(err, "reading response stream")
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return v, errors.Wrap(err, "decoding response body")
		}
		return v, nil
	}
	if len(r.raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(r.raw, &v); err != nil {
		return v, errors.Wrap(err, "decoding response body")
	}
	return v, nil
}
