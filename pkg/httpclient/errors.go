package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidResponse is returned when a response body cannot be decoded.
var ErrInvalidResponse = errors.New("invalid response body")

// TransportError describes a request that failed on the network or was
// answered with a non-2xx status.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a TransportError carrying the given status code.
func IsStatus(err error, statusCode int) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == statusCode
	}
	return false
}
