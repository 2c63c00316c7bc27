package copilot

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Copilot API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("copilot API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the Copilot API. Callers use
// this to distinguish "no such report" (fall back to text pricing) from other
// failures.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrMalformedResponse marks upstream payloads that could not be decoded.
// The transport layer maps these to a client-visible parse error rather than
// a generic server failure.
var ErrMalformedResponse = errors.New("malformed copilot response")
