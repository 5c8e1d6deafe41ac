package newsapi

import (
	"errors"
	"fmt"
)

// ErrDecode marks a payload that does not have the expected shape.
var ErrDecode = errors.New("decoding response")

func wrapDecode(err error) error {
	if errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

// StatusError is returned when the server answers with an HTTP error status
// and a body that is not a structured API error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error: %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error: %d: %s", e.StatusCode, e.Body)
}

// APIError wraps a structured error payload for calls that do not return a
// SearchResult, such as Sources.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("news api: %s (%s)", e.Message, e.Code)
	}
	if msg := (&ErrorResponse{Code: e.Code, Message: e.Message}).Describe(); msg != "" {
		return "news api: " + msg
	}
	return "news api: unknown error"
}
