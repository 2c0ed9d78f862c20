package genclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const KindTimeout = "timeout"

var (
	// ErrPollTimeout is returned when a request stays pending past MaxWait.
	ErrPollTimeout = errors.New("image generation is taking too long, please try again")
	ErrEmptyPrompt = errors.New("prompt is required")
)

// ErrorDetails holds the diagnostics the server attaches to a failure.
type ErrorDetails struct {
	Name  string `json:"name"`
	Cause string `json:"cause,omitempty"`
}

// APIError is a failure reported by the generation endpoint.
type APIError struct {
	Status    int
	Message   string
	Kind      string
	Retryable bool
	Details   *ErrorDetails
	Timestamp string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// IsTimeout reports whether err is a provider timeout worth retrying from
// scratch.
func IsTimeout(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

type errorBody struct {
	Error     string        `json:"error"`
	Kind      string        `json:"kind"`
	Retryable bool          `json:"retryable"`
	Details   *ErrorDetails `json:"details"`
	Timestamp string        `json:"timestamp"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Message = eb.Error
	apiErr.Kind = eb.Kind
	apiErr.Retryable = eb.Retryable
	apiErr.Details = eb.Details
	apiErr.Timestamp = eb.Timestamp
	return apiErr
}
