package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the minimal error payload used for request-level rejections.
type ErrorBody struct {
	Error string `json:"error"`
}

// FailureDetails carries diagnostics for a failed generation.
type FailureDetails struct {
	Name  string `json:"name"`
	Cause string `json:"cause,omitempty"`
}

// FailureBody describes a generation that reached a failed state.
type FailureBody struct {
	Error     string          `json:"error"`
	Kind      string          `json:"kind"`
	Retryable bool            `json:"retryable"`
	Details   *FailureDetails `json:"details,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type PendingBody struct {
	Status    string `json:"status"`
	RequestID string `json:"requestId"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Pending(c *gin.Context, requestID string) {
	c.JSON(http.StatusAccepted, PendingBody{Status: "pending", RequestID: requestID})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// Failure writes a 500 with the failure kind so clients can decide whether to
// retry. at is the moment the failure was recorded.
func Failure(c *gin.Context, message, kind string, retryable bool, details *FailureDetails, at time.Time) {
	c.JSON(http.StatusInternalServerError, FailureBody{
		Error:     message,
		Kind:      kind,
		Retryable: retryable,
		Details:   details,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
}
