package model

import "time"

type GenerationState string

const (
	GenerationPending   GenerationState = "pending"
	GenerationCompleted GenerationState = "completed"
	GenerationFailed    GenerationState = "failed"
)

// FailureKind classifies why a generation failed. It travels with the
// stored status and the error payload so callers never parse messages.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureTimeout    FailureKind = "timeout"
	FailureMalformed  FailureKind = "malformed_response"
	FailureProvider   FailureKind = "provider"
)

type ImageData struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// GenerationResult mirrors the provider's images payload.
type GenerationResult struct {
	Data    []ImageData `json:"data"`
	Created int64       `json:"created"`
}

type GenerationFailure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	Cause     string      `json:"cause,omitempty"`
}

type GenerationStatus struct {
	RequestID string             `json:"request_id"`
	Prompt    string             `json:"prompt"`
	State     GenerationState    `json:"state"`
	Result    *GenerationResult  `json:"result,omitempty"`
	Failure   *GenerationFailure `json:"failure,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func NewPendingStatus(requestID, prompt string, now time.Time) *GenerationStatus {
	return &GenerationStatus{
		RequestID: requestID,
		Prompt:    prompt,
		State:     GenerationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *GenerationStatus) IsTerminal() bool {
	return s.State == GenerationCompleted || s.State == GenerationFailed
}

// Complete returns a completed copy of a pending status.
func (s *GenerationStatus) Complete(result *GenerationResult, now time.Time) *GenerationStatus {
	out := *s
	out.State = GenerationCompleted
	out.Result = result
	out.Failure = nil
	out.UpdatedAt = now
	return &out
}

// Fail returns a failed copy of a pending status.
func (s *GenerationStatus) Fail(failure *GenerationFailure, now time.Time) *GenerationStatus {
	out := *s
	out.State = GenerationFailed
	out.Result = nil
	out.Failure = failure
	out.UpdatedAt = now
	return &out
}
