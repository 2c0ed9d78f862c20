package service

import (
	"errors"

	"pictura/imagegen/internal/model"
)

// GenerationError carries a failure kind so transports and clients can act
// on it without inspecting the message.
type GenerationError struct {
	Kind      model.FailureKind
	Message   string
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string { return e.Message }

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Failure() *model.GenerationFailure {
	f := &model.GenerationFailure{Kind: e.Kind, Message: e.Message, Retryable: e.Retryable}
	if e.Err != nil {
		f.Cause = e.Err.Error()
	}
	return f
}

var (
	ErrPromptRequired    = &GenerationError{Kind: model.FailureValidation, Message: "prompt is required"}
	ErrProviderTimeout   = errors.New("provider call exceeded deadline")
	ErrMalformedResponse = errors.New("provider response has no image list")
)

const (
	msgTimeout   = "image generation timed out, please retry"
	msgMalformed = "invalid provider response format"
)
