// Package provider wraps the external image-generation API.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ImageRequest struct {
	Prompt string
	Model  string
	N      int
	Size   string
}

type Image struct {
	URL           string
	RevisedPrompt string
}

// ImageResponse is the provider payload. Images is nil when the upstream
// body carried no image list at all.
type ImageResponse struct {
	Images  []Image
	Created int64
}

// ImageProvider generates images for a prompt. Implementations must honour
// ctx cancellation.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// Error is returned for failures reported by the upstream API.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether the upstream failure is worth retrying.
func (e *Error) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

type Options struct {
	Backend string
	BaseURL string
	APIKey  string

	StaticURL   string
	StaticDelay time.Duration
}

// New builds the provider selected by opts.Backend.
func New(opts Options) (ImageProvider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "openai":
		return NewOpenAIProvider(opts.BaseURL, opts.APIKey)
	case "static":
		return NewStaticProvider(opts.StaticURL, opts.StaticDelay), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s", opts.Backend)
	}
}
