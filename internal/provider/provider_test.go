package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_ReturnsConfiguredURL(t *testing.T) {
	p := NewStaticProvider("https://img/static.png", 0)

	resp, err := p.GenerateImage(context.Background(), ImageRequest{Prompt: "a boat", N: 2})
	require.NoError(t, err)
	require.Len(t, resp.Images, 2)
	assert.Equal(t, "https://img/static.png", resp.Images[0].URL)
	assert.Equal(t, "a boat", resp.Images[1].RevisedPrompt)
	assert.NotZero(t, resp.Created)
}

func TestStaticProvider_HonoursDeadline(t *testing.T) {
	p := NewStaticProvider("https://img/static.png", time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.GenerateImage(ctx, ImageRequest{Prompt: "slow"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNew_SelectsBackend(t *testing.T) {
	p, err := New(Options{Backend: "static", StaticURL: "u"})
	require.NoError(t, err)
	assert.IsType(t, &staticProvider{}, p)

	_, err = New(Options{Backend: "openai"})
	assert.Error(t, err, "missing api key")

	p, err = New(Options{Backend: "openai", APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"})
	require.NoError(t, err)
	assert.IsType(t, &openAIProvider{}, p)

	_, err = New(Options{Backend: "midjourney"})
	assert.Error(t, err)
}

func TestError_Temporary(t *testing.T) {
	assert.True(t, (&Error{StatusCode: 429}).Temporary())
	assert.True(t, (&Error{StatusCode: 502}).Temporary())
	assert.False(t, (&Error{StatusCode: 400}).Temporary())
	assert.Contains(t, (&Error{Provider: "openai", Message: "bad prompt", StatusCode: 400}).Error(), "bad prompt")
}
