package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider talks to an OpenAI-compatible images endpoint.
// An empty baseURL uses the SDK default.
func NewOpenAIProvider(baseURL, apiKey string) (ImageProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// the generation service owns retries and the deadline
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{client: openai.NewClient(opts...)}, nil
}

func (p *openAIProvider) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(req.Model),
		N:      openai.Int(int64(req.N)),
		Size:   openai.ImageGenerateParamsSize(req.Size),
	}

	resp, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &Error{Provider: "openai", StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
		}
		return nil, &Error{Provider: "openai", Message: err.Error(), Err: err}
	}
	if resp == nil {
		return nil, nil
	}

	out := &ImageResponse{Created: resp.Created}
	if resp.Data != nil {
		out.Images = make([]Image, 0, len(resp.Data))
		for _, d := range resp.Data {
			out.Images = append(out.Images, Image{URL: d.URL, RevisedPrompt: d.RevisedPrompt})
		}
	}
	return out, nil
}
