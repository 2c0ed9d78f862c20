package provider

import (
	"context"
	"time"
)

// staticProvider answers every prompt with the same image after a delay.
// Useful for running the stack locally without provider credentials.
type staticProvider struct {
	url   string
	delay time.Duration
	now   func() time.Time
}

func NewStaticProvider(url string, delay time.Duration) ImageProvider {
	return &staticProvider{url: url, delay: delay, now: time.Now}
}

func (p *staticProvider) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	n := req.N
	if n <= 0 {
		n = 1
	}
	images := make([]Image, n)
	for i := range images {
		images[i] = Image{URL: p.url, RevisedPrompt: req.Prompt}
	}
	return &ImageResponse{Images: images, Created: p.now().Unix()}, nil
}
