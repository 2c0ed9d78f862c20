package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pictura/imagegen/internal/metrics"
	"pictura/imagegen/internal/model"
	"pictura/imagegen/internal/provider"
	"pictura/imagegen/internal/repository"
)

type fakeProvider struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req provider.ImageRequest) (*provider.ImageResponse, error)
}

func (p *fakeProvider) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.ImageResponse, error) {
	p.calls.Add(1)
	return p.fn(ctx, req)
}

func okProvider() *fakeProvider {
	return &fakeProvider{fn: func(_ context.Context, req provider.ImageRequest) (*provider.ImageResponse, error) {
		return &provider.ImageResponse{
			Images:  []provider.Image{{URL: "https://img/" + req.Prompt + ".png", RevisedPrompt: "revised " + req.Prompt}},
			Created: 1700000000,
		}, nil
	}}
}

type testEnv struct {
	svc      GenerationService
	statuses repository.StatusRepository
	store    repository.StateStore
}

func newTestEnv(t *testing.T, p provider.ImageProvider, cfg GenerationConfig) testEnv {
	t.Helper()
	if cfg.ProviderTimeout == 0 {
		cfg.ProviderTimeout = time.Second
	}
	if cfg.ResponseWait == 0 {
		cfg.ResponseWait = 2 * time.Second
	}
	cfg.Model, cfg.Size = "dall-e-3", "1024x1024"

	store := repository.NewMemoryStateStore()
	statuses := repository.NewStatusRepository(store, 30*time.Minute)
	svc := NewGenerationService(statuses, p, cfg, zap.NewNop(), metrics.NewCollector("test"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return testEnv{svc: svc, statuses: statuses, store: store}
}

func TestGenerate_EmptyPromptRejected(t *testing.T) {
	p := okProvider()
	env := newTestEnv(t, p, GenerationConfig{})
	ctx := context.Background()

	// a tracked, completed request ID does not bypass validation
	st, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "cat", RequestID: "req-1"})
	require.NoError(t, err)
	require.Equal(t, model.GenerationCompleted, st.State)

	for _, req := range []GenerateRequest{
		{Prompt: ""},
		{Prompt: "   "},
		{Prompt: "", RequestID: "req-1"},
		{Prompt: "", RequestID: "unknown"},
	} {
		_, err := env.svc.Generate(ctx, req)
		assert.ErrorIs(t, err, ErrPromptRequired)
	}
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGenerate_CompletedIsCached(t *testing.T) {
	p := okProvider()
	env := newTestEnv(t, p, GenerationConfig{})
	ctx := context.Background()

	st, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "cat", RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, model.GenerationCompleted, st.State)
	require.Len(t, st.Result.Data, 1)
	assert.Equal(t, "https://img/cat.png", st.Result.Data[0].URL)
	assert.Equal(t, "revised cat", st.Result.Data[0].RevisedPrompt)
	assert.Equal(t, int64(1700000000), st.Result.Created)

	again, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "cat", RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, st.Result, again.Result)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGenerate_AssignsRequestID(t *testing.T) {
	env := newTestEnv(t, okProvider(), GenerationConfig{})

	st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "dog"})
	require.NoError(t, err)
	assert.NotEmpty(t, st.RequestID)

	stored, err := env.statuses.Get(context.Background(), st.RequestID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.GenerationCompleted, stored.State)
}

func TestGenerate_ProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	// ignores ctx to show the wrapper stops waiting on its own
	p := &fakeProvider{fn: func(context.Context, provider.ImageRequest) (*provider.ImageResponse, error) {
		<-release
		return nil, errors.New("too late")
	}}
	env := newTestEnv(t, p, GenerationConfig{ProviderTimeout: 30 * time.Millisecond})

	st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "slow", RequestID: "req-t"})
	require.NoError(t, err)
	require.Equal(t, model.GenerationFailed, st.State)
	assert.Equal(t, model.FailureTimeout, st.Failure.Kind)
	assert.True(t, st.Failure.Retryable)
	assert.Contains(t, st.Failure.Message, "timed out")

	stored, err := env.statuses.Get(context.Background(), "req-t")
	require.NoError(t, err)
	assert.Equal(t, model.GenerationFailed, stored.State)
	assert.Equal(t, model.FailureTimeout, stored.Failure.Kind)
}

func TestGenerate_ContextAwareProviderTimeout(t *testing.T) {
	p := &fakeProvider{fn: func(ctx context.Context, _ provider.ImageRequest) (*provider.ImageResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	env := newTestEnv(t, p, GenerationConfig{ProviderTimeout: 20 * time.Millisecond})

	st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "slow"})
	require.NoError(t, err)
	assert.Equal(t, model.FailureTimeout, st.Failure.Kind)
}

func TestGenerate_MalformedResponse(t *testing.T) {
	cases := map[string]*provider.ImageResponse{
		"nil response": nil,
		"nil list":     {Created: 1},
		"missing url":  {Images: []provider.Image{{RevisedPrompt: "x"}}, Created: 1},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			p := &fakeProvider{fn: func(context.Context, provider.ImageRequest) (*provider.ImageResponse, error) {
				return resp, nil
			}}
			env := newTestEnv(t, p, GenerationConfig{})

			st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "p"})
			require.NoError(t, err)
			require.Equal(t, model.GenerationFailed, st.State)
			assert.Equal(t, model.FailureMalformed, st.Failure.Kind)
			assert.False(t, st.Failure.Retryable)
			assert.Equal(t, msgMalformed, st.Failure.Message)
		})
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, provider.ImageRequest) (*provider.ImageResponse, error) {
		return nil, &provider.Error{Provider: "openai", StatusCode: 400, Message: "content policy violation"}
	}}
	env := newTestEnv(t, p, GenerationConfig{})

	st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, model.GenerationFailed, st.State)
	assert.Equal(t, model.FailureProvider, st.Failure.Kind)
	assert.Equal(t, "content policy violation", st.Failure.Message)
	assert.False(t, st.Failure.Retryable)
	assert.Contains(t, st.Failure.Cause, "status 400")
}

func TestGenerate_PendingThenCompleted(t *testing.T) {
	release := make(chan struct{})
	base := okProvider()
	p := &fakeProvider{fn: func(ctx context.Context, req provider.ImageRequest) (*provider.ImageResponse, error) {
		<-release
		return base.fn(ctx, req)
	}}
	env := newTestEnv(t, p, GenerationConfig{ResponseWait: 10 * time.Millisecond})
	ctx := context.Background()

	st, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "tree", RequestID: "req-p"})
	require.NoError(t, err)
	assert.Equal(t, model.GenerationPending, st.State)

	// polling while pending does not start another provider call
	st, err = env.svc.Generate(ctx, GenerateRequest{Prompt: "tree", RequestID: "req-p"})
	require.NoError(t, err)
	assert.Equal(t, model.GenerationPending, st.State)

	close(release)
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, env.svc.Shutdown(shutdownCtx))

	st, err = env.svc.Generate(ctx, GenerateRequest{Prompt: "tree", RequestID: "req-p"})
	require.NoError(t, err)
	assert.Equal(t, model.GenerationCompleted, st.State)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGenerate_DuplicateRequestIDsShareOneCall(t *testing.T) {
	release := make(chan struct{})
	base := okProvider()
	p := &fakeProvider{fn: func(ctx context.Context, req provider.ImageRequest) (*provider.ImageResponse, error) {
		<-release
		return base.fn(ctx, req)
	}}
	env := newTestEnv(t, p, GenerationConfig{ResponseWait: 20 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "race", RequestID: "same"})
			assert.NoError(t, err)
			assert.Equal(t, model.GenerationPending, st.State)
		}()
	}
	wg.Wait()
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.svc.Shutdown(ctx))
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGenerate_CachedFailureIsReturned(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, provider.ImageRequest) (*provider.ImageResponse, error) {
		return nil, errors.New("upstream exploded")
	}}
	env := newTestEnv(t, p, GenerationConfig{})
	ctx := context.Background()

	_, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "p", RequestID: "req-f"})
	require.NoError(t, err)

	st, err := env.svc.Generate(ctx, GenerateRequest{Prompt: "p", RequestID: "req-f"})
	require.NoError(t, err)
	assert.Equal(t, model.GenerationFailed, st.State)
	assert.Equal(t, "upstream exploded", st.Failure.Message)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.FailureValidation, classify(ErrPromptRequired).Kind)
	assert.Equal(t, model.FailureTimeout, classify(ErrProviderTimeout).Kind)
	assert.Equal(t, model.FailureMalformed, classify(ErrMalformedResponse).Kind)

	temp := classify(&provider.Error{Provider: "openai", StatusCode: 503, Message: "overloaded"})
	assert.Equal(t, model.FailureProvider, temp.Kind)
	assert.True(t, temp.Retryable)
}

func TestGenerate_EmptyImageListCompletes(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, provider.ImageRequest) (*provider.ImageResponse, error) {
		return &provider.ImageResponse{Images: []provider.Image{}, Created: 1700000000}, nil
	}}
	env := newTestEnv(t, p, GenerationConfig{})

	st, err := env.svc.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	require.Equal(t, model.GenerationCompleted, st.State)
	assert.NotNil(t, st.Result.Data)
	assert.Empty(t, st.Result.Data)
}
