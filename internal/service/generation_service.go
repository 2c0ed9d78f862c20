package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pictura/imagegen/internal/metrics"
	"pictura/imagegen/internal/model"
	"pictura/imagegen/internal/provider"
	"pictura/imagegen/internal/repository"
)

const statusWriteTimeout = 5 * time.Second

type GenerationConfig struct {
	Model           string
	Size            string
	N               int
	ProviderTimeout time.Duration
	// ResponseWait is how long a request waits for the provider before
	// answering pending. Longer than ProviderTimeout means always synchronous.
	ResponseWait time.Duration
}

type GenerateRequest struct {
	Prompt    string
	RequestID string
}

type GenerationService interface {
	// Generate returns the status tracked for the request: a terminal record
	// when the provider resolved in time (or earlier), otherwise pending.
	Generate(ctx context.Context, req GenerateRequest) (*model.GenerationStatus, error)
	// Shutdown waits for in-flight provider calls to record their outcome.
	Shutdown(ctx context.Context) error
}

type generationService struct {
	statuses repository.StatusRepository
	provider provider.ImageProvider
	cfg      GenerationConfig
	logger   *zap.Logger
	metrics  *metrics.Collector

	inflight sync.WaitGroup
	now      func() time.Time
	newID    func() string
}

func NewGenerationService(
	statuses repository.StatusRepository,
	imageProvider provider.ImageProvider,
	cfg GenerationConfig,
	logger *zap.Logger,
	m *metrics.Collector,
) GenerationService {
	if cfg.N <= 0 {
		cfg.N = 1
	}
	return &generationService{
		statuses: statuses,
		provider: imageProvider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "generation")),
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *generationService) Generate(ctx context.Context, req GenerateRequest) (*model.GenerationStatus, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID != "" {
		existing, err := s.statuses.Get(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("lookup status: %w", err)
		}
		if existing != nil {
			s.metrics.RecordStatusLookup(string(existing.State))
			return existing, nil
		}
	} else {
		requestID = s.newID()
	}

	pending := model.NewPendingStatus(requestID, prompt, s.now())
	created, err := s.statuses.Create(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("create status: %w", err)
	}
	if !created {
		// Another request claimed this ID between the lookup and the insert.
		existing, err := s.statuses.Get(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("lookup status: %w", err)
		}
		if existing != nil {
			s.metrics.RecordStatusLookup(string(existing.State))
			return existing, nil
		}
		return pending, nil
	}

	done := make(chan *model.GenerationStatus, 1)
	s.inflight.Add(1)
	go s.run(pending, done)

	wait := time.NewTimer(s.cfg.ResponseWait)
	defer wait.Stop()

	select {
	case final := <-done:
		return final, nil
	case <-wait.C:
		s.logger.Debug("generation still running, answering pending", zap.String("request_id", requestID))
		return pending, nil
	case <-ctx.Done():
		return pending, nil
	}
}

// run performs the single provider call for a pending record and stores the
// terminal status. It is detached from the HTTP request so a client that
// disconnects can still poll for the outcome.
func (s *generationService) run(pending *model.GenerationStatus, done chan<- *model.GenerationStatus) {
	defer s.inflight.Done()

	start := s.now()
	result, err := s.callProvider(pending.Prompt)
	elapsed := s.now().Sub(start)

	var final *model.GenerationStatus
	if err != nil {
		gerr := classify(err)
		final = pending.Fail(gerr.Failure(), s.now())
		s.metrics.RecordGeneration(string(gerr.Kind), elapsed)
		s.logger.Error("image generation failed",
			zap.String("request_id", pending.RequestID),
			zap.String("kind", string(gerr.Kind)),
			zap.Bool("retryable", gerr.Retryable),
			zap.Int("prompt_len", len(pending.Prompt)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		final = pending.Complete(result, s.now())
		s.metrics.RecordGeneration(string(model.GenerationCompleted), elapsed)
		s.logger.Info("image generated",
			zap.String("request_id", pending.RequestID),
			zap.Int("images", len(result.Data)),
			zap.Duration("elapsed", elapsed),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()
	if err := s.statuses.Save(ctx, final); err != nil {
		s.logger.Error("record generation status failed",
			zap.String("request_id", pending.RequestID),
			zap.String("state", string(final.State)),
			zap.Error(err),
		)
	}
	done <- final
}

func (s *generationService) callProvider(prompt string) (*model.GenerationResult, error) {
	resp, err := withTimeout(context.Background(), s.cfg.ProviderTimeout,
		func(ctx context.Context) (*provider.ImageResponse, error) {
			return s.provider.GenerateImage(ctx, provider.ImageRequest{
				Prompt: prompt,
				Model:  s.cfg.Model,
				N:      s.cfg.N,
				Size:   s.cfg.Size,
			})
		})
	if err != nil {
		return nil, err
	}
	return toResult(resp)
}

func toResult(resp *provider.ImageResponse) (*model.GenerationResult, error) {
	// an empty list is a valid answer; a missing one is not
	if resp == nil || resp.Images == nil {
		return nil, ErrMalformedResponse
	}

	out := &model.GenerationResult{
		Data:    make([]model.ImageData, 0, len(resp.Images)),
		Created: resp.Created,
	}
	for i, img := range resp.Images {
		if strings.TrimSpace(img.URL) == "" {
			return nil, fmt.Errorf("%w: image %d has no url", ErrMalformedResponse, i)
		}
		out.Data = append(out.Data, model.ImageData{URL: img.URL, RevisedPrompt: img.RevisedPrompt})
	}
	return out, nil
}

func classify(err error) *GenerationError {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr
	}
	if errors.Is(err, ErrProviderTimeout) {
		return &GenerationError{Kind: model.FailureTimeout, Message: msgTimeout, Retryable: true, Err: err}
	}
	if errors.Is(err, ErrMalformedResponse) {
		return &GenerationError{Kind: model.FailureMalformed, Message: msgMalformed, Err: err}
	}
	var perr *provider.Error
	if errors.As(err, &perr) {
		msg := perr.Message
		if msg == "" {
			msg = perr.Error()
		}
		return &GenerationError{Kind: model.FailureProvider, Message: msg, Retryable: perr.Temporary(), Err: err}
	}
	return &GenerationError{Kind: model.FailureProvider, Message: err.Error(), Err: err}
}

func (s *generationService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ GenerationService = (*generationService)(nil)
