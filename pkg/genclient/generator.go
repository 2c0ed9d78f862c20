package genclient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 3 * time.Minute
	DefaultMaxRetries   = 2
)

type State string

const (
	StateLoading  State = "loading"
	StatePolling  State = "polling"
	StateRetrying State = "retrying"
	StateError    State = "error"
	StateDone     State = "done"
)

// StateChange is reported to Options.OnState on every transition.
type StateChange struct {
	State   State
	Attempt int
	Err     error
}

type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	// MaxRetries bounds how often a provider timeout restarts the attempt.
	MaxRetries int
	OnState    func(StateChange)
	NewID      func() string
}

// Generator drives a prompt to a finished image: submit, poll while
// pending, retry provider timeouts.
type Generator struct {
	client *Client
	opts   Options
}

func NewGenerator(client *Client, opts Options) *Generator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Generator{client: client, opts: opts}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		g.emit(StateChange{State: StateError, Err: ErrEmptyPrompt})
		return nil, ErrEmptyPrompt
	}

	g.emit(StateChange{State: StateLoading})
	for attempt := 0; ; attempt++ {
		result, err := g.attempt(ctx, prompt, attempt)
		if err == nil {
			g.emit(StateChange{State: StateDone, Attempt: attempt})
			return result, nil
		}
		if IsTimeout(err) && attempt < g.opts.MaxRetries && ctx.Err() == nil {
			g.emit(StateChange{State: StateRetrying, Attempt: attempt + 1, Err: err})
			continue
		}
		g.emit(StateChange{State: StateError, Attempt: attempt, Err: err})
		return nil, err
	}
}

// attempt runs one generation under a fresh request ID.
func (g *Generator) attempt(ctx context.Context, prompt string, attempt int) (*Result, error) {
	requestID := g.opts.NewID()
	resp, err := g.client.Submit(ctx, prompt, requestID)
	if err != nil {
		return nil, err
	}
	if !resp.Pending {
		return resp.Result, nil
	}
	g.emit(StateChange{State: StatePolling, Attempt: attempt})
	return g.poll(ctx, prompt, resp.RequestID)
}

// poll owns the poll ticker and the deadline timer; both stop on every return.
func (g *Generator) poll(ctx context.Context, prompt, requestID string) (*Result, error) {
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(g.opts.MaxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrPollTimeout
		case <-ticker.C:
			resp, err := g.client.Submit(ctx, prompt, requestID)
			if err != nil {
				return nil, err
			}
			if !resp.Pending {
				return resp.Result, nil
			}
		}
	}
}

func (g *Generator) emit(change StateChange) {
	if g.opts.OnState != nil {
		g.opts.OnState(change)
	}
}
