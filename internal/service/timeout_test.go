package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_ReturnsValue(t *testing.T) {
	v, err := withTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWithTimeout_PassesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := withTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrProviderTimeout)
}

func TestWithTimeout_Deadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	start := time.Now()
	_, err := withTimeout(context.Background(), 20*time.Millisecond, func(context.Context) (string, error) {
		<-block
		return "late", nil
	})
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWithTimeout_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := withTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrProviderTimeout)
}
