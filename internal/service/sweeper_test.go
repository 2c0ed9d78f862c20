package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pictura/imagegen/internal/metrics"
	"pictura/imagegen/internal/repository"
)

type countingStore struct {
	repository.StateStore
	purges atomic.Int32
}

func (s *countingStore) PurgeExpired(ctx context.Context) (int, error) {
	s.purges.Add(1)
	return s.StateStore.PurgeExpired(ctx)
}

type failingStore struct {
	repository.StateStore
}

func (failingStore) PurgeExpired(context.Context) (int, error) {
	return 0, errors.New("store offline")
}

func TestSweeper_SweepOnce(t *testing.T) {
	store := repository.NewMemoryStateStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "gen:status:old", []byte("{}"), 5*time.Millisecond))
	require.NoError(t, store.Set(ctx, "gen:status:new", []byte("{}"), time.Hour))

	time.Sleep(20 * time.Millisecond)

	sw := NewSweeper(store, time.Minute, zap.NewNop(), metrics.NewCollector("test"))
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.Exists(ctx, "gen:status:new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweeper_SweepOnceError(t *testing.T) {
	sw := NewSweeper(failingStore{}, time.Minute, zap.NewNop(), nil)
	_, err := sw.SweepOnce(context.Background())
	assert.EqualError(t, err, "store offline")
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := &countingStore{StateStore: repository.NewMemoryStateStore()}
	ctx, cancel := context.WithCancel(context.Background())

	sw := NewSweeper(store, 5*time.Millisecond, zap.NewNop(), nil)
	stopped := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(stopped)
	}()

	assert.Eventually(t, func() bool {
		return store.purges.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
