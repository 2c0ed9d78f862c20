package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerationStatus_Transitions(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	pending := NewPendingStatus("req-1", "a cat", created)
	assert.False(t, pending.IsTerminal())

	done := pending.Complete(&GenerationResult{
		Data:    []ImageData{{URL: "https://img/1.png"}},
		Created: 1700000000,
	}, created.Add(time.Second))

	assert.True(t, done.IsTerminal())
	assert.Equal(t, GenerationCompleted, done.State)
	assert.Equal(t, created, done.CreatedAt)
	assert.Equal(t, created.Add(time.Second), done.UpdatedAt)
	// the pending record is left untouched
	assert.Equal(t, GenerationPending, pending.State)
	assert.Nil(t, pending.Result)

	failed := pending.Fail(&GenerationFailure{Kind: FailureTimeout, Message: "timed out", Retryable: true}, created)
	assert.True(t, failed.IsTerminal())
	assert.Nil(t, failed.Result)
	assert.Equal(t, FailureTimeout, failed.Failure.Kind)
}
