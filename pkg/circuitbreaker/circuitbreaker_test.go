package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	cb := New(Config{
		FailureThreshold: 3,
		Timeout:          time.Minute,
		OnStateChange: func(_, to State) {
			transitions = append(transitions, to)
		},
	})

	boom := errors.New("provider down")
	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(context.Background(), func() error { return boom }))
	}

	assert.Equal(t, StateOpen, cb.State())
	require.NotEmpty(t, transitions)
	assert.Equal(t, StateOpen, transitions[len(transitions)-1])

	// Calls fail fast while open; fn is never invoked.
	called := false
	err := cb.Execute(context.Background(), func() error { called = true; return nil })
	assert.Error(t, err)
	assert.False(t, called)
}

func TestExecuteCountsCancelledContextAsFailure(t *testing.T) {
	cb := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
