package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() error { return errBoom }

func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Open circuit rejects without invoking fn.
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Hour})

	require.Error(t, cb.Execute(fail))
	require.Error(t, cb.Execute(fail))
	require.NoError(t, cb.Execute(succeed))
	require.Error(t, cb.Execute(fail))
	require.Error(t, cb.Execute(fail))

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 10 * time.Millisecond})

	require.Error(t, cb.Execute(fail))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(succeed))
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenReopensOnFailure(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, Cooldown: 10 * time.Millisecond})

	require.Error(t, cb.Execute(fail))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}
