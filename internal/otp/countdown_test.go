package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountdownTicksToZero(t *testing.T) {
	t.Parallel()

	c := NewCountdown(3 * time.Second)
	require.False(t, c.CanResend())
	require.Equal(t, 2, c.Tick())
	require.Equal(t, 1, c.Tick())
	require.False(t, c.CanResend())
	require.Equal(t, 0, c.Tick())
	require.True(t, c.CanResend())
	require.Equal(t, 0, c.Tick())

	c.Reset()
	require.Equal(t, 3, c.Remaining())
	require.False(t, c.CanResend())
}

func TestCountdownDefaultsToSixtySeconds(t *testing.T) {
	t.Parallel()

	require.Equal(t, 60, NewCountdown(0).Remaining())
	require.Equal(t, 60, NewCountdown(DefaultInterval).Remaining())
}

func TestCountdownRun(t *testing.T) {
	t.Parallel()

	ticks := make(chan time.Time, 2)
	ticks <- time.Now()
	ticks <- time.Now()

	c := NewCountdown(2 * time.Second)
	require.True(t, c.Run(context.Background(), ticks))
	require.True(t, c.CanResend())
}

func TestCountdownRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCountdown(5 * time.Second)
	require.False(t, c.Run(ctx, make(chan time.Time)))
	require.Equal(t, 5, c.Remaining())
}
