package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepOrDoneElapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, SleepOrDone(context.Background(), 10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepOrDoneCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, SleepOrDone(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, SleepOrDone(ctx, 0), context.Canceled)
}

func TestSleepOrDoneZero(t *testing.T) {
	require.NoError(t, SleepOrDone(context.Background(), 0))
}
