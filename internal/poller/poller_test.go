package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStartTicks(t *testing.T) {
	var calls atomic.Int32
	p := New("curators", 5*time.Millisecond, func(context.Context) { calls.Add(1) }, nil)

	p.Start(context.Background())
	assert.Equal(t, Polling, p.State())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	assert.Equal(t, Idle, p.State())

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no refresh after Stop returns")
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	p := New("activities", time.Hour, func(context.Context) {}, nil)
	assert.NotPanics(t, p.Stop)
	assert.NotPanics(t, p.Stop)
	assert.Equal(t, Idle, p.State())
}

func TestRestartKeepsSingleTimer(t *testing.T) {
	p := New("curators", 5*time.Millisecond, func(context.Context) {}, nil)
	defer p.Stop()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p.Start(ctx)
		assert.Equal(t, int32(1), p.loops.Load())
	}
	assert.Equal(t, Polling, p.State())
}

func TestStopCancelsInFlightRefresh(t *testing.T) {
	entered := make(chan struct{}, 1)
	p := New("curators", time.Millisecond, func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
	}, nil)

	p.Start(context.Background())
	<-entered
	p.Stop()
	assert.Equal(t, int32(0), p.loops.Load())
}

func TestParentCancellationEndsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New("curators", time.Hour, func(context.Context) {}, nil)
	p.Start(ctx)
	cancel()

	require.Eventually(t, func() bool { return p.State() == Idle }, time.Second, time.Millisecond)
	p.Stop()
}

func TestDefaultInterval(t *testing.T) {
	p := New("x", 0, func(context.Context) {}, nil)
	assert.Equal(t, DefaultInterval, p.Interval())
	assert.Equal(t, "x", p.Name())
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "polling", Polling.String())
}
