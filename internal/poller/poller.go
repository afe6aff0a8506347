// Package poller runs a fixed-interval refresh for one entity module.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is the poller's lifecycle state.
type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 30 * time.Second

// Poller calls a refresh function at a fixed interval while started. At
// most one timer is live at any time. There is no backoff: the refresh
// function handles its own errors and the schedule continues regardless.
type Poller struct {
	name     string
	interval time.Duration
	refresh  func(context.Context)
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	loops atomic.Int32
}

// New creates an idle poller. A non-positive interval selects DefaultInterval.
func New(name string, interval time.Duration, refresh func(context.Context), logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		name:     name,
		interval: interval,
		refresh:  refresh,
		logger:   logger.With(zap.String("poller", name)),
	}
}

// Name returns the poller's name.
func (p *Poller) Name() string { return p.name }

// Interval returns the refresh period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start schedules the refresh. A live timer is cancelled first, so calling
// Start twice never leaves two timers running. The first refresh happens one
// interval after Start; the caller performs the initial load itself.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.loops.Add(1)
	go func() {
		defer close(done)
		defer p.loops.Add(-1)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.refresh(ctx)
			}
		}
	}()
	p.logger.Debug("polling started", zap.Duration("interval", p.interval))
}

// Stop cancels the timer and waits for an in-progress refresh to return.
// Stopping an idle poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopLocked() {
		p.logger.Debug("polling stopped")
	}
}

func (p *Poller) stopLocked() bool {
	if p.cancel == nil {
		return false
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	return true
}

// State reports whether the poller currently has a live timer.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return Idle
	}
	select {
	case <-p.done:
		return Idle
	default:
		return Polling
	}
}
