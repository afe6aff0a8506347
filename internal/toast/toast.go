// Package toast implements the dashboard's transient notification surface.
package toast

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity indicates how a toast is styled.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// DefaultTTL is how long a toast stays visible when not dismissed.
const DefaultTTL = 5 * time.Second

// Toast is one transient notification.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink receives toast lifecycle events. Calls are serialized by the Center
// and must not call back into it.
type Sink interface {
	ShowToast(Toast)
	DismissToast(id string)
}

// Center owns the stack of visible toasts. Overlapping toasts stack; each
// expires independently after the TTL and can be dismissed early.
type Center struct {
	mu     sync.Mutex
	sink   Sink
	ttl    time.Duration
	active []*entry
	closed bool
}

type entry struct {
	toast Toast
	timer *time.Timer
}

// NewCenter creates a Center that publishes to sink. A non-positive ttl
// selects DefaultTTL.
func NewCenter(sink Sink, ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{sink: sink, ttl: ttl}
}

// Notify shows a toast and schedules its dismissal. Unknown severities are
// shown as info.
func (c *Center) Notify(message string, sev Severity) Toast {
	if !sev.Valid() {
		sev = SeverityInfo
	}
	now := time.Now()
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  sev,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return t
	}
	e := &entry{toast: t}
	e.timer = time.AfterFunc(c.ttl, func() { c.Dismiss(t.ID) })
	c.active = append(c.active, e)
	if c.sink != nil {
		c.sink.ShowToast(t)
	}
	return t
}

// Notifyf formats a message and shows it.
func (c *Center) Notifyf(sev Severity, format string, args ...any) Toast {
	return c.Notify(fmt.Sprintf(format, args...), sev)
}

// Dismiss removes a toast before or at expiry. It reports whether the toast
// was still visible.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.active, func(e *entry) bool { return e.toast.ID == id })
	if i < 0 {
		return false
	}
	c.active[i].timer.Stop()
	c.active = slices.Delete(c.active, i, i+1)
	if c.sink != nil && !c.closed {
		c.sink.DismissToast(id)
	}
	return true
}

// Active returns the visible toasts, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, len(c.active))
	for i, e := range c.active {
		out[i] = e.toast
	}
	return out
}

// Close stops all pending expiry timers. Later Notify calls are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.active {
		e.timer.Stop()
	}
	c.active = nil
	c.closed = true
}
