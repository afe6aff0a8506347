// Package entity implements the fetch/cache/render/mutate unit shared by
// every dashboard resource.
//
// A Module mirrors one REST collection. Its cache is replaced wholesale on
// every successful load and patched in place after a successful write. All
// loads are tagged with a generation number; a response that arrives after
// the generation has moved on (a newer load, a successful write, or
// Invalidate on section teardown) is discarded instead of overwriting newer
// state.
package entity

import (
	"context"
	"errors"
	"html/template"
	"strings"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/toast"
)

var (
	// ErrStale is returned by a load whose response was discarded because
	// the module's generation advanced while it was in flight.
	ErrStale = errors.New("entity: stale response discarded")

	// ErrUnsupported is returned for a write the resource does not offer.
	ErrUnsupported = errors.New("entity: operation not supported")

	// ErrNotFound is returned when an id is not in the cache.
	ErrNotFound = errors.New("entity: record not found")
)

// Notifier raises transient notifications.
type Notifier interface {
	Notify(message string, sev toast.Severity) toast.Toast
}

// View receives rendered HTML for a container. Each call fully replaces the
// container's previous content.
type View interface {
	Replace(container string, html template.HTML)
}

// generation tags in-flight loads. It is guarded by its owner's mutex.
type generation struct {
	n      uint64
	cancel context.CancelFunc
}

// begin starts a new load: it advances the generation, cancels the previous
// in-flight load and returns a context for the new one.
func (g *generation) begin(parent context.Context) (context.Context, uint64) {
	g.advance()
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	return ctx, g.n
}

// finish releases the load's context if it is still the current one.
func (g *generation) finish(n uint64) bool {
	if n != g.n {
		return false
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	return true
}

// advance invalidates every in-flight load.
func (g *generation) advance() {
	g.n++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// Describe extracts the message worth showing to a user.
func Describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
