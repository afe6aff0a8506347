package entity

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/toast"
)

// DocumentConfig describes a single-object resource such as the dashboard
// summary or the settings page.
type DocumentConfig[T any] struct {
	Name      string
	Container string
	Fetch     func(ctx context.Context) (T, error)
	Render    func(value T, loaded bool) (template.HTML, error)
}

// Document caches one object with the same load semantics as Module.
type Document[T any] struct {
	cfg    DocumentConfig[T]
	view   View
	notify Notifier
	logger *zap.Logger

	mu     sync.Mutex
	value  T
	loaded bool
	gen    generation
}

// NewDocument creates an unloaded document.
func NewDocument[T any](cfg DocumentConfig[T], view View, notify Notifier, logger *zap.Logger) *Document[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document[T]{
		cfg:    cfg,
		view:   view,
		notify: notify,
		logger: logger.With(zap.String("document", cfg.Name)),
	}
}

// Name returns the resource name.
func (d *Document[T]) Name() string { return d.cfg.Name }

// Load fetches the object, replacing the cached value and re-rendering on
// success. Failures leave the value and view untouched and raise one error
// toast.
func (d *Document[T]) Load(ctx context.Context) error {
	return d.Begin(ctx)()
}

// Begin claims a load generation now and returns the fetch to run. See
// Module.Begin.
func (d *Document[T]) Begin(ctx context.Context) func() error {
	d.mu.Lock()
	loadCtx, gen := d.gen.begin(ctx)
	d.mu.Unlock()
	return func() error { return d.fetch(ctx, loadCtx, gen) }
}

func (d *Document[T]) fetch(ctx, loadCtx context.Context, gen uint64) error {
	v, err := d.cfg.Fetch(loadCtx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.gen.finish(gen) {
		d.logger.Debug("discarding stale load", zap.Uint64("generation", gen))
		return ErrStale
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Warn("load failed", zap.Error(err))
		d.toast(toast.SeverityError, "Failed to load %s: %s", d.cfg.Name, Describe(err))
		return fmt.Errorf("loading %s: %w", d.cfg.Name, err)
	}

	d.value = v
	d.loaded = true
	d.publishLocked()
	return nil
}

// Do runs a write against the backend. On success it raises the success
// toast and reloads; on failure it raises an error toast.
func (d *Document[T]) Do(ctx context.Context, action, success string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		d.logger.Warn("write failed", zap.String("action", action), zap.Error(err))
		d.mu.Lock()
		d.toast(toast.SeverityError, "Failed to %s: %s", action, Describe(err))
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", action, err)
	}
	d.mu.Lock()
	d.toast(toast.SeveritySuccess, "%s", success)
	d.mu.Unlock()
	return d.Load(ctx)
}

// Value returns the cached object and whether it was ever loaded.
func (d *Document[T]) Value() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.loaded
}

// Invalidate discards every in-flight load.
func (d *Document[T]) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen.advance()
}

// Render renders the cached value without publishing it.
func (d *Document[T]) Render() (template.HTML, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Render(d.value, d.loaded)
}

func (d *Document[T]) publishLocked() {
	html, err := d.cfg.Render(d.value, d.loaded)
	if err != nil {
		d.logger.Error("render failed", zap.Error(err))
		return
	}
	if d.view != nil {
		d.view.Replace(d.cfg.Container, html)
	}
}

func (d *Document[T]) toast(sev toast.Severity, format string, args ...any) {
	if d.notify != nil {
		d.notify.Notify(fmt.Sprintf(format, args...), sev)
	}
}
