package entity

import (
	"context"
	"fmt"
	"html/template"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/toast"
)

// Config describes one REST collection. K is the record key type, T the
// record and F the writable field set.
type Config[K comparable, T any, F any] struct {
	Name      string // resource name used in logs, e.g. "curators"
	Label     string // singular display name used in toasts, e.g. "Curator"
	Container string // id of the container the view renders into

	Key    func(T) K
	List   func(ctx context.Context) ([]T, error)
	Create func(ctx context.Context, fields F) (T, error)
	Update func(ctx context.Context, id K, fields F) (T, error)
	Delete func(ctx context.Context, id K) error
	Render func(items []T) (template.HTML, error)
}

// Module is the cache, edit state and write path for one collection.
type Module[K comparable, T any, F any] struct {
	cfg    Config[K, T, F]
	view   View
	notify Notifier
	logger *zap.Logger

	mu      sync.Mutex
	items   []T
	loaded  bool
	gen     generation
	editing *K
}

// NewModule creates a module with an empty cache.
func NewModule[K comparable, T any, F any](cfg Config[K, T, F], view View, notify Notifier, logger *zap.Logger) *Module[K, T, F] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Module[K, T, F]{
		cfg:    cfg,
		view:   view,
		notify: notify,
		logger: logger.With(zap.String("entity", cfg.Name)),
	}
}

// Name returns the resource name.
func (m *Module[K, T, F]) Name() string { return m.cfg.Name }

// Load fetches the collection. On success the cache is replaced and the view
// re-rendered. On failure the cache and view are left as they were and one
// error toast is raised. A response overtaken by a newer generation returns
// ErrStale without touching anything.
func (m *Module[K, T, F]) Load(ctx context.Context) error {
	return m.Begin(ctx)()
}

// Begin claims a load generation now and returns the fetch to run, possibly
// on another goroutine. An Invalidate after Begin discards the response even
// if the fetch has not started yet.
func (m *Module[K, T, F]) Begin(ctx context.Context) func() error {
	m.mu.Lock()
	loadCtx, gen := m.gen.begin(ctx)
	m.mu.Unlock()
	return func() error { return m.fetch(ctx, loadCtx, gen) }
}

func (m *Module[K, T, F]) fetch(ctx, loadCtx context.Context, gen uint64) error {
	items, err := m.cfg.List(loadCtx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.gen.finish(gen) {
		m.logger.Debug("discarding stale load", zap.Uint64("generation", gen))
		return ErrStale
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("load failed", zap.Error(err))
		m.toast(toast.SeverityError, "Failed to load %s: %s", m.cfg.Name, Describe(err))
		return fmt.Errorf("loading %s: %w", m.cfg.Name, err)
	}

	m.items = items
	m.loaded = true
	m.publishLocked()
	return nil
}

// Create adds a record and appends it to the cache.
func (m *Module[K, T, F]) Create(ctx context.Context, fields F) (T, error) {
	var zero T
	if m.cfg.Create == nil {
		return zero, ErrUnsupported
	}
	rec, err := m.cfg.Create(ctx, fields)
	if err != nil {
		return zero, m.writeFailed("create "+lowerFirst(m.cfg.Label), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen.advance()
	m.items = append(slices.Clip(m.items), rec)
	m.publishLocked()
	m.toast(toast.SeveritySuccess, "%s created", m.cfg.Label)
	return rec, nil
}

// Update replaces the record with id in the cache.
func (m *Module[K, T, F]) Update(ctx context.Context, id K, fields F) (T, error) {
	var zero T
	if m.cfg.Update == nil {
		return zero, ErrUnsupported
	}
	rec, err := m.cfg.Update(ctx, id, fields)
	if err != nil {
		return zero, m.writeFailed("update "+lowerFirst(m.cfg.Label), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen.advance()
	items := slices.Clone(m.items)
	if i := slices.IndexFunc(items, func(t T) bool { return m.cfg.Key(t) == id }); i >= 0 {
		items[i] = rec
	} else {
		items = append(items, rec)
	}
	m.items = items
	if m.editing != nil && *m.editing == id {
		m.editing = nil
	}
	m.publishLocked()
	m.toast(toast.SeveritySuccess, "%s updated", m.cfg.Label)
	return rec, nil
}

// UpdateEditing updates the record currently open for editing.
func (m *Module[K, T, F]) UpdateEditing(ctx context.Context, fields F) (T, error) {
	id, ok := m.EditingID()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: no record is being edited: %w", m.cfg.Name, ErrNotFound)
	}
	return m.Update(ctx, id, fields)
}

// Delete removes the record with id from the backend and the cache. Only
// records whose key equals id are removed.
func (m *Module[K, T, F]) Delete(ctx context.Context, id K) error {
	if m.cfg.Delete == nil {
		return ErrUnsupported
	}
	if err := m.cfg.Delete(ctx, id); err != nil {
		return m.writeFailed("delete "+lowerFirst(m.cfg.Label), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen.advance()
	m.items = slices.DeleteFunc(slices.Clone(m.items), func(t T) bool { return m.cfg.Key(t) == id })
	if m.editing != nil && *m.editing == id {
		m.editing = nil
	}
	m.publishLocked()
	m.toast(toast.SeveritySuccess, "%s deleted", m.cfg.Label)
	return nil
}

// Do runs an ad-hoc backend action for this resource, such as seeding or
// restoring. On success it raises the success toast and reloads; on failure
// it raises an error toast and leaves the cache alone.
func (m *Module[K, T, F]) Do(ctx context.Context, action, success string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return m.writeFailed(action, err)
	}
	m.mu.Lock()
	m.toast(toast.SeveritySuccess, "%s", success)
	m.mu.Unlock()
	return m.Load(ctx)
}

// Get returns the cached record with id.
func (m *Module[K, T, F]) Get(id K) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.items, func(t T) bool { return m.cfg.Key(t) == id })
	if i < 0 {
		var zero T
		return zero, false
	}
	return m.items[i], true
}

// Edit marks the record with id as being edited and returns it.
func (m *Module[K, T, F]) Edit(id K) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.items, func(t T) bool { return m.cfg.Key(t) == id })
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%s %v: %w", m.cfg.Name, id, ErrNotFound)
	}
	m.editing = &id
	return m.items[i], nil
}

// EditingID returns the id of the record open for editing.
func (m *Module[K, T, F]) EditingID() (K, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editing == nil {
		var zero K
		return zero, false
	}
	return *m.editing, true
}

// CancelEdit clears the edit state.
func (m *Module[K, T, F]) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = nil
}

// Invalidate discards every in-flight load. It is called when the module's
// section is torn down.
func (m *Module[K, T, F]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen.advance()
}

// Items returns a copy of the cache.
func (m *Module[K, T, F]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Loaded reports whether at least one load has succeeded.
func (m *Module[K, T, F]) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Render renders the current cache without publishing it.
func (m *Module[K, T, F]) Render() (template.HTML, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Render(slices.Clone(m.items))
}

// publishLocked renders the cache into the view. m.mu must be held so
// renders reach the view in cache order.
func (m *Module[K, T, F]) publishLocked() {
	html, err := m.cfg.Render(slices.Clone(m.items))
	if err != nil {
		m.logger.Error("render failed", zap.Error(err))
		return
	}
	if m.view != nil {
		m.view.Replace(m.cfg.Container, html)
	}
}

func (m *Module[K, T, F]) writeFailed(action string, err error) error {
	m.logger.Warn("write failed", zap.String("action", action), zap.Error(err))
	m.mu.Lock()
	m.toast(toast.SeverityError, "Failed to %s: %s", action, Describe(err))
	m.mu.Unlock()
	return fmt.Errorf("%s: %w", action, err)
}

func (m *Module[K, T, F]) toast(sev toast.Severity, format string, args ...any) {
	if m.notify != nil {
		m.notify.Notify(fmt.Sprintf(format, args...), sev)
	}
}
