// Package section owns which dashboard section is active and runs the
// per-section setup and teardown hooks on every transition.
package section

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Section is one top-level navigable view of the dashboard.
type Section string

const (
	Dashboard  Section = "dashboard"
	Curators   Section = "curators"
	Activities Section = "activities"
	Servers    Section = "servers"
	Reports    Section = "reports"
	Settings   Section = "settings"
	Backup     Section = "backup"
)

// All lists every section in navigation order.
var All = []Section{Dashboard, Curators, Activities, Servers, Reports, Settings, Backup}

// ErrUnknownSection is returned for identifiers outside the section set.
var ErrUnknownSection = errors.New("unknown section")

// Parse converts a section identifier.
func Parse(s string) (Section, error) {
	for _, sec := range All {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// Hooks are a section's lifecycle callbacks. Either may be nil.
type Hooks struct {
	// Init loads the section's data and starts its polling.
	Init func(ctx context.Context)
	// Teardown stops polling and discards in-flight loads.
	Teardown func()
}

// Display toggles section container visibility: every container is hidden
// except the one for s.
type Display interface {
	Show(s Section)
}

// Controller tracks the single active section.
type Controller struct {
	display Display
	logger  *zap.Logger

	mu     sync.Mutex
	hooks  map[Section]Hooks
	active Section
}

// NewController creates a controller with no active section.
func NewController(display Display, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		display: display,
		logger:  logger.Named("section"),
		hooks:   make(map[Section]Hooks),
	}
}

// Register sets the hooks for s, replacing any previous ones.
func (c *Controller) Register(s Section, h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[s] = h
}

// Activate makes s the active section. When switching away from another
// section its Teardown runs first; then the containers are toggled and s's
// Init runs. Activating the already active section skips Teardown and re-runs
// Init, which restarts rather than duplicates its polling.
func (c *Controller) Activate(ctx context.Context, s Section) error {
	if _, err := Parse(string(s)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.active
	if prev != "" && prev != s {
		if h := c.hooks[prev]; h.Teardown != nil {
			h.Teardown()
		}
	}

	c.active = s
	if c.display != nil {
		c.display.Show(s)
	}
	if h := c.hooks[s]; h.Init != nil {
		h.Init(ctx)
	}

	c.logger.Debug("section activated", zap.String("from", string(prev)), zap.String("to", string(s)))
	return nil
}

// Active returns the active section, or "" before the first Activate.
func (c *Controller) Active() Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Deactivate tears down the active section and leaves none active.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return
	}
	if h := c.hooks[c.active]; h.Teardown != nil {
		h.Teardown()
	}
	c.active = ""
}
