// Package session runs the dashboard for one connected browser. Each session
// owns its own section controller, pollers, entity caches and toast stack and
// reports every visible change as a Frame.
package session

import (
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/audit"
	"github.com/ziadkadry99/curatordash/internal/entity"
	"github.com/ziadkadry99/curatordash/internal/poller"
	"github.com/ziadkadry99/curatordash/internal/section"
	"github.com/ziadkadry99/curatordash/internal/toast"
	"github.com/ziadkadry99/curatordash/internal/views"
)

// frameBuffer is the number of frames queued before senders block.
const frameBuffer = 256

// ThemeStore persists the dark-mode flag of a browser client.
type ThemeStore interface {
	SetDarkMode(ctx context.Context, clientID string, dark bool) error
}

// Journal records the changes a session asks the backend to make.
type Journal interface {
	Log(ctx context.Context, e audit.Entry) error
}

// Options configure a Session.
type Options struct {
	Client       *api.Client
	PollInterval time.Duration
	ToastTTL     time.Duration

	// ClientID identifies the browser for theme persistence.
	ClientID string
	Themes   ThemeStore

	// Journal may be nil.
	Journal Journal

	Logger *zap.Logger
}

// Session is the server-side state of one dashboard tab.
type Session struct {
	id     string
	opts   Options
	client *api.Client
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	frames chan Frame
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once

	// modalSeq counts modal frames so a late response can tell whether the
	// modal it belongs to is still the one on screen.
	modalMu  sync.Mutex
	modalSeq uint64

	toasts     *toast.Center
	controller *section.Controller

	stats          *entity.Document[api.Stats]
	curators       *entity.Module[int64, api.Curator, api.CuratorFields]
	activities     *entity.Module[int64, api.Activity, struct{}]
	servers        *entity.Module[int64, api.Server, api.ServerFields]
	reports        *entity.Module[int64, api.TaskReport, struct{}]
	backups        *entity.Module[string, api.Backup, struct{}]
	backupSettings *entity.Document[api.BackupSettings]
	settings       *entity.Document[api.Settings]

	curatorsPoll   *poller.Poller
	activitiesPoll *poller.Poller

	bindings map[section.Section]binding
}

// resource is anything a section loads on activation.
type resource interface {
	Begin(ctx context.Context) func() error
	Invalidate()
}

type binding struct {
	resources []resource
	poll      *poller.Poller
}

// New creates a session with no active section.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.Named("session").With(zap.String("session", id))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		opts:   opts,
		client: opts.Client,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		frames: make(chan Frame, frameBuffer),
		done:   make(chan struct{}),
	}
	s.toasts = toast.NewCenter(s, opts.ToastTTL)
	s.controller = section.NewController(s, logger)
	s.buildModules()
	s.buildSections()
	return s
}

func (s *Session) buildModules() {
	c := s.client

	s.stats = entity.NewDocument(entity.DocumentConfig[api.Stats]{
		Name:      "dashboard stats",
		Container: views.ContainerStats,
		Fetch:     c.Stats,
		Render:    views.Stats,
	}, s, s.toasts, s.logger)

	s.curators = entity.NewModule(entity.Config[int64, api.Curator, api.CuratorFields]{
		Name:      "curators",
		Label:     "Curator",
		Container: views.ContainerCurators,
		Key:       func(c api.Curator) int64 { return c.ID },
		List:      c.Curators,
		Create:    c.CreateCurator,
		Update:    c.UpdateCurator,
		Delete:    c.DeleteCurator,
		Render:    views.Curators,
	}, s, s.toasts, s.logger)

	s.activities = entity.NewModule(entity.Config[int64, api.Activity, struct{}]{
		Name:      "activities",
		Label:     "Activity",
		Container: views.ContainerActivities,
		Key:       func(a api.Activity) int64 { return a.ID },
		List:      c.Activities,
		Render:    views.Activities,
	}, s, s.toasts, s.logger)

	s.servers = entity.NewModule(entity.Config[int64, api.Server, api.ServerFields]{
		Name:      "servers",
		Label:     "Server",
		Container: views.ContainerServers,
		Key:       func(sv api.Server) int64 { return sv.ID },
		List:      c.Servers,
		Create:    c.CreateServer,
		Update:    c.UpdateServer,
		Delete:    c.DeleteServer,
		Render:    views.Servers,
	}, s, s.toasts, s.logger)

	s.reports = entity.NewModule(entity.Config[int64, api.TaskReport, struct{}]{
		Name:      "task reports",
		Label:     "Report",
		Container: views.ContainerReports,
		Key:       func(r api.TaskReport) int64 { return r.ID },
		List:      c.TaskReports,
		Delete:    c.DeleteTaskReport,
		Render:    views.Reports,
	}, s, s.toasts, s.logger)

	s.backups = entity.NewModule(entity.Config[string, api.Backup, struct{}]{
		Name:      "backups",
		Label:     "Backup",
		Container: views.ContainerBackups,
		Key:       func(b api.Backup) string { return b.Filename },
		List: func(ctx context.Context) ([]api.Backup, error) {
			l, err := c.Backups(ctx)
			return l.Backups, err
		},
		Delete: c.DeleteBackup,
		Render: views.Backups,
	}, s, s.toasts, s.logger)

	s.backupSettings = entity.NewDocument(entity.DocumentConfig[api.BackupSettings]{
		Name:      "backup settings",
		Container: views.ContainerBackupSettings,
		Fetch: func(ctx context.Context) (api.BackupSettings, error) {
			l, err := c.Backups(ctx)
			return l.Settings, err
		},
		Render: views.BackupSettings,
	}, s, s.toasts, s.logger)

	s.settings = entity.NewDocument(entity.DocumentConfig[api.Settings]{
		Name:      "settings",
		Container: views.ContainerSettings,
		Fetch:     c.Settings,
		Render:    views.Settings,
	}, s, s.toasts, s.logger)

	s.curatorsPoll = poller.New("curators", s.opts.PollInterval, func(ctx context.Context) {
		_ = s.curators.Load(ctx)
	}, s.logger)
	s.activitiesPoll = poller.New("activities", s.opts.PollInterval, func(ctx context.Context) {
		_ = s.activities.Load(ctx)
	}, s.logger)
}

func (s *Session) buildSections() {
	s.bindings = map[section.Section]binding{
		section.Dashboard:  {resources: []resource{s.stats}},
		section.Curators:   {resources: []resource{s.curators}, poll: s.curatorsPoll},
		section.Activities: {resources: []resource{s.activities}, poll: s.activitiesPoll},
		section.Servers:    {resources: []resource{s.servers}},
		section.Reports:    {resources: []resource{s.reports}},
		section.Settings:   {resources: []resource{s.settings}},
		section.Backup:     {resources: []resource{s.backups, s.backupSettings}},
	}
	for sec, b := range s.bindings {
		s.controller.Register(sec, section.Hooks{
			Init: func(ctx context.Context) {
				s.load(b)
				if b.poll != nil {
					b.poll.Start(ctx)
				}
			},
			Teardown: func() {
				if b.poll != nil {
					b.poll.Stop()
				}
				for _, r := range b.resources {
					r.Invalidate()
				}
			},
		})
	}
}

// load starts every resource of b loading in the background. Generations are
// claimed before returning so a teardown that follows discards the responses.
func (s *Session) load(b binding) {
	for _, r := range b.resources {
		fetch := r.Begin(s.ctx)
		s.spawn(func(context.Context) { _ = fetch() })
	}
}

// spawn runs fn in a tracked goroutine bound to the session context.
func (s *Session) spawn(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// mutate runs a backend change in the background and journals its outcome.
func (s *Session) mutate(action, entity, target string, fn func(ctx context.Context) error) {
	s.spawn(func(ctx context.Context) {
		s.record(ctx, action, entity, target, fn(ctx))
	})
}

func (s *Session) record(ctx context.Context, action, entity, target string, err error) {
	if s.opts.Journal == nil {
		return
	}
	e := audit.Entry{
		ClientID:  s.opts.ClientID,
		SessionID: s.id,
		Action:    action,
		Entity:    entity,
		Target:    target,
		Outcome:   audit.OutcomeOK,
	}
	if err != nil {
		e.Outcome = audit.OutcomeFailed
		e.Detail = err.Error()
	}
	// The change already reached the backend even if the tab has gone.
	if lerr := s.opts.Journal.Log(context.WithoutCancel(ctx), e); lerr != nil {
		s.logger.Warn("journal write failed", zap.Error(lerr))
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Frames returns the stream of frames for the browser.
func (s *Session) Frames() <-chan Frame { return s.frames }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Active returns the active section.
func (s *Session) Active() section.Section { return s.controller.Active() }

// Toasts returns the session's toast stack.
func (s *Session) Toasts() *toast.Center { return s.toasts }

// Close tears down the active section, stops every timer and waits for
// background loads to finish. Frames sent after Close are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		s.cancel()
		s.controller.Deactivate()
		s.wg.Wait()
		s.toasts.Close()
		s.logger.Debug("session closed")
	})
}

func (s *Session) send(f Frame) {
	select {
	case s.frames <- f:
	case <-s.done:
	}
}

// Show implements section.Display.
func (s *Session) Show(sec section.Section) {
	s.send(Frame{Type: FrameShow, Section: sec})
}

// Replace implements entity.View.
func (s *Session) Replace(container string, html template.HTML) {
	s.send(Frame{Type: FrameRender, Target: container, HTML: html})
}

// ShowToast implements toast.Sink.
func (s *Session) ShowToast(t toast.Toast) {
	s.send(Frame{Type: FrameToast, Toast: &t})
}

// DismissToast implements toast.Sink.
func (s *Session) DismissToast(id string) {
	s.send(Frame{Type: FrameDismiss, ID: id})
}

// showModal opens html in the modal and returns its sequence number.
func (s *Session) showModal(html template.HTML) uint64 {
	s.modalMu.Lock()
	defer s.modalMu.Unlock()
	s.modalSeq++
	s.send(Frame{Type: FrameModal, HTML: html})
	return s.modalSeq
}

// swapModal shows html only if no modal was opened or closed since seq.
func (s *Session) swapModal(seq uint64, html template.HTML) bool {
	s.modalMu.Lock()
	defer s.modalMu.Unlock()
	if s.modalSeq != seq {
		return false
	}
	s.modalSeq++
	s.send(Frame{Type: FrameModal, HTML: html})
	return true
}

func (s *Session) currentModal() uint64 {
	s.modalMu.Lock()
	defer s.modalMu.Unlock()
	return s.modalSeq
}

func (s *Session) closeModal() {
	s.modalMu.Lock()
	defer s.modalMu.Unlock()
	s.modalSeq++
	s.send(Frame{Type: FrameCloseModal})
}

// SetTheme pushes the dark-mode flag to the browser.
func (s *Session) SetTheme(dark bool) {
	s.send(Frame{Type: FrameTheme, Dark: &dark})
}
