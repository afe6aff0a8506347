// Package dashboard serves the browser-facing side of curatordash: the shell
// page, the websocket each tab's session runs over, the theme form and the
// backup download proxy.
package dashboard

import (
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/audit"
	"github.com/ziadkadry99/curatordash/internal/prefs"
	"github.com/ziadkadry99/curatordash/internal/session"
)

// Config holds the dashboard's tunables.
type Config struct {
	PollInterval    time.Duration
	ToastTTL        time.Duration
	CSRFKey         []byte
	SecureCookies   bool
	AllowAllOrigins bool
}

// Dashboard owns the live browser sessions.
type Dashboard struct {
	client   *api.Client
	prefs    *prefs.Store
	journal  *audit.Store
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*tab
}

// tab is one connected browser tab.
type tab struct {
	clientID string
	session  *session.Session
}

// New creates a new Dashboard. store may be nil, in which case theme changes
// are not remembered; journal may be nil, in which case changes are not
// journaled and /api/audit is not mounted.
func New(client *api.Client, store *prefs.Store, journal *audit.Store, cfg Config, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.CSRFKey) == 0 {
		// Tokens issued before a restart stop validating.
		cfg.CSRFKey = make([]byte, 32)
		rand.Read(cfg.CSRFKey)
	}
	d := &Dashboard{
		client:   client,
		prefs:    store,
		journal:  journal,
		cfg:      cfg,
		logger:   logger.Named("dashboard"),
		sessions: make(map[string]*tab),
	}
	d.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     d.checkOrigin,
	}
	return d
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(d.plaintext)
		r.Use(csrf.Protect(d.cfg.CSRFKey,
			csrf.Secure(d.cfg.SecureCookies),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
		))
		r.Get("/", d.ServeIndex)
		r.Post("/ui/theme", d.handleTheme)
	})
	r.Get("/ws", d.handleWebSocket)
	r.Get("/download/{file}", d.handleDownload)
	if d.journal != nil {
		audit.RegisterRoutes(r, d.journal)
	}
}

// Sessions returns the number of connected tabs.
func (d *Dashboard) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Close ends every live session. Their sockets are closed by the writers.
func (d *Dashboard) Close() {
	d.mu.Lock()
	tabs := make([]*tab, 0, len(d.sessions))
	for _, t := range d.sessions {
		tabs = append(tabs, t)
	}
	d.mu.Unlock()

	for _, t := range tabs {
		t.session.Close()
	}
}

func (d *Dashboard) register(t *tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[t.session.ID()] = t
}

func (d *Dashboard) unregister(t *tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, t.session.ID())
}

// broadcastTheme pushes a theme change to every tab of the same browser.
// Frames are sent after the registry lock is released; a tab with a full
// frame queue must not stall other tabs connecting or leaving.
func (d *Dashboard) broadcastTheme(clientID string, dark bool) {
	d.mu.Lock()
	var tabs []*tab
	for _, t := range d.sessions {
		if t.clientID == clientID {
			tabs = append(tabs, t)
		}
	}
	d.mu.Unlock()

	for _, t := range tabs {
		t.session.SetTheme(dark)
	}
}

// plaintext marks non-TLS requests so CSRF checks do not demand a Referer.
func (d *Dashboard) plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !d.cfg.SecureCookies {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}
