// Package apitest provides an in-memory curator backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/curatordash/internal/api"
)

// Backend is a fake curator backend served over httptest.
type Backend struct {
	mu             sync.Mutex
	curators       []api.Curator
	activities     []api.Activity
	servers        []api.Server
	reports        []api.TaskReport
	backups        []api.Backup
	backupData     map[string][]byte
	backupSettings api.BackupSettings
	settings       api.Settings
	stats          api.Stats
	nextID         int64

	failures map[string]failure
	hits     map[string]int
	gates    map[string]chan struct{}

	srv *httptest.Server
}

type failure struct {
	status  int
	message string
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		backupData: make(map[string][]byte),
		failures:   make(map[string]failure),
		hits:       make(map[string]int),
		gates:      make(map[string]chan struct{}),
		nextID:     100,
		backupSettings: api.BackupSettings{
			AutoBackup: true, IntervalHours: 24, MaxBackups: 7,
		},
		settings: api.Settings{
			Bot:    api.BotSettings{Prefix: "!"},
			Rating: api.RatingSettings{MessagePoints: 1, ReactionPoints: 1, ReplyPoints: 2, TaskPoints: 10, WeeklyGoal: 50},
		},
	}
	b.srv = httptest.NewServer(b.routes())
	t.Cleanup(func() {
		b.mu.Lock()
		for key, gate := range b.gates {
			close(gate)
			delete(b.gates, key)
		}
		b.mu.Unlock()
		b.srv.Close()
	})
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.srv.URL }

// Client returns an api.Client pointed at the backend.
func (b *Backend) Client(opts ...api.Option) *api.Client {
	return api.New(b.srv.URL, opts...)
}

// SetCurators replaces the curator collection.
func (b *Backend) SetCurators(cs ...api.Curator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.curators = slices.Clone(cs)
}

// Curators returns a copy of the curator collection.
func (b *Backend) Curators() []api.Curator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.curators)
}

// SetActivities replaces the activity feed.
func (b *Backend) SetActivities(as ...api.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activities = slices.Clone(as)
}

// SetServers replaces the server collection.
func (b *Backend) SetServers(ss ...api.Server) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.servers = slices.Clone(ss)
}

// SetReports replaces the task report collection.
func (b *Backend) SetReports(rs ...api.TaskReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = slices.Clone(rs)
}

// AddBackup stores a backup file with the given content.
func (b *Backend) AddBackup(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backups = append(b.backups, api.Backup{Filename: name, Size: int64(len(data)), CreatedAt: time.Now().UTC()})
	b.backupData[name] = data
}

// Backups returns a copy of the stored backup list.
func (b *Backend) Backups() []api.Backup {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.backups)
}

// SetStats replaces the dashboard summary.
func (b *Backend) SetStats(s api.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = s
}

// Settings returns the current settings.
func (b *Backend) Settings() api.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// Fail makes every request for method and path respond with status and a
// JSON error body until Recover is called.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// Recover clears a failure installed by Fail.
func (b *Backend) Recover(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, method+" "+path)
}

// Hold blocks requests for method and path until the returned release
// function is called.
func (b *Backend) Hold(method, path string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	gate := make(chan struct{})
	b.gates[key] = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gates[key] == gate {
				delete(b.gates, key)
				close(gate)
			}
			b.mu.Unlock()
		})
	}
}

// Hits returns how many requests arrived for method and path.
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.intercept)

	r.Get("/api/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.stats)
	})

	r.Route("/api/curators", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, nonNil(b.curators))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var f api.CuratorFields
			if !decode(w, r, &f) {
				return
			}
			if f.Name == "" {
				writeError(w, http.StatusBadRequest, "name is required")
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.nextID++
			c := api.Curator{ID: b.nextID, Name: f.Name, DiscordID: f.DiscordID, Servers: f.Servers, CreatedAt: time.Now().UTC()}
			b.curators = append(b.curators, c)
			writeJSON(w, http.StatusCreated, c)
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			i := slices.IndexFunc(b.curators, func(c api.Curator) bool { return c.ID == urlID(r) })
			if i < 0 {
				writeError(w, http.StatusNotFound, "curator not found")
				return
			}
			writeJSON(w, http.StatusOK, api.CuratorDetails{Curator: b.curators[i], WeeklyStats: b.weeklyStats(b.curators[i].ID)})
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var f api.CuratorFields
			if !decode(w, r, &f) {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			i := slices.IndexFunc(b.curators, func(c api.Curator) bool { return c.ID == urlID(r) })
			if i < 0 {
				writeError(w, http.StatusNotFound, "curator not found")
				return
			}
			b.curators[i].Name = f.Name
			b.curators[i].DiscordID = f.DiscordID
			b.curators[i].Servers = f.Servers
			writeJSON(w, http.StatusOK, b.curators[i])
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			n := len(b.curators)
			b.curators = slices.DeleteFunc(b.curators, func(c api.Curator) bool { return c.ID == urlID(r) })
			if len(b.curators) == n {
				writeError(w, http.StatusNotFound, "curator not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
	})

	r.Get("/api/activities", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, nonNil(b.activities))
	})

	r.Route("/api/servers", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, nonNil(b.servers))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var f api.ServerFields
			if !decode(w, r, &f) {
				return
			}
			if f.Name == "" {
				writeError(w, http.StatusBadRequest, "name is required")
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.nextID++
			s := api.Server{ID: b.nextID, Name: f.Name, DiscordID: f.DiscordID, IsActive: f.IsActive, CreatedAt: time.Now().UTC()}
			b.servers = append(b.servers, s)
			writeJSON(w, http.StatusCreated, s)
		})
		r.Post("/initialize", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, name := range []string{"Main", "Events", "Support"} {
				b.nextID++
				b.servers = append(b.servers, api.Server{ID: b.nextID, Name: name, IsActive: true, CreatedAt: time.Now().UTC()})
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var f api.ServerFields
			if !decode(w, r, &f) {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			i := slices.IndexFunc(b.servers, func(s api.Server) bool { return s.ID == urlID(r) })
			if i < 0 {
				writeError(w, http.StatusNotFound, "server not found")
				return
			}
			b.servers[i].Name = f.Name
			b.servers[i].DiscordID = f.DiscordID
			b.servers[i].IsActive = f.IsActive
			writeJSON(w, http.StatusOK, b.servers[i])
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.servers = slices.DeleteFunc(b.servers, func(s api.Server) bool { return s.ID == urlID(r) })
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
	})

	r.Route("/api/task-reports", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, nonNil(b.reports))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.reports = slices.DeleteFunc(b.reports, func(t api.TaskReport) bool { return t.ID == urlID(r) })
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
	})

	r.Route("/api/backup", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, api.BackupListing{Backups: nonNil(b.backups), Settings: b.backupSettings})
		})
		r.Post("/create", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.nextID++
			name := "backup_" + strconv.FormatInt(b.nextID, 10) + ".json"
			data := []byte(`{"curators":[]}`)
			bk := api.Backup{Filename: name, Size: int64(len(data)), CreatedAt: time.Now().UTC()}
			b.backups = append(b.backups, bk)
			b.backupData[name] = data
			writeJSON(w, http.StatusOK, bk)
		})
		r.Get("/download/{file}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			data, ok := b.backupData[chi.URLParam(r, "file")]
			b.mu.Unlock()
			if !ok {
				writeError(w, http.StatusNotFound, "backup not found")
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.Write(data)
		})
		r.Post("/restore/{file}", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.backupData[chi.URLParam(r, "file")]; !ok {
				writeError(w, http.StatusNotFound, "backup not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
		r.Delete("/delete/{file}", func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "file")
			b.mu.Lock()
			defer b.mu.Unlock()
			b.backups = slices.DeleteFunc(b.backups, func(bk api.Backup) bool { return bk.Filename == name })
			delete(b.backupData, name)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})
		r.Post("/cleanup", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			var res api.CleanupResult
			for len(b.backups) > b.backupSettings.MaxBackups {
				res.Deleted = append(res.Deleted, b.backups[0].Filename)
				delete(b.backupData, b.backups[0].Filename)
				b.backups = b.backups[1:]
			}
			writeJSON(w, http.StatusOK, res)
		})
		r.Put("/settings", func(w http.ResponseWriter, r *http.Request) {
			var s api.BackupSettings
			if !decode(w, r, &s) {
				return
			}
			if s.MaxBackups < 1 {
				writeError(w, http.StatusBadRequest, "max_backups must be at least 1")
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.backupSettings = s
			writeJSON(w, http.StatusOK, s)
		})
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			defer b.mu.Unlock()
			writeJSON(w, http.StatusOK, b.settings)
		})
		r.Put("/bot", func(w http.ResponseWriter, r *http.Request) {
			var s api.BotSettings
			if !decode(w, r, &s) {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.settings.Bot = s
			writeJSON(w, http.StatusOK, s)
		})
		r.Put("/rating", func(w http.ResponseWriter, r *http.Request) {
			var s api.RatingSettings
			if !decode(w, r, &s) {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.settings.Rating = s
			writeJSON(w, http.StatusOK, s)
		})
		r.Put("/notifications", func(w http.ResponseWriter, r *http.Request) {
			var s api.NotificationSettings
			if !decode(w, r, &s) {
				return
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.settings.Notifications = s
			writeJSON(w, http.StatusOK, s)
		})
	})

	return r
}

// intercept counts hits, holds requests at their gate and applies
// installed failures. Keys are "METHOD /raw/path".
func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		b.hits[key]++
		gate := b.gates[key]
		b.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		b.mu.Lock()
		f, failing := b.failures[key]
		b.mu.Unlock()
		if failing {
			writeError(w, f.status, f.message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func urlID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// weeklyStats sums the last seven days of activity for a curator. b.mu must
// be held.
func (b *Backend) weeklyStats(curatorID int64) *api.WeeklyStats {
	since := time.Now().AddDate(0, 0, -7)
	ws := &api.WeeklyStats{}
	for _, a := range b.activities {
		if a.CuratorID != curatorID || a.CreatedAt.Before(since) {
			continue
		}
		ws.TotalActivities++
		ws.TotalPoints += a.Points
		switch a.Type {
		case api.ActivityMessage:
			ws.Messages++
		case api.ActivityReaction:
			ws.Reactions++
		case api.ActivityReply:
			ws.Replies++
		}
	}
	return ws
}
