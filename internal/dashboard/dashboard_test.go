package dashboard

import (
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/api/apitest"
	"github.com/ziadkadry99/curatordash/internal/audit"
	"github.com/ziadkadry99/curatordash/internal/db"
	"github.com/ziadkadry99/curatordash/internal/prefs"
	"github.com/ziadkadry99/curatordash/internal/session"
	"github.com/ziadkadry99/curatordash/internal/toast"
)

func setupTest(t *testing.T) (*Dashboard, *apitest.Backend, *prefs.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	backend := apitest.New(t)
	store := prefs.NewStore(database)
	d := New(backend.Client(), store, audit.NewStore(database), Config{
		PollInterval: time.Hour,
		ToastTTL:     time.Minute,
	}, nil)
	t.Cleanup(d.Close)
	return d, backend, store
}

func setupRouter(d *Dashboard) chi.Router {
	r := chi.NewRouter()
	d.RegisterRoutes(r)
	return r
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

func getIndex(t *testing.T, r http.Handler, cookies []*http.Cookie) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	m := csrfMeta.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatal("expected csrf token in page")
	}
	return w, html.UnescapeString(m[1])
}

func TestServeIndex(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	w, _ := getIndex(t, r, nil)

	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	body := w.Body.String()
	for _, id := range []string{"dashboard-stats", "curators-grid", "activities-list", "backups-list", "settings-form"} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("expected container %q in page", id)
		}
	}
	if !strings.Contains(body, `name="gorilla.csrf.Token"`) {
		t.Error("expected csrf field in theme form")
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == clientCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected client id cookie")
	}
}

func TestThemeRequiresCSRFToken(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/ui/theme", strings.NewReader("dark=true"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestThemePersists(t *testing.T) {
	d, _, store := setupTest(t)
	r := setupRouter(d)

	first, token := getIndex(t, r, nil)
	cookies := first.Result().Cookies()
	if strings.Contains(first.Body.String(), `<body class="dark"`) {
		t.Fatal("expected light theme by default")
	}

	form := url.Values{"dark": {"true"}, "gorilla.csrf.Token": {token}}
	req := httptest.NewRequest(http.MethodPost, "/ui/theme", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}

	var clientID string
	for _, c := range cookies {
		if c.Name == clientCookie {
			clientID = c.Value
		}
	}
	p, err := store.Get(t.Context(), clientID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !p.DarkMode {
		t.Error("expected dark mode to be stored")
	}

	second, _ := getIndex(t, r, cookies)
	if !strings.Contains(second.Body.String(), `<body class="dark"`) {
		t.Error("expected dark theme after toggle")
	}
}

func TestThemeRejectsBadValue(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	first, token := getIndex(t, r, nil)
	form := url.Values{"dark": {"maybe"}, "gorilla.csrf.Token": {token}}
	req := httptest.NewRequest(http.MethodPost, "/ui/theme", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(session.Frame) bool) session.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f session.Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	d, backend, _ := setupTest(t)
	backend.SetCurators(api.Curator{ID: 1, Name: "alice"})
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, nil)
	if err := conn.WriteJSON(map[string]string{"type": "navigate", "section": "curators"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	show := readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameShow })
	if show.Section != "curators" {
		t.Errorf("expected curators section, got %q", show.Section)
	}
	render := readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameRender })
	if !strings.Contains(string(render.HTML), "alice") {
		t.Errorf("expected curator in render, got %q", render.HTML)
	}
	if d.Sessions() != 1 {
		t.Errorf("expected 1 session, got %d", d.Sessions())
	}
}

func TestWebSocketMalformedMessage(t *testing.T) {
	d, _, _ := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, nil)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameToast })
	if f.Toast.Severity != toast.SeverityError {
		t.Errorf("expected error toast, got %q", f.Toast.Severity)
	}

	// The session stays usable.
	if err := conn.WriteJSON(map[string]string{"type": "navigate", "section": "dashboard"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameShow })
}

func TestWebSocketPushesStoredTheme(t *testing.T) {
	d, _, store := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	const id = "0b7c0a48-2e1f-4b0c-9a55-4a0d2a1c9f10"
	if err := store.SetDarkMode(t.Context(), id, true); err != nil {
		t.Fatalf("SetDarkMode: %v", err)
	}

	conn := dial(t, server, http.Header{"Cookie": {clientCookie + "=" + id}})
	f := readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameTheme })
	if f.Dark == nil || !*f.Dark {
		t.Error("expected dark theme frame")
	}
}

func TestWebSocketCloseReleasesSession(t *testing.T) {
	d, _, _ := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, nil)
	conn.WriteJSON(map[string]string{"type": "navigate", "section": "dashboard"})
	readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameShow })
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for d.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected session to be released, %d left", d.Sessions())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketChangesAreJournaled(t *testing.T) {
	d, backend, _ := setupTest(t)
	backend.SetCurators(api.Curator{ID: 1, Name: "alice"})
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	const id = "5f1d7a2c-8e44-4c61-b7a0-2f7f0e5b9d31"
	conn := dial(t, server, http.Header{"Cookie": {clientCookie + "=" + id}})
	conn.WriteJSON(map[string]string{"type": "navigate", "section": "curators"})
	readUntil(t, conn, func(f session.Frame) bool { return f.Type == session.FrameRender })
	conn.WriteJSON(map[string]string{"type": "delete", "entity": "curators", "id": "1"})
	readUntil(t, conn, func(f session.Frame) bool {
		return f.Type == session.FrameToast && f.Toast.Severity == toast.SeveritySuccess
	})

	var entries []audit.Entry
	deadline := time.Now().Add(2 * time.Second)
	for len(entries) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a journal entry")
		}
		time.Sleep(10 * time.Millisecond)
		resp, err := http.Get(server.URL + "/api/audit/?client=" + id)
		if err != nil {
			t.Fatalf("GET /api/audit: %v", err)
		}
		json.NewDecoder(resp.Body).Decode(&entries)
		resp.Body.Close()
	}

	if entries[0].Action != "delete" || entries[0].Entity != "curators" || entries[0].Target != "1" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	if entries[0].Outcome != audit.OutcomeOK {
		t.Errorf("Outcome = %q, want ok", entries[0].Outcome)
	}
}

func TestDownloadProxy(t *testing.T) {
	d, backend, _ := setupTest(t)
	backend.AddBackup("backup_1.json", []byte(`{"curators":[1]}`))
	r := setupRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/download/backup_1.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body, _ := io.ReadAll(w.Body)
	if string(body) != `{"curators":[1]}` {
		t.Errorf("unexpected body %q", body)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "backup_1.json") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
}

func TestDownloadMissing(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/download/nope.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "backup not found") {
		t.Errorf("expected backend message, got %q", w.Body.String())
	}
}

func TestDownloadRejectsDotNames(t *testing.T) {
	d, backend, _ := setupTest(t)
	r := setupRouter(d)

	for _, name := range []string{".", ".."} {
		req := httptest.NewRequest(http.MethodGet, "/download/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", name, w.Code)
		}
	}
	if n := backend.Hits(http.MethodGet, "/api/backup/download/.."); n != 0 {
		t.Errorf("expected no backend request, got %d", n)
	}
}

func TestBroadcastThemeDoesNotBlockRegistry(t *testing.T) {
	d, backend, _ := setupTest(t)

	// A tab that never reads: its frame queue is full.
	stuck := session.New(session.Options{Client: backend.Client()})
	for range 256 {
		stuck.SetTheme(false)
	}
	d.register(&tab{clientID: "c1", session: stuck})

	broadcastDone := make(chan struct{})
	go func() {
		d.broadcastTheme("c1", true)
		close(broadcastDone)
	}()
	time.Sleep(20 * time.Millisecond)

	registered := make(chan struct{})
	go func() {
		d.register(&tab{clientID: "c2", session: session.New(session.Options{Client: backend.Client()})})
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("register blocked behind a theme broadcast")
	}
	if d.Sessions() != 2 {
		t.Errorf("expected 2 sessions, got %d", d.Sessions())
	}

	stuck.Close()
	<-broadcastDone
}
