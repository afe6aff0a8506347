package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/views"
)

// clientCookie names the cookie that identifies a browser across tabs.
const clientCookie = "curatordash_client"

// ServeIndex serves the dashboard shell page.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	clientID := d.ensureClientID(w, r)

	dark := false
	if d.prefs != nil {
		p, err := d.prefs.Lookup(r.Context(), clientID)
		if err != nil {
			d.logger.Warn("loading preferences", zap.Error(err))
		}
		dark = p.DarkMode
	}

	page, err := views.Shell(views.ShellData{
		DarkMode:  dark,
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		ToastTTL:  d.cfg.ToastTTL,
	})
	if err != nil {
		d.logger.Error("rendering shell", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "rendering page failed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, string(page))
}

func (d *Dashboard) handleTheme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}
	dark, err := strconv.ParseBool(r.PostFormValue("dark"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dark must be true or false"})
		return
	}

	clientID := d.ensureClientID(w, r)
	if d.prefs != nil {
		if err := d.prefs.SetDarkMode(r.Context(), clientID, dark); err != nil {
			d.logger.Error("saving theme", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "saving preference failed"})
			return
		}
	}
	d.broadcastTheme(clientID, dark)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (d *Dashboard) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file name"})
		return
	}

	rc, size, err := d.client.OpenBackup(r.Context(), name)
	if err != nil {
		status := http.StatusBadGateway
		if api.IsNotFound(err) {
			status = http.StatusNotFound
		}
		d.logger.Warn("backup download failed", zap.String("file", name), zap.Error(err))
		writeJSON(w, status, map[string]string{"error": describe(err)})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		d.logger.Warn("streaming backup", zap.String("file", name), zap.Error(err))
	}
}

// ensureClientID returns the browser's client id, issuing one if needed.
func (d *Dashboard) ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if id := clientID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		HttpOnly: true,
		Secure:   d.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func clientID(r *http.Request) string {
	c, err := r.Cookie(clientCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func (d *Dashboard) checkOrigin(r *http.Request) bool {
	if d.cfg.AllowAllOrigins {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func describe(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "backend unavailable"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
