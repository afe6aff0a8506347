// Package views renders dashboard state into HTML fragments. Every function
// is a pure function of its input and returns the complete content for one
// container; nothing is diffed against the previous render.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/section"
)

// Container ids rendered into by the session.
const (
	ContainerStats          = "dashboard-stats"
	ContainerCurators       = "curators-grid"
	ContainerActivities     = "activities-list"
	ContainerServers        = "servers-grid"
	ContainerReports        = "reports-list"
	ContainerBackups        = "backups-list"
	ContainerBackupSettings = "backup-settings"
	ContainerSettings       = "settings-form"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"bytes":    func(n int64) string { return humanize.Bytes(uint64(max(n, 0))) },
	"ago":      ago,
	"comma":    func(n int) string { return humanize.Comma(int64(n)) },
	"markdown": markdown,
	"percent":  percent,
	"join":     strings.Join,
	"title":    title,
}).ParseFS(templateFS, "templates/*.tmpl"))

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Curators renders the curator card grid.
func Curators(items []api.Curator) (template.HTML, error) {
	return execute("curators", items)
}

// now is replaced in tests.
var now = time.Now

type activityDay struct {
	Label  string
	Date   string
	Items  []api.Activity
	Points int
}

// Activities renders the activity feed under one heading per local day.
// Days keep the order in which they first appear in the feed.
func Activities(items []api.Activity) (template.HTML, error) {
	return execute("activities", groupByDay(items, now()))
}

func groupByDay(items []api.Activity, at time.Time) []activityDay {
	var days []activityDay
	index := make(map[string]int)
	for _, a := range items {
		key := a.CreatedAt.Local().Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, activityDay{Label: dayLabel(a.CreatedAt, at), Date: key})
		}
		days[i].Items = append(days[i].Items, a)
		days[i].Points += a.Points
	}
	return days
}

func dayLabel(t, at time.Time) string {
	t, at = t.Local(), at.Local()
	sameDay := func(a, b time.Time) bool {
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	}
	switch {
	case sameDay(t, at):
		return "Today"
	case sameDay(t, at.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("Monday, January 2, 2006")
	}
}

// Servers renders the server card grid.
func Servers(items []api.Server) (template.HTML, error) {
	return execute("servers", items)
}

// Reports renders the task report list. Descriptions are Markdown.
func Reports(items []api.TaskReport) (template.HTML, error) {
	return execute("reports", items)
}

// Backups renders the backup file table.
func Backups(items []api.Backup) (template.HTML, error) {
	return execute("backups", items)
}

// BackupSettings renders the backup schedule form.
func BackupSettings(s api.BackupSettings, loaded bool) (template.HTML, error) {
	return execute("backup_settings", struct {
		Settings api.BackupSettings
		Loaded   bool
	}{s, loaded})
}

// Settings renders the three settings group forms.
func Settings(s api.Settings, loaded bool) (template.HTML, error) {
	return execute("settings", struct {
		Settings api.Settings
		Loaded   bool
	}{s, loaded})
}

type statsBar struct {
	Type  api.ActivityType
	Count int
	Width int
}

// Stats renders the dashboard counters, leaderboard and activity chart.
func Stats(s api.Stats, loaded bool) (template.HTML, error) {
	bars := make([]statsBar, 0, len(s.ActivityByType))
	peak := 0
	for typ, n := range s.ActivityByType {
		bars = append(bars, statsBar{Type: typ, Count: n})
		peak = max(peak, n)
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Count != bars[j].Count {
			return bars[i].Count > bars[j].Count
		}
		return bars[i].Type < bars[j].Type
	})
	for i := range bars {
		bars[i].Width = percent(bars[i].Count, peak)
	}
	return execute("stats", struct {
		Stats  api.Stats
		Bars   []statsBar
		Loaded bool
	}{s, bars, loaded})
}

type serverOption struct {
	Name    string
	Checked bool
}

// CuratorForm renders the create (c == nil) or edit modal for a curator. The
// servers field offers one checkbox per known server, ticked for those the
// curator is already assigned to.
func CuratorForm(c *api.Curator, servers []api.Server) (template.HTML, error) {
	opts := make([]serverOption, 0, len(servers))
	for _, sv := range servers {
		opts = append(opts, serverOption{
			Name:    sv.Name,
			Checked: c != nil && slices.Contains(c.Servers, sv.Name),
		})
	}
	return execute("curator_form", struct {
		Curator *api.Curator
		Servers []serverOption
	}{c, opts})
}

// CuratorDetails renders the read-only curator modal. While loading is set
// the weekly summary is still being fetched.
func CuratorDetails(d api.CuratorDetails, loading bool) (template.HTML, error) {
	return execute("curator_details", struct {
		Details api.CuratorDetails
		Loading bool
	}{d, loading})
}

// ServerForm renders the create (s == nil) or edit modal for a server.
func ServerForm(s *api.Server) (template.HTML, error) {
	return execute("server_form", s)
}

// ShellData is the input of the full dashboard page.
type ShellData struct {
	Sections  []section.Section
	Initial   section.Section
	DarkMode  bool
	CSRFField template.HTML
	CSRFToken string
	// ToastTTL is how long toasts raised in the browser itself stay up.
	ToastTTL time.Duration
}

// Shell renders the dashboard page that hosts every section container.
func Shell(d ShellData) (template.HTML, error) {
	if d.Sections == nil {
		d.Sections = section.All
	}
	if d.Initial == "" {
		d.Initial = section.Dashboard
	}
	return execute("shell", d)
}

func markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func percent(n, of int) int {
	if of <= 0 || n <= 0 {
		return 0
	}
	return n * 100 / of
}

func title(v any) string {
	s := fmt.Sprint(v)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
