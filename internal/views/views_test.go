package views

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/section"
)

func TestEmptyStates(t *testing.T) {
	tests := []struct {
		name   string
		render func() (string, error)
		marker string
	}{
		{"curators", func() (string, error) { h, err := Curators(nil); return string(h), err }, `data-empty="curators"`},
		{"activities", func() (string, error) { h, err := Activities([]api.Activity{}); return string(h), err }, `data-empty="activities"`},
		{"servers", func() (string, error) { h, err := Servers(nil); return string(h), err }, `data-action="initialize_servers"`},
		{"reports", func() (string, error) { h, err := Reports(nil); return string(h), err }, `data-empty="reports"`},
		{"backups", func() (string, error) { h, err := Backups(nil); return string(h), err }, `data-empty="backups"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := tt.render()
			require.NoError(t, err)
			assert.Contains(t, html, "empty-state")
			assert.Contains(t, html, tt.marker)
			assert.Contains(t, html, "<button", "empty state carries a call to action")
		})
	}
}

func TestCuratorsGrid(t *testing.T) {
	html, err := Curators([]api.Curator{
		{ID: 1, Name: "A", TotalPoints: 1200, Servers: []string{"Main", "Events"}},
		{ID: 2, Name: "<script>alert(1)</script>", DiscordID: "42"},
	})
	require.NoError(t, err)
	s := string(html)

	assert.Contains(t, s, `data-id="1"`)
	assert.Contains(t, s, "1,200 pts")
	assert.Contains(t, s, "Main, Events")
	assert.Contains(t, s, "never", "zero last-active time")
	assert.NotContains(t, s, "<script>alert(1)</script>")
	assert.Contains(t, s, "&lt;script&gt;")
	assert.NotContains(t, s, "empty-state")
}

func TestActivitiesFeed(t *testing.T) {
	html, err := Activities([]api.Activity{{
		ID: 5, CuratorName: "A", ServerName: "Main", Type: api.ActivityReaction, Points: 2,
		CreatedAt: time.Now().Add(-3 * time.Hour),
	}})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "activity-reaction")
	assert.Contains(t, s, "Reaction")
	assert.Contains(t, s, "+2")
	assert.Contains(t, s, "3 hours ago")
}

func TestActivitiesDayHeadings(t *testing.T) {
	at := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.Local)
	now = func() time.Time { return at }
	t.Cleanup(func() { now = time.Now })

	html, err := Activities([]api.Activity{
		{ID: 4, Type: api.ActivityMessage, Points: 1, CreatedAt: at.Add(-time.Hour)},
		{ID: 3, Type: api.ActivityTask, Points: 4, CreatedAt: at.Add(-10 * time.Hour)},
		{ID: 2, Type: api.ActivityReply, Points: 2, CreatedAt: at.AddDate(0, 0, -1)},
		{ID: 1, Type: api.ActivityReaction, Points: 1, CreatedAt: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.Local)},
	})
	require.NoError(t, err)
	s := string(html)

	today := strings.Index(s, "<h3>Today</h3>")
	yesterday := strings.Index(s, "<h3>Yesterday</h3>")
	older := strings.Index(s, "<h3>Sunday, March 1, 2026</h3>")
	require.NotEqual(t, -1, today)
	require.NotEqual(t, -1, yesterday)
	require.NotEqual(t, -1, older)
	assert.Less(t, today, yesterday)
	assert.Less(t, yesterday, older)

	assert.Equal(t, 3, strings.Count(s, `class="activity-day"`))
	assert.Contains(t, s, `data-date="2026-03-10"`)
	assert.Contains(t, s, "2 activities")
	assert.Contains(t, s, "+5 points")
	assert.Contains(t, s, "1 activity<")
	assert.Less(t, strings.Index(s, `data-id="3"`), yesterday, "both of today's entries sit under Today")
}

func TestDayLabelAcrossMonths(t *testing.T) {
	at := time.Date(2026, time.April, 1, 0, 30, 0, 0, time.Local)
	assert.Equal(t, "Today", dayLabel(at, at))
	assert.Equal(t, "Yesterday", dayLabel(at.Add(-time.Hour), at))
	assert.Equal(t, "Monday, March 30, 2026", dayLabel(at.AddDate(0, 0, -2), at))
}

func TestReportsMarkdown(t *testing.T) {
	html, err := Reports([]api.TaskReport{{
		ID: 9, CuratorName: "A", Status: api.ReportPending,
		Description: "Fixed **three** threads\n\n<img src=x onerror=alert(1)>",
	}})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "<strong>three</strong>")
	assert.NotContains(t, s, "onerror=alert(1)>", "raw HTML in descriptions is not passed through")
	assert.Contains(t, s, "report-pending")
}

func TestBackupsTable(t *testing.T) {
	html, err := Backups([]api.Backup{{Filename: "backup_1.json", Size: 2048}})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "2.0 kB")
	assert.Contains(t, s, `href="/download/backup_1.json"`)
	assert.Contains(t, s, `data-op="restore"`)
}

func TestDocumentsLoading(t *testing.T) {
	html, err := Stats(api.Stats{}, false)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Loading summary")

	html, err = Settings(api.Settings{}, false)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Loading settings")

	html, err = BackupSettings(api.BackupSettings{}, false)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Loading backup schedule")
}

func TestStats(t *testing.T) {
	html, err := Stats(api.Stats{
		TotalCurators: 12,
		TopCurators:   []api.CuratorRank{{ID: 1, Name: "A", TotalPoints: 10}},
		ActivityByType: map[api.ActivityType]int{
			api.ActivityMessage:  50,
			api.ActivityReaction: 25,
		},
	}, true)
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, ">12<")
	assert.Contains(t, s, "width: 100%")
	assert.Contains(t, s, "width: 50%")
	assert.Less(t, strings.Index(s, "Message"), strings.Index(s, "Reaction"), "bars sorted by count")
}

func TestStatsEmpty(t *testing.T) {
	html, err := Stats(api.Stats{}, true)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-section="curators"`)
}

func TestSettingsForms(t *testing.T) {
	html, err := Settings(api.Settings{
		Bot:           api.BotSettings{Prefix: "!"},
		Notifications: api.NotificationSettings{Enabled: true},
	}, true)
	require.NoError(t, err)
	s := string(html)
	for _, group := range []string{"bot", "rating", "notifications"} {
		assert.Contains(t, s, `data-group="`+group+`"`)
	}
	assert.Contains(t, s, `name="enabled" checked`)
}

func TestForms(t *testing.T) {
	servers := []api.Server{{ID: 1, Name: "Main"}, {ID: 2, Name: "Events"}}

	html, err := CuratorForm(nil, servers)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-form="create"`)
	assert.Contains(t, string(html), `name="servers" value="Main">`)
	assert.Contains(t, string(html), `name="servers" value="Events">`)

	html, err = CuratorForm(&api.Curator{ID: 3, Name: "Zed", Servers: []string{"Main"}}, servers)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-form="update"`)
	assert.Contains(t, string(html), `data-id="3"`)
	assert.Contains(t, string(html), `value="Zed"`)
	assert.Contains(t, string(html), `name="servers" value="Main" checked>`)
	assert.Contains(t, string(html), `name="servers" value="Events">`)

	html, err = CuratorForm(nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-empty="server-choices"`)

	html, err = ServerForm(nil)
	require.NoError(t, err)
	assert.Contains(t, string(html), `name="is_active" checked`)

	html, err = ServerForm(&api.Server{ID: 4, Name: "Main", IsActive: false})
	require.NoError(t, err)
	assert.NotContains(t, string(html), `name="is_active" checked`)
}

func TestCuratorDetails(t *testing.T) {
	c := api.Curator{ID: 7, Name: "Nia", TotalPoints: 1500, DiscordID: "77", Servers: []string{"Main"},
		CreatedAt: time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)}

	html, err := CuratorDetails(api.CuratorDetails{Curator: c}, true)
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, `data-loading="true"`)
	assert.Contains(t, s, "Loading weekly stats")
	assert.Contains(t, s, "1,500 pts")
	assert.Contains(t, s, "June 3, 2025")

	html, err = CuratorDetails(api.CuratorDetails{Curator: c, WeeklyStats: &api.WeeklyStats{
		TotalActivities: 12, Messages: 7, Reactions: 3, Replies: 2, TotalPoints: 16,
	}}, false)
	require.NoError(t, err)
	s = string(html)
	assert.NotContains(t, s, "data-loading")
	assert.Contains(t, s, `class="weekly-stats"`)
	assert.Contains(t, s, "<dt>Messages</dt><dd>7</dd>")
	assert.Contains(t, s, "<dt>Points</dt><dd>16</dd>")
}

func TestShell(t *testing.T) {
	html, err := Shell(ShellData{DarkMode: true, CSRFToken: "tok"})
	require.NoError(t, err)
	s := string(html)
	for _, sec := range section.All {
		assert.Contains(t, s, `id="section-`+string(sec)+`"`)
		assert.Contains(t, s, `data-section="`+string(sec)+`"`)
	}
	for _, id := range []string{ContainerStats, ContainerCurators, ContainerActivities, ContainerServers, ContainerReports, ContainerBackups, ContainerBackupSettings, ContainerSettings} {
		assert.Contains(t, s, `id="`+id+`"`)
	}
	assert.Contains(t, s, `class="dark"`)
	assert.Contains(t, s, `data-initial="dashboard"`)
	assert.Contains(t, s, `content="tok"`)
}

func TestShellOfflineToastIsLocal(t *testing.T) {
	html, err := Shell(ShellData{ToastTTL: 5 * time.Second})
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, `data-toast-ttl="5000"`)
	assert.Contains(t, s, `toastElement("offline", "warning"`)
	assert.Contains(t, s, `send({type: "connectivity", online: true})`)
	assert.NotContains(t, s, "online: false", "going offline never waits on the socket")
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, percent(5, 0))
	assert.Equal(t, 0, percent(-1, 10))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 100, percent(7, 7))
}
