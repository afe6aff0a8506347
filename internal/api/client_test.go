package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/api/apitest"
)

func TestCuratorCRUD(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	ctx := context.Background()

	created, err := client.CreateCurator(ctx, api.CuratorFields{Name: "Alice", DiscordID: "111"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.Name)
	assert.NotZero(t, created.ID)

	list, err := client.Curators(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := client.UpdateCurator(ctx, created.ID, api.CuratorFields{Name: "Alicia", DiscordID: "111"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Name)

	require.NoError(t, client.DeleteCurator(ctx, created.ID))
	list, err = client.Curators(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCuratorDetails(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	now := time.Now().UTC()
	backend.SetCurators(api.Curator{ID: 7, Name: "Nia", TotalPoints: 40})
	backend.SetActivities(
		api.Activity{ID: 1, CuratorID: 7, Type: api.ActivityMessage, Points: 1, CreatedAt: now.Add(-time.Hour)},
		api.Activity{ID: 2, CuratorID: 7, Type: api.ActivityReply, Points: 2, CreatedAt: now.Add(-48 * time.Hour)},
		api.Activity{ID: 3, CuratorID: 7, Type: api.ActivityReaction, Points: 1, CreatedAt: now.AddDate(0, 0, -10)},
		api.Activity{ID: 4, CuratorID: 8, Type: api.ActivityMessage, Points: 1, CreatedAt: now},
	)

	d, err := client.Curator(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Nia", d.Name)
	assert.Equal(t, 40, d.TotalPoints)
	require.NotNil(t, d.WeeklyStats)
	assert.Equal(t, api.WeeklyStats{TotalActivities: 2, Messages: 1, Replies: 1, TotalPoints: 3}, *d.WeeklyStats)

	_, err = client.Curator(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestValidationError(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()

	_, err := client.CreateCurator(context.Background(), api.CuratorFields{})
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "name is required", apiErr.Message)
	assert.True(t, apiErr.IsValidation())
}

func TestNotFound(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()

	err := client.DeleteCurator(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := api.New(srv.URL).Activities(context.Background())
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.False(t, apiErr.IsValidation())
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.New(url).Curators(context.Background())
	require.Error(t, err)
	var apiErr *api.Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestTimeout(t *testing.T) {
	backend := apitest.New(t)
	release := backend.Hold(http.MethodGet, "/api/activities")
	defer release()

	client := backend.Client(api.WithTimeout(20 * time.Millisecond))
	_, err := client.Activities(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServersInitialize(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	ctx := context.Background()

	require.NoError(t, client.InitializeServers(ctx))
	servers, err := client.Servers(ctx)
	require.NoError(t, err)
	assert.Len(t, servers, 3)
}

func TestBackupLifecycle(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client(api.WithTimeout(time.Second))
	ctx := context.Background()

	bk, err := client.CreateBackup(ctx)
	require.NoError(t, err)

	listing, err := client.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Backups, 1)
	assert.Equal(t, 7, listing.Settings.MaxBackups)

	rc, size, err := client.OpenBackup(ctx, bk.Filename)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, int64(len(data)), size)
	assert.JSONEq(t, `{"curators":[]}`, string(data))

	require.NoError(t, client.RestoreBackup(ctx, bk.Filename))
	require.NoError(t, client.DeleteBackup(ctx, bk.Filename))
	assert.Empty(t, backend.Backups())

	err = client.RestoreBackup(ctx, bk.Filename)
	assert.True(t, api.IsNotFound(err))
}

func TestBackupCleanupAndSettings(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	ctx := context.Background()

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		backend.AddBackup(name, []byte("{}"))
	}

	saved, err := client.UpdateBackupSettings(ctx, api.BackupSettings{AutoBackup: false, IntervalHours: 12, MaxBackups: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.MaxBackups)

	res, err := client.CleanupBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, res.Deleted)

	_, err = client.UpdateBackupSettings(ctx, api.BackupSettings{MaxBackups: 0})
	require.Error(t, err)
}

func TestSettings(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	ctx := context.Background()

	s, err := client.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "!", s.Bot.Prefix)

	require.NoError(t, client.UpdateSettings(ctx, api.SettingsBot, api.BotSettings{Prefix: "?"}))
	assert.Equal(t, "?", backend.Settings().Bot.Prefix)

	err = client.UpdateSettings(ctx, "theme", nil)
	assert.Error(t, err)
}

func TestInjectedFailure(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client()
	ctx := context.Background()

	backend.Fail(http.MethodGet, "/api/task-reports", http.StatusInternalServerError, "db down")
	_, err := client.TaskReports(ctx)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "db down", apiErr.Message)

	backend.Recover(http.MethodGet, "/api/task-reports")
	_, err = client.TaskReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Hits(http.MethodGet, "/api/task-reports"))
}
