package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Stats fetches the dashboard summary.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &s)
	return s, err
}

// Curators lists all curators.
func (c *Client) Curators(ctx context.Context) ([]Curator, error) {
	var out []Curator
	err := c.do(ctx, http.MethodGet, "/api/curators", nil, &out)
	return out, err
}

// Curator fetches curator id with its weekly stats.
func (c *Client) Curator(ctx context.Context, id int64) (CuratorDetails, error) {
	var out CuratorDetails
	err := c.do(ctx, http.MethodGet, idPath("/api/curators", id), nil, &out)
	return out, err
}

// CreateCurator registers a new curator.
func (c *Client) CreateCurator(ctx context.Context, f CuratorFields) (Curator, error) {
	var out Curator
	err := c.do(ctx, http.MethodPost, "/api/curators", f, &out)
	return out, err
}

// UpdateCurator replaces the writable fields of curator id.
func (c *Client) UpdateCurator(ctx context.Context, id int64, f CuratorFields) (Curator, error) {
	var out Curator
	err := c.do(ctx, http.MethodPut, idPath("/api/curators", id), f, &out)
	return out, err
}

// DeleteCurator removes curator id.
func (c *Client) DeleteCurator(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/curators", id), nil, nil)
}

// Activities lists the activity feed.
func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var out []Activity
	err := c.do(ctx, http.MethodGet, "/api/activities", nil, &out)
	return out, err
}

// Servers lists watched Discord servers.
func (c *Client) Servers(ctx context.Context) ([]Server, error) {
	var out []Server
	err := c.do(ctx, http.MethodGet, "/api/servers", nil, &out)
	return out, err
}

// CreateServer adds a server.
func (c *Client) CreateServer(ctx context.Context, f ServerFields) (Server, error) {
	var out Server
	err := c.do(ctx, http.MethodPost, "/api/servers", f, &out)
	return out, err
}

// UpdateServer replaces the writable fields of server id.
func (c *Client) UpdateServer(ctx context.Context, id int64, f ServerFields) (Server, error) {
	var out Server
	err := c.do(ctx, http.MethodPut, idPath("/api/servers", id), f, &out)
	return out, err
}

// DeleteServer removes server id.
func (c *Client) DeleteServer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/servers", id), nil, nil)
}

// InitializeServers asks the backend to seed its default server list.
func (c *Client) InitializeServers(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/servers/initialize", nil, nil)
}

// TaskReports lists task reports.
func (c *Client) TaskReports(ctx context.Context) ([]TaskReport, error) {
	var out []TaskReport
	err := c.do(ctx, http.MethodGet, "/api/task-reports", nil, &out)
	return out, err
}

// DeleteTaskReport removes report id.
func (c *Client) DeleteTaskReport(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/task-reports", id), nil, nil)
}

// Backups lists backup files and the backup schedule.
func (c *Client) Backups(ctx context.Context) (BackupListing, error) {
	var out BackupListing
	err := c.do(ctx, http.MethodGet, "/api/backup", nil, &out)
	return out, err
}

// CreateBackup triggers a new backup.
func (c *Client) CreateBackup(ctx context.Context) (Backup, error) {
	var out Backup
	err := c.do(ctx, http.MethodPost, "/api/backup/create", nil, &out)
	return out, err
}

// OpenBackup streams a backup file. The caller must close the reader. size
// is -1 when the backend does not report a length.
func (c *Client) OpenBackup(ctx context.Context, name string) (rc io.ReadCloser, size int64, err error) {
	if name == "" {
		return nil, 0, fmt.Errorf("backup name is required")
	}
	resp, err := c.send(ctx, http.MethodGet, filePath("/api/backup/download", name), nil)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// RestoreBackup restores the backend state from the named backup.
func (c *Client) RestoreBackup(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, filePath("/api/backup/restore", name), nil, nil)
}

// DeleteBackup removes the named backup.
func (c *Client) DeleteBackup(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, filePath("/api/backup/delete", name), nil, nil)
}

// CleanupBackups prunes backups beyond the configured retention.
func (c *Client) CleanupBackups(ctx context.Context) (CleanupResult, error) {
	var out CleanupResult
	err := c.do(ctx, http.MethodPost, "/api/backup/cleanup", nil, &out)
	return out, err
}

// UpdateBackupSettings saves the backup schedule.
func (c *Client) UpdateBackupSettings(ctx context.Context, s BackupSettings) (BackupSettings, error) {
	var out BackupSettings
	err := c.do(ctx, http.MethodPut, "/api/backup/settings", s, &out)
	return out, err
}

// Settings fetches all backend settings.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out)
	return out, err
}

// UpdateSettings saves one settings group. v must be the group's struct
// (BotSettings, RatingSettings or NotificationSettings).
func (c *Client) UpdateSettings(ctx context.Context, group SettingsGroup, v any) error {
	switch group {
	case SettingsBot, SettingsRating, SettingsNotifications:
	default:
		return fmt.Errorf("unknown settings group %q", group)
	}
	return c.do(ctx, http.MethodPut, "/api/settings/"+string(group), v, nil)
}
