package api

import "time"

// Curator is a tracked Discord curator.
type Curator struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	DiscordID     string    `json:"discord_id"`
	TotalPoints   int       `json:"total_points"`
	ActivityCount int       `json:"activity_count"`
	Servers       []string  `json:"servers"`
	LastActiveAt  time.Time `json:"last_active_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// WeeklyStats summarises a curator's last seven days.
type WeeklyStats struct {
	TotalActivities int `json:"total_activities"`
	Messages        int `json:"messages"`
	Reactions       int `json:"reactions"`
	Replies         int `json:"replies"`
	TotalPoints     int `json:"total_points"`
}

// CuratorDetails is a curator with its weekly summary.
type CuratorDetails struct {
	Curator
	WeeklyStats *WeeklyStats `json:"weekly_stats,omitempty"`
}

// CuratorFields is the writable subset of a Curator.
type CuratorFields struct {
	Name      string   `json:"name"`
	DiscordID string   `json:"discord_id"`
	Servers   []string `json:"servers,omitempty"`
}

// ActivityType categorises a curator activity.
type ActivityType string

const (
	ActivityMessage  ActivityType = "message"
	ActivityReaction ActivityType = "reaction"
	ActivityReply    ActivityType = "reply"
	ActivityTask     ActivityType = "task"
)

// Activity is one entry of the activity feed.
type Activity struct {
	ID          int64        `json:"id"`
	CuratorID   int64        `json:"curator_id"`
	CuratorName string       `json:"curator_name"`
	ServerName  string       `json:"server_name"`
	Type        ActivityType `json:"type"`
	Points      int          `json:"points"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Server is a Discord server (guild) the bot watches.
type Server struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DiscordID    string    `json:"discord_id"`
	IsActive     bool      `json:"is_active"`
	CuratorCount int       `json:"curator_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ServerFields is the writable subset of a Server.
type ServerFields struct {
	Name      string `json:"name"`
	DiscordID string `json:"discord_id"`
	IsActive  bool   `json:"is_active"`
}

// ReportStatus is the verification state of a task report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportVerified ReportStatus = "verified"
	ReportRejected ReportStatus = "rejected"
)

// TaskReport is a curator's self-reported task awaiting verification.
type TaskReport struct {
	ID          int64        `json:"id"`
	CuratorID   int64        `json:"curator_id"`
	CuratorName string       `json:"curator_name"`
	ServerName  string       `json:"server_name"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	Points      int          `json:"points"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Backup is a backup file stored by the backend.
type Backup struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupSettings controls the backend's automatic backup schedule.
type BackupSettings struct {
	AutoBackup    bool `json:"auto_backup"`
	IntervalHours int  `json:"interval_hours"`
	MaxBackups    int  `json:"max_backups"`
}

// BackupListing is the response of GET /api/backup.
type BackupListing struct {
	Backups  []Backup       `json:"backups"`
	Settings BackupSettings `json:"settings"`
}

// CleanupResult reports what a backup cleanup removed.
type CleanupResult struct {
	Deleted []string `json:"deleted"`
}

// BotSettings configures the Discord bot.
type BotSettings struct {
	Prefix            string `json:"prefix"`
	ActivityChannelID string `json:"activity_channel_id"`
	ReportChannelID   string `json:"report_channel_id"`
	StatusMessage     string `json:"status_message"`
}

// RatingSettings configures how activities are scored.
type RatingSettings struct {
	MessagePoints  int `json:"message_points"`
	ReactionPoints int `json:"reaction_points"`
	ReplyPoints    int `json:"reply_points"`
	TaskPoints     int `json:"task_points"`
	WeeklyGoal     int `json:"weekly_goal"`
}

// NotificationSettings configures backend-side alerts.
type NotificationSettings struct {
	Enabled          bool   `json:"enabled"`
	LowActivityAlert bool   `json:"low_activity_alert"`
	WebhookURL       string `json:"webhook_url"`
	DailyDigest      bool   `json:"daily_digest"`
}

// Settings groups all backend configuration.
type Settings struct {
	Bot           BotSettings          `json:"bot"`
	Rating        RatingSettings       `json:"rating"`
	Notifications NotificationSettings `json:"notifications"`
}

// SettingsGroup names one independently saved part of Settings.
type SettingsGroup string

const (
	SettingsBot           SettingsGroup = "bot"
	SettingsRating        SettingsGroup = "rating"
	SettingsNotifications SettingsGroup = "notifications"
)

// CuratorRank is one row of the dashboard leaderboard.
type CuratorRank struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TotalPoints int    `json:"total_points"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalCurators   int                  `json:"total_curators"`
	ActiveCurators  int                  `json:"active_curators"`
	TotalActivities int                  `json:"total_activities"`
	ActivitiesToday int                  `json:"activities_today"`
	TotalServers    int                  `json:"total_servers"`
	PendingReports  int                  `json:"pending_reports"`
	TopCurators     []CuratorRank        `json:"top_curators"`
	ActivityByType  map[ActivityType]int `json:"activity_by_type"`
}
