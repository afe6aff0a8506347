package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/entity"
	"github.com/ziadkadry99/curatordash/internal/section"
	"github.com/ziadkadry99/curatordash/internal/toast"
	"github.com/ziadkadry99/curatordash/internal/views"
)

// Entity names used by browser actions.
const (
	entityCurators = "curators"
	entityServers  = "servers"
	entityReports  = "reports"
	entityBackup   = "backup"
)

// Handle decodes and dispatches one raw browser message. Malformed messages
// raise an error toast; they never end the session.
func (s *Session) Handle(raw []byte) {
	var a Action
	if err := json.Unmarshal(raw, &a); err != nil {
		s.logger.Warn("malformed action", zap.Error(err))
		s.toasts.Notify("Ignored a malformed request from the browser", toast.SeverityError)
		return
	}
	s.Dispatch(a)
}

// Dispatch performs a. Navigation runs synchronously; backend calls run in
// the background so a slow request never delays the next action.
func (s *Session) Dispatch(a Action) {
	s.logger.Debug("action", zap.String("type", a.Type), zap.String("entity", a.Entity))

	switch a.Type {
	case ActionNavigate:
		s.navigate(a.Section)
	case ActionRefresh:
		if b, ok := s.bindings[s.controller.Active()]; ok {
			s.load(b)
		}
	case ActionCreate:
		s.create(a)
	case ActionDetails:
		s.details(a)
	case ActionEdit:
		s.edit(a)
	case ActionCancelEdit:
		s.cancelEdit(a)
	case ActionUpdate:
		s.update(a)
	case ActionDelete:
		s.remove(a)
	case ActionDismiss:
		s.toasts.Dismiss(string(a.ID))
	case ActionInitializeServers:
		s.mutate("initialize", entityServers, "", func(ctx context.Context) error {
			return s.servers.Do(ctx, "initialize servers", "Default servers added", s.client.InitializeServers)
		})
	case ActionBackup:
		s.backup(a)
	case ActionBackupSettings:
		s.saveBackupSettings(a)
	case ActionSettings:
		s.saveSettings(a)
	case ActionTheme:
		s.theme(a.Dark)
	case ActionConnectivity:
		if a.Online {
			s.toasts.Notify("Connection restored", toast.SeveritySuccess)
		} else {
			s.toasts.Notify("You are offline. Changes will fail until the connection returns", toast.SeverityWarning)
		}
	default:
		s.reject("unknown action %q", a.Type)
	}
}

func (s *Session) navigate(name string) {
	sec, err := section.Parse(name)
	if err == nil {
		err = s.controller.Activate(s.ctx, sec)
	}
	if err != nil {
		s.logger.Warn("navigation rejected", zap.Error(err))
		s.toasts.Notifyf(toast.SeverityError, "Unknown section %q", name)
	}
}

func (s *Session) create(a Action) {
	if len(a.Fields) == 0 {
		s.openForm(a.Entity, nil)
		return
	}
	switch a.Entity {
	case entityCurators:
		var f api.CuratorFields
		if !s.decode(a, &f) {
			return
		}
		s.mutate("create", entityCurators, f.Name, func(ctx context.Context) error {
			_, err := s.curators.Create(ctx, f)
			if err == nil {
				s.closeModal()
			}
			return err
		})
	case entityServers:
		var f api.ServerFields
		if !s.decode(a, &f) {
			return
		}
		s.mutate("create", entityServers, f.Name, func(ctx context.Context) error {
			_, err := s.servers.Create(ctx, f)
			if err == nil {
				s.closeModal()
			}
			return err
		})
	default:
		s.reject("cannot create %q", a.Entity)
	}
}

// openForm shows the create (rec == nil) or edit modal for an entity.
func (s *Session) openForm(name string, rec any) {
	var err error
	switch name {
	case entityCurators:
		c, _ := rec.(*api.Curator)
		if !s.servers.Loaded() {
			s.openCuratorFormAfterLoad(c)
			return
		}
		html, rerr := views.CuratorForm(c, s.servers.Items())
		if err = rerr; err == nil {
			s.showModal(html)
		}
	case entityServers:
		sv, _ := rec.(*api.Server)
		html, rerr := views.ServerForm(sv)
		if err = rerr; err == nil {
			s.showModal(html)
		}
	default:
		s.reject("no form for %q", name)
		return
	}
	if err != nil {
		s.logger.Error("rendering form", zap.Error(err))
	}
}

// openCuratorFormAfterLoad fills the servers cache before showing the
// curator form. The form is dropped if another modal was opened or closed in
// the meantime. A failed load still opens the form, without server choices.
func (s *Session) openCuratorFormAfterLoad(c *api.Curator) {
	seq := s.currentModal()
	s.spawn(func(ctx context.Context) {
		if err := s.servers.Load(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("loading servers for curator form", zap.Error(err))
		}
		html, err := views.CuratorForm(c, s.servers.Items())
		if err != nil {
			s.logger.Error("rendering form", zap.Error(err))
			return
		}
		s.swapModal(seq, html)
	})
}

// details shows the cached curator at once, then replaces it with the
// backend's record and weekly summary.
func (s *Session) details(a Action) {
	if a.Entity != entityCurators {
		s.reject("no details for %q", a.Entity)
		return
	}
	id, err := a.ID.Int64()
	if err != nil {
		s.reject("%v", err)
		return
	}
	c, ok := s.curators.Get(id)
	if !ok {
		s.missing(fmt.Errorf("curators %d: %w", id, entity.ErrNotFound))
		return
	}
	html, err := views.CuratorDetails(api.CuratorDetails{Curator: c}, true)
	if err != nil {
		s.logger.Error("rendering curator details", zap.Error(err))
		return
	}
	seq := s.showModal(html)

	s.spawn(func(ctx context.Context) {
		d, err := s.client.Curator(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("loading curator details", zap.Int64("curator", id), zap.Error(err))
			s.toasts.Notifyf(toast.SeverityError, "Failed to load curator details: %s", entity.Describe(err))
			return
		}
		html, err := views.CuratorDetails(d, false)
		if err != nil {
			s.logger.Error("rendering curator details", zap.Error(err))
			return
		}
		s.swapModal(seq, html)
	})
}

func (s *Session) edit(a Action) {
	id, err := a.ID.Int64()
	if err != nil {
		s.reject("%v", err)
		return
	}
	switch a.Entity {
	case entityCurators:
		c, err := s.curators.Edit(id)
		if err != nil {
			s.missing(err)
			return
		}
		s.openForm(a.Entity, &c)
	case entityServers:
		sv, err := s.servers.Edit(id)
		if err != nil {
			s.missing(err)
			return
		}
		s.openForm(a.Entity, &sv)
	default:
		s.reject("cannot edit %q", a.Entity)
	}
}

func (s *Session) cancelEdit(a Action) {
	switch a.Entity {
	case entityCurators:
		s.curators.CancelEdit()
	case entityServers:
		s.servers.CancelEdit()
	}
	s.closeModal()
}

func (s *Session) update(a Action) {
	if a.ID != "" {
		if _, err := a.ID.Int64(); err != nil {
			s.reject("%v", err)
			return
		}
	}
	switch a.Entity {
	case entityCurators:
		var f api.CuratorFields
		if !s.decode(a, &f) {
			return
		}
		s.mutate("update", entityCurators, string(a.ID), func(ctx context.Context) error {
			err := updateRecord(ctx, s.curators, a.ID, f)
			if err == nil {
				s.closeModal()
			} else if errors.Is(err, entity.ErrNotFound) {
				s.missing(err)
			}
			return err
		})
	case entityServers:
		var f api.ServerFields
		if !s.decode(a, &f) {
			return
		}
		s.mutate("update", entityServers, string(a.ID), func(ctx context.Context) error {
			err := updateRecord(ctx, s.servers, a.ID, f)
			if err == nil {
				s.closeModal()
			} else if errors.Is(err, entity.ErrNotFound) {
				s.missing(err)
			}
			return err
		})
	default:
		s.reject("cannot update %q", a.Entity)
	}
}

// updateRecord updates the record named by id, or the one open for editing
// when id is empty.
func updateRecord[T, F any](ctx context.Context, m *entity.Module[int64, T, F], id ID, f F) error {
	if id == "" {
		_, err := m.UpdateEditing(ctx, f)
		return err
	}
	n, err := id.Int64()
	if err != nil {
		return err
	}
	_, err = m.Update(ctx, n, f)
	return err
}

func (s *Session) remove(a Action) {
	if a.Entity == entityBackup || a.Entity == "backups" {
		name := string(a.ID)
		if name == "" {
			name = a.File
		}
		if name == "" {
			s.reject("backup file is required")
			return
		}
		s.mutate("delete", entityBackup, name, func(ctx context.Context) error {
			return s.backups.Delete(ctx, name)
		})
		return
	}

	id, err := a.ID.Int64()
	if err != nil {
		s.reject("%v", err)
		return
	}
	var del func(context.Context, int64) error
	switch a.Entity {
	case entityCurators:
		del = s.curators.Delete
	case entityServers:
		del = s.servers.Delete
	case entityReports:
		del = s.reports.Delete
	default:
		s.reject("cannot delete %q", a.Entity)
		return
	}
	s.mutate("delete", a.Entity, string(a.ID), func(ctx context.Context) error {
		return del(ctx, id)
	})
}

func (s *Session) backup(a Action) {
	c := s.client
	switch a.Op {
	case "create":
		s.mutate("create", entityBackup, "", func(ctx context.Context) error {
			return s.backups.Do(ctx, "create backup", "Backup created", func(ctx context.Context) error {
				_, err := c.CreateBackup(ctx)
				return err
			})
		})
	case "restore":
		if a.File == "" {
			s.reject("backup file is required")
			return
		}
		s.mutate("restore", entityBackup, a.File, func(ctx context.Context) error {
			return s.backups.Do(ctx, "restore "+a.File, "Backup "+a.File+" restored", func(ctx context.Context) error {
				return c.RestoreBackup(ctx, a.File)
			})
		})
	case "delete":
		a.Entity = entityBackup
		s.remove(a)
	case "cleanup":
		s.mutate("cleanup", entityBackup, "", func(ctx context.Context) error {
			return s.backups.Do(ctx, "clean up backups", "Old backups removed", func(ctx context.Context) error {
				res, err := c.CleanupBackups(ctx)
				if err == nil {
					s.logger.Info("backups cleaned up", zap.Strings("deleted", res.Deleted))
				}
				return err
			})
		})
	default:
		s.reject("unknown backup operation %q", a.Op)
	}
}

func (s *Session) saveBackupSettings(a Action) {
	var bs api.BackupSettings
	if !s.decode(a, &bs) {
		return
	}
	s.mutate("update", "backup_settings", "", func(ctx context.Context) error {
		return s.backupSettings.Do(ctx, "save backup settings", "Backup settings saved", func(ctx context.Context) error {
			_, err := s.client.UpdateBackupSettings(ctx, bs)
			return err
		})
	})
}

func (s *Session) saveSettings(a Action) {
	var v any
	group := api.SettingsGroup(a.Group)
	switch group {
	case api.SettingsBot:
		v = &api.BotSettings{}
	case api.SettingsRating:
		v = &api.RatingSettings{}
	case api.SettingsNotifications:
		v = &api.NotificationSettings{}
	default:
		s.reject("unknown settings group %q", a.Group)
		return
	}
	if !s.decode(a, v) {
		return
	}
	s.mutate("update", "settings", string(group), func(ctx context.Context) error {
		return s.settings.Do(ctx, fmt.Sprintf("save %s settings", group), "Settings saved", func(ctx context.Context) error {
			return s.client.UpdateSettings(ctx, group, v)
		})
	})
}

func (s *Session) theme(dark bool) {
	if s.opts.Themes != nil && s.opts.ClientID != "" {
		if err := s.opts.Themes.SetDarkMode(s.ctx, s.opts.ClientID, dark); err != nil {
			s.logger.Error("saving theme", zap.Error(err))
			s.toasts.Notify("Failed to save theme preference", toast.SeverityError)
		}
	}
	s.SetTheme(dark)
}

func (s *Session) decode(a Action, v any) bool {
	if len(a.Fields) == 0 {
		s.reject("%s: missing fields", a.Type)
		return false
	}
	if err := json.Unmarshal(a.Fields, v); err != nil {
		s.reject("%s: invalid fields: %v", a.Type, err)
		return false
	}
	return true
}

func (s *Session) missing(err error) {
	s.logger.Warn("record not found", zap.Error(err))
	s.toasts.Notify("That record no longer exists", toast.SeverityError)
}

func (s *Session) reject(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn("action rejected", zap.String("reason", msg))
	s.toasts.Notify("Invalid request: "+msg, toast.SeverityError)
}
