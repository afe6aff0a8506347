package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"

	"github.com/ziadkadry99/curatordash/internal/section"
	"github.com/ziadkadry99/curatordash/internal/toast"
)

// Frame types pushed to the browser.
const (
	FrameShow       = "show"
	FrameRender     = "render"
	FrameToast      = "toast"
	FrameDismiss    = "dismiss"
	FrameModal      = "modal"
	FrameCloseModal = "close_modal"
	FrameTheme      = "theme"
)

// Frame is one message pushed to the browser.
type Frame struct {
	Type    string          `json:"type"`
	Section section.Section `json:"section,omitempty"`
	Target  string          `json:"target,omitempty"`
	HTML    template.HTML   `json:"html,omitempty"`
	Toast   *toast.Toast    `json:"toast,omitempty"`
	ID      string          `json:"id,omitempty"`
	Dark    *bool           `json:"dark,omitempty"`
}

// Action types sent by the browser.
const (
	ActionNavigate          = "navigate"
	ActionRefresh           = "refresh"
	ActionCreate            = "create"
	ActionDetails           = "details"
	ActionEdit              = "edit"
	ActionCancelEdit        = "cancel_edit"
	ActionUpdate            = "update"
	ActionDelete            = "delete"
	ActionDismiss           = "dismiss"
	ActionInitializeServers = "initialize_servers"
	ActionBackup            = "backup"
	ActionBackupSettings    = "backup_settings"
	ActionSettings          = "settings"
	ActionTheme             = "theme"
	ActionConnectivity      = "connectivity"
)

// Action is one message received from the browser.
type Action struct {
	Type    string          `json:"type"`
	Section string          `json:"section,omitempty"`
	Entity  string          `json:"entity,omitempty"`
	ID      ID              `json:"id,omitempty"`
	Op      string          `json:"op,omitempty"`
	File    string          `json:"file,omitempty"`
	Group   string          `json:"group,omitempty"`
	Fields  json.RawMessage `json:"fields,omitempty"`
	Dark    bool            `json:"dark,omitempty"`
	Online  bool            `json:"online,omitempty"`
}

// ID is a record identifier. Browsers send data attributes as strings, so
// both JSON strings and numbers are accepted.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Int64 parses the id as a numeric record key.
func (id ID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", string(id))
	}
	return n, nil
}
