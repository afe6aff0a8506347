// Package prefs persists per-browser UI preferences.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ziadkadry99/curatordash/internal/db"
)

// ErrNotFound is returned when a client has no stored preferences.
var ErrNotFound = errors.New("preferences not found")

// Preferences are the UI settings remembered for one browser client.
type Preferences struct {
	ClientID string `json:"client_id"`
	DarkMode bool   `json:"dark_mode"`
}

// Store provides access to stored preferences.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Get returns the preferences for clientID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, clientID string) (Preferences, error) {
	var dark int
	err := s.db.QueryRowContext(ctx,
		`SELECT dark_mode FROM ui_preferences WHERE client_id = ?`, clientID).Scan(&dark)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("querying preferences: %w", err)
	}
	return Preferences{ClientID: clientID, DarkMode: dark != 0}, nil
}

// Lookup returns the preferences for clientID, falling back to defaults when
// none are stored.
func (s *Store) Lookup(ctx context.Context, clientID string) (Preferences, error) {
	p, err := s.Get(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return Preferences{ClientID: clientID}, nil
	}
	return p, err
}

// SetDarkMode stores the dark-mode flag for clientID.
func (s *Store) SetDarkMode(ctx context.Context, clientID string, dark bool) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}
	v := 0
	if dark {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ui_preferences (client_id, dark_mode, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(client_id) DO UPDATE SET dark_mode = excluded.dark_mode, updated_at = excluded.updated_at`,
		clientID, v)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}
