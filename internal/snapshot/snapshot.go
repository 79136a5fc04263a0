// Package snapshot persists a whitelisted subset of the application state to
// a durable key-value location and restores it once at startup.
package snapshot

import (
	"context"
	"time"

	"echocircle/internal/models"
	"echocircle/internal/state"
)

// Snapshot is the versioned envelope written to durable storage. Only the
// whitelisted slices appear here; theme mode and everything else keep their
// code defaults on restore.
type Snapshot struct {
	Version int           `json:"version"`
	User    *models.User  `json:"user"`
	Token   string        `json:"token"`
	Posts   []models.Post `json:"posts"`
	SavedAt time.Time     `json:"savedAt"`
}

// Capture builds a snapshot of the whitelisted fields from a state tree.
func Capture(s state.State, version int) *Snapshot {
	return &Snapshot{
		Version: version,
		User:    s.Session.User,
		Token:   s.Session.Token,
		Posts:   s.Feed.Posts,
		SavedAt: time.Now().UTC(),
	}
}

// Store defines how snapshots are stored and retrieved. Implementations are
// addressed by a fixed key configured at construction time.
type Store interface {
	// Load returns the stored snapshot, or (nil, nil) on cold start.
	Load(ctx context.Context) (*Snapshot, error)
	// Save overwrites the stored snapshot. Last writer wins.
	Save(ctx context.Context, s *Snapshot) error
	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}
