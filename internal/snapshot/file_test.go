package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"echocircle/internal/models"
	"echocircle/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	s := state.NewState()
	s.Session.User = &models.User{ID: "u1", FirstName: "Ann"}
	s.Session.Token = "tok-123"
	s.Feed.Posts = []models.Post{{ID: "p1", Likes: map[string]bool{"u1": true}}}

	require.NoError(t, store.Save(ctx, Capture(s, 1)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.Version)
	assert.Equal(t, "u1", loaded.User.ID)
	assert.Equal(t, "tok-123", loaded.Token)
	require.Len(t, loaded.Posts, 1)
	assert.True(t, loaded.Posts[0].Likes["u1"])
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestFileStore_MissingFileIsColdStart(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_CorruptFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_SaveOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	first := state.NewState()
	first.Session.Token = "old"
	require.NoError(t, store.Save(ctx, Capture(first, 1)))

	second := state.NewState()
	second.Session.Token = "new"
	require.NoError(t, store.Save(ctx, Capture(second, 1)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.Token)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Capture(state.NewState(), 1)))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing an absent snapshot is not an error.
	assert.NoError(t, store.Clear(ctx))
}
