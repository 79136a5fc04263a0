package snapshot

import (
	"context"
	"testing"
	"time"

	"echocircle/internal/models"
	"echocircle/internal/state"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "echocircle:state"), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	s := state.NewState()
	s.Session.User = &models.User{ID: "u1"}
	s.Session.Token = "tok-123"
	s.Feed.Posts = []models.Post{{ID: "p1", Comments: []string{"hi"}}}
	require.NoError(t, store.Save(ctx, Capture(s, 3)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.Version)
	assert.Equal(t, "u1", loaded.User.ID)
	assert.Equal(t, "tok-123", loaded.Token)
	require.Len(t, loaded.Posts, 1)
	assert.Equal(t, []string{"hi"}, loaded.Posts[0].Comments)
}

func TestRedisStore_MissingKeyIsColdStart(t *testing.T) {
	store, _ := newTestRedisStore(t)

	loaded, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_CorruptValueReturnsError(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("echocircle:state", "{not json"))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_Clear(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Capture(state.NewState(), 1)))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDialRedis_InvalidURL(t *testing.T) {
	_, err := DialRedis("redis://[bad")
	assert.Error(t, err)
}

func TestRedisStore_GateIntegration(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	s := state.NewState()
	s.Session.Token = "tok"
	require.NoError(t, store.Save(ctx, Capture(s, 1)))

	st := state.NewStore()
	require.NoError(t, NewGate(store, st, 1, time.Second).Run(ctx))
	assert.Equal(t, "tok", st.GetState().Session.Token)
}
