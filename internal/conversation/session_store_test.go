package conversation

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessionStore(client, nil, ttl), mr
}

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	s := NewSession(qualify.LanguageCatalan, SessionOptions{Config: qualify.DefaultConfig(), Cooldown: -1})
	_, err := s.Send(ctx, "Vull reformar el bany a Terrassa")
	require.NoError(t, err)
	snap := s.Snapshot()

	require.NoError(t, store.Save(ctx, snap))
	assert.True(t, mr.Exists("session:"+snap.ID))
	assert.Equal(t, time.Hour, mr.TTL("session:"+snap.ID))

	loaded, err := store.Load(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, qualify.LanguageCatalan, loaded.Language)
	assert.Equal(t, snap.State, loaded.State)
	assert.Equal(t, qualify.Known("Terrassa"), loaded.State.City)
	require.Len(t, loaded.Transcript, len(snap.Transcript))
	for i := range snap.Transcript {
		assert.Equal(t, snap.Transcript[i].Content, loaded.Transcript[i].Content)
		assert.True(t, snap.Transcript[i].Timestamp.Equal(loaded.Transcript[i].Timestamp))
	}

	require.NoError(t, store.Delete(ctx, snap.ID))
	_, err = store.Load(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_DefaultTTLAndExpiry(t *testing.T) {
	store, mr := newTestStore(t, 0)
	ctx := context.Background()
	snap := Snapshot{ID: "abc", Language: qualify.LanguageEnglish, State: qualify.NewState()}

	require.NoError(t, store.Save(ctx, snap))
	assert.Equal(t, defaultSessionTTL, mr.TTL("session:abc"))

	mr.FastForward(defaultSessionTTL + time.Second)
	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_CorruptPayload(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	mr.Close()

	err := store.Save(context.Background(), Snapshot{ID: "x"})
	assert.Error(t, err)
	_, err = store.Load(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
