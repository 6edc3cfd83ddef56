package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := redis.NewClient(context.Background(), redis.Config{Host: mr.Host(), Port: port}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour, logger), mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(time.Hour),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.GetCommunity(ctx, "user-1")
			assert.ErrorIs(t, err, ErrNoCommunity)
			assert.Equal(t, "", CommunityID(ctx, store, "user-1"))

			community := &models.Community{ID: "c1", Name: "Acme", Platforms: []models.Platform{{ID: "p1", Name: models.PlatformDiscord}}}
			require.NoError(t, store.SetCommunity(ctx, "user-1", community))

			got, err := store.GetCommunity(ctx, "user-1")
			require.NoError(t, err)
			assert.Equal(t, community, got)
			assert.Equal(t, "c1", CommunityID(ctx, store, "user-1"))

			// users are isolated
			_, err = store.GetCommunity(ctx, "user-2")
			assert.ErrorIs(t, err, ErrNoCommunity)

			require.NoError(t, store.DeleteCommunity(ctx, "user-1"))
			_, err = store.GetCommunity(ctx, "user-1")
			assert.ErrorIs(t, err, ErrNoCommunity)
		})
	}
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	store, mr := newRedisStore(t)

	require.NoError(t, store.SetCommunity(context.Background(), "user-1", &models.Community{ID: "c1"}))

	assert.True(t, mr.Exists("clover:session:user-1:community"))
	assert.Equal(t, time.Hour, mr.TTL("clover:session:user-1:community"))
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(CommunityKey("user-1"), "{not json"))

	_, err := store.GetCommunity(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoCommunity)
	assert.False(t, mr.Exists(CommunityKey("user-1")))
}

func TestMemoryStore_Expires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetCommunity(context.Background(), "user-1", &models.Community{ID: "c1"}))

	now = now.Add(2 * time.Minute)
	_, err := store.GetCommunity(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoCommunity)
}
