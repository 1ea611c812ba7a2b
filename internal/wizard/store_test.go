package wizard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/models"
	"ridedesk/internal/wizard"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*wizard.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return wizard.NewStore(client, ttl), mr
}

func TestStoreRoundTripsDraft(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.Load(ctx, "user-1")
	require.ErrorIs(t, err, wizard.ErrDraftNotFound)

	d := completeDraft(t)
	require.NoError(t, store.Save(ctx, d))
	require.Equal(t, time.Hour, mr.TTL("wizard:draft:user-1"))

	loaded, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, d.ID, loaded.ID)
	require.Equal(t, models.VehicleCar, loaded.VehicleType)
	require.Equal(t, d.Captures, loaded.Captures)
	require.Empty(t, loaded.Missing())

	require.NoError(t, store.Delete(ctx, "user-1"))
	_, err = store.Load(ctx, "user-1")
	require.ErrorIs(t, err, wizard.ErrDraftNotFound)
}

func TestStoreDraftExpires(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, wizard.NewDraft("draft-1", "user-1", time.Now())))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "user-1")
	require.ErrorIs(t, err, wizard.ErrDraftNotFound)
}

func TestStoreSubmitLock(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	locked, err := store.Locked(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, locked)

	ok, err := store.Lock(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Lock(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	locked, err = store.Locked(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, locked)

	mr.FastForward(2 * time.Minute)
	locked, err = store.Locked(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, locked)

	ok, err = store.Lock(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Unlock(ctx, "user-1"))
	locked, err = store.Locked(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestStoreCountActive(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	count, err := store.CountActive(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	for _, user := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, wizard.NewDraft("draft-"+user, user, time.Now())))
	}
	_, err = store.Lock(ctx, "a", time.Minute)
	require.NoError(t, err)

	count, err = store.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
