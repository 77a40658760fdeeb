package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/storetest"
)

func newTestStore(t *testing.T, seed []domain.Activity) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client, "test")
	require.NoError(t, store.Seed(context.Background(), seed))
	return store, mr
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, seed []domain.Activity) domain.Store {
		store, _ := newTestStore(t, seed)
		return store
	})
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, storetest.Seed())
	require.NoError(t, store.Enroll(ctx, "Chess Club", "kept@mergington.edu"))

	require.NoError(t, store.Seed(ctx, storetest.Seed()))

	activities, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	require.Equal(t,
		[]string{"michael@mergington.edu", "daniel@mergington.edu", "kept@mergington.edu"},
		storetest.Roster(t, store, "Chess Club"))
}

func TestKeysUsePrefix(t *testing.T) {
	_, mr := newTestStore(t, storetest.Seed())

	require.True(t, mr.Exists("test:order"))
	require.True(t, mr.Exists("test:activity:Chess Club"))
	require.Equal(t, "12", mr.HGet("test:activity:Chess Club", "max_participants"))
	members, err := mr.Members("test:members:Chess Club")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, members)
}

func TestEmptyStoreListsNothing(t *testing.T) {
	store, _ := newTestStore(t, nil)
	activities, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, activities)
}

func TestServerErrorIsWrapped(t *testing.T) {
	store, mr := newTestStore(t, storetest.Seed())
	mr.SetError("ERR injected failure")

	err := store.Enroll(context.Background(), "Chess Club", "a@b.edu")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrActivityNotFound)
	require.ErrorContains(t, err, "roster script")
}
