// Package storetest holds the behaviour every domain.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/activities/internal/domain"
)

// Factory builds a fresh store seeded with seed.
type Factory func(t *testing.T, seed []domain.Activity) domain.Store

// Seed returns a small fixed seed set.
func Seed() []domain.Activity {
	return []domain.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Art Club",
			Description:     "Explore drawing, painting, and mixed media projects",
			Schedule:        "Wednesdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 1,
			Participants:    []string{},
		},
	}
}

// Run exercises the shared contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ListPreservesSeedOrder", func(t *testing.T) {
		store := newStore(t, Seed())
		activities, err := store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, activities, 3)
		for i, want := range Seed() {
			require.Equal(t, want.Name, activities[i].Name)
			require.Equal(t, want.Description, activities[i].Description)
			require.Equal(t, want.Schedule, activities[i].Schedule)
			require.Equal(t, want.MaxParticipants, activities[i].MaxParticipants)
			require.Equal(t, want.Participants, activities[i].Participants)
			require.NotNil(t, activities[i].Participants)
		}
	})

	t.Run("EnrollThenUnenrollRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		require.NoError(t, store.Enroll(ctx, "Chess Club", "x@y.edu"))
		require.Equal(t,
			[]string{"michael@mergington.edu", "daniel@mergington.edu", "x@y.edu"},
			Roster(t, store, "Chess Club"))

		require.NoError(t, store.Unenroll(ctx, "Chess Club", "x@y.edu"))
		require.Equal(t,
			[]string{"michael@mergington.edu", "daniel@mergington.edu"},
			Roster(t, store, "Chess Club"))
	})

	t.Run("DuplicateEnrollRejected", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		require.NoError(t, store.Enroll(ctx, "Programming Class", "new@mergington.edu"))
		err := store.Enroll(ctx, "Programming Class", "new@mergington.edu")
		require.ErrorIs(t, err, domain.ErrAlreadyEnrolled)
		require.Len(t, Roster(t, store, "Programming Class"), 3)
	})

	t.Run("UnknownActivity", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		require.ErrorIs(t, store.Enroll(ctx, "Unknown Club", "a@b.edu"), domain.ErrActivityNotFound)
		require.ErrorIs(t, store.Unenroll(ctx, "Unknown Club", "a@b.edu"), domain.ErrActivityNotFound)
	})

	t.Run("UnenrollAbsentParticipant", func(t *testing.T) {
		store := newStore(t, Seed())
		err := store.Unenroll(context.Background(), "Chess Club", "never@here.edu")
		require.ErrorIs(t, err, domain.ErrParticipantNotFound)
		require.Len(t, Roster(t, store, "Chess Club"), 2)
	})

	t.Run("UnenrollKeepsRemainingOrder", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		require.NoError(t, store.Enroll(ctx, "Chess Club", "c@mergington.edu"))
		require.NoError(t, store.Unenroll(ctx, "Chess Club", "michael@mergington.edu"))
		require.Equal(t,
			[]string{"daniel@mergington.edu", "c@mergington.edu"},
			Roster(t, store, "Chess Club"))
	})

	t.Run("CapacityNotEnforced", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		require.NoError(t, store.Enroll(ctx, "Art Club", "one@mergington.edu"))
		require.NoError(t, store.Enroll(ctx, "Art Club", "two@mergington.edu"))
		require.Len(t, Roster(t, store, "Art Club"), 2)
	})

	t.Run("ConcurrentEnrollsKeepRosterUnique", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, Seed())

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// Every worker races on the same email plus one of its own.
				shared := store.Enroll(ctx, "Chess Club", "race@mergington.edu")
				own := store.Enroll(ctx, "Chess Club", fmt.Sprintf("w%d@mergington.edu", i))
				mu.Lock()
				defer mu.Unlock()
				if shared == nil {
					successes++
				}
				if own != nil {
					t.Errorf("enroll own email: %v", own)
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		require.Len(t, Roster(t, store, "Chess Club"), 2+1+workers)
	})
}

// TB is the subset of testing.TB shared with *rapid.T.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	FailNow()
}

// Roster returns the participants of name as currently listed by store.
func Roster(t TB, store domain.Store, name string) []string {
	t.Helper()
	activities, err := store.List(context.Background())
	require.NoError(t, err)
	for _, a := range activities {
		if a.Name == name {
			return a.Participants
		}
	}
	t.Fatalf("activity %q not listed", name)
	return nil
}
