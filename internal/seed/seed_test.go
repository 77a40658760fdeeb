package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSeedHasNineActivitiesInOrder(t *testing.T) {
	activities, err := Default()
	require.NoError(t, err)
	require.Len(t, activities, 9)

	require.Equal(t, "Chess Club", activities[0].Name)
	require.Equal(t, "Math Club", activities[8].Name)
	require.Equal(t, 12, activities[0].MaxParticipants)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, activities[0].Participants)
	require.Equal(t, "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM", activities[2].Schedule)
}

func TestParseRejectsInvalidSeed(t *testing.T) {
	raw := []byte(`
activities:
  - name: Chess Club
    max_participants: 0
    participants: [a@b.edu, a@b.edu]
  - name: Chess Club
    max_participants: 3
  - name: ""
    max_participants: 3
`)
	_, err := Parse(raw)
	require.Error(t, err)
	require.ErrorContains(t, err, "max_participants must be > 0")
	require.ErrorContains(t, err, "duplicate participant a@b.edu")
	require.ErrorContains(t, err, "duplicate name")
	require.ErrorContains(t, err, "name is required")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
activities:
  - name: Robotics
    description: Build robots
    schedule: Mondays
    max_participants: 8
`), 0o600))

	activities, err := Load(path)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, "Robotics", activities[0].Name)
	require.NotNil(t, activities[0].Participants)
	require.Empty(t, activities[0].Participants)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read seed file")
}
