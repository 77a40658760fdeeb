//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"example.com/activities/internal/events"
)

func TestPersistenceHandlerIgnoresRedelivery(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("activities"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	handler := NewPersistenceHandler(pool)
	require.NoError(t, handler.EnsureSchema(ctx))

	event := events.RosterChanged{
		EventID:    "0b9f2c4e-4d38-4c8c-9a53-7d8f0a2b1c11",
		Type:       events.TypeParticipantAdded,
		Activity:   "Chess Club",
		Email:      "x@y.edu",
		OccurredAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	msg := Message{Topic: "roster_events", Partition: 0, Offset: 7, Event: event, Raw: raw}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var count int
	var activity string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(activity_name) FROM roster_event_log WHERE event_id = $1`, event.EventID,
	).Scan(&count, &activity))
	require.Equal(t, 1, count)
	require.Equal(t, "Chess Club", activity)
}
