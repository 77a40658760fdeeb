package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activities/internal/domain"
)

//go:embed schema.sql
var schema string

// Repository provides Postgres-backed persistence for the activity registry.
type Repository struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Repository)(nil)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the registry tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Seed inserts activities that are not yet stored. Existing activities and
// their rosters are left untouched so restarts keep sign-ups.
func (r *Repository) Seed(ctx context.Context, activities []domain.Activity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var offset int
	if err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM activities`).Scan(&offset); err != nil {
		return err
	}

	const insertActivity = `INSERT INTO activities (name, description, schedule, max_participants, position)
        VALUES ($1,$2,$3,$4,$5) ON CONFLICT (name) DO NOTHING`
	const insertParticipant = `INSERT INTO participants (activity_name, email) VALUES ($1,$2)`

	for i, a := range activities {
		tag, execErr := tx.Exec(ctx, insertActivity, a.Name, a.Description, a.Schedule, a.MaxParticipants, offset+i)
		if execErr != nil {
			err = execErr
			return err
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		for _, email := range a.Participants {
			if _, err = tx.Exec(ctx, insertParticipant, a.Name, email); err != nil {
				return err
			}
		}
	}

	err = tx.Commit(ctx)
	return err
}

// List implements domain.Store.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	const query = `SELECT a.name, a.description, a.schedule, a.max_participants,
            COALESCE(array_agg(p.email ORDER BY p.position) FILTER (WHERE p.email IS NOT NULL), '{}')
        FROM activities a
        LEFT JOIN participants p ON p.activity_name = a.name
        GROUP BY a.name, a.description, a.schedule, a.max_participants, a.position
        ORDER BY a.position`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants, &a.Participants); err != nil {
			return nil, err
		}
		if a.Participants == nil {
			a.Participants = []string{}
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Enroll implements domain.Store.
func (r *Repository) Enroll(ctx context.Context, activityName, email string) error {
	return r.mutateRoster(ctx, activityName, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO participants (activity_name, email) VALUES ($1,$2)
            ON CONFLICT (activity_name, email) DO NOTHING`, activityName, email)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyEnrolled
		}
		return nil
	})
}

// Unenroll implements domain.Store.
func (r *Repository) Unenroll(ctx context.Context, activityName, email string) error {
	return r.mutateRoster(ctx, activityName, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM participants WHERE activity_name=$1 AND email=$2`, activityName, email)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrParticipantNotFound
		}
		return nil
	})
}

// mutateRoster locks the activity row so roster checks and writes for the
// same activity are serialised.
func (r *Repository) mutateRoster(ctx context.Context, activityName string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT name FROM activities WHERE name=$1 FOR UPDATE`, activityName).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
