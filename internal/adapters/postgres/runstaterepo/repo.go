package runstaterepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/runstaterepo"
)

// Repo is a Postgres implementation of runstaterepo.Repository. Both state
// flips are single conditional statements so concurrent writers cannot race
// past each other: the row reports a change to exactly one of them.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Get(ctx context.Context, day domain.Day, startHour int) (runstaterepo.State, error) {
	if r.pool == nil {
		return runstaterepo.State{}, errors.New("nil postgres pool")
	}
	var (
		notified  bool
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT notified, updated_at FROM run_notifications
		WHERE day = $1 AND start_hour = $2
	`, day.Time(), startHour).Scan(&notified, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return runstaterepo.State{}, runstaterepo.ErrNotFound
		}
		return runstaterepo.State{}, err
	}
	return runstaterepo.State{Day: day, StartHour: startHour, Notified: notified, UpdatedAt: updatedAt.UTC()}, nil
}

func (r *Repo) MarkNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO run_notifications (day, start_hour, notified, updated_at)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (day, start_hour) DO UPDATE SET notified = true, updated_at = $3
		WHERE run_notifications.notified = false
	`, day.Time(), startHour, at.UTC())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ClearNotified(ctx context.Context, day domain.Day, startHour int, at time.Time) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE run_notifications
		SET notified = false, updated_at = $3
		WHERE day = $1 AND start_hour = $2 AND notified = true
	`, day.Time(), startHour, at.UTC())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
