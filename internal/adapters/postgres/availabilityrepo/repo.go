package availabilityrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/availabilityrepo"
)

// Repo is a Postgres implementation of availabilityrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const slotColumns = "player_id, day, hour, source_call_id, created_at"

func (r *Repo) Upsert(ctx context.Context, s availabilityrepo.Slot) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var source *string
	if s.SourceCallID != nil {
		v := string(*s.SourceCallID)
		source = &v
	}
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO availability_slots (player_id, day, hour, source_call_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, day, hour) DO NOTHING
	`, string(s.PlayerID), s.Day.Time(), s.Hour, source, s.CreatedAt.UTC())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) Delete(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE player_id = $1 AND day = $2 AND hour = $3
	`, string(playerID), day.Time(), hour)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) DeletePlayerSourced(ctx context.Context, playerID domain.PlayerID, callID domain.CallID) ([]availabilityrepo.Slot, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		DELETE FROM availability_slots
		WHERE player_id = $1 AND source_call_id = $2
		RETURNING `+slotColumns+`
	`, string(playerID), string(callID))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *Repo) DeleteSourced(ctx context.Context, callID domain.CallID) ([]availabilityrepo.Slot, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		DELETE FROM availability_slots
		WHERE source_call_id = $1
		RETURNING `+slotColumns+`
	`, string(callID))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *Repo) Exists(ctx context.Context, playerID domain.PlayerID, day domain.Day, hour int) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE player_id = $1 AND day = $2 AND hour = $3
		)
	`, string(playerID), day.Time(), hour).Scan(&exists)
	return exists, err
}

func (r *Repo) Count(ctx context.Context, day domain.Day, hour int) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM availability_slots
		WHERE day = $1 AND hour = $2
	`, day.Time(), hour).Scan(&n)
	return n, err
}

func (r *Repo) ListRange(ctx context.Context, from, to domain.Day) ([]availabilityrepo.Slot, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC, hour ASC, player_id ASC
	`, from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *Repo) ListDay(ctx context.Context, day domain.Day) ([]availabilityrepo.Slot, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE day = $1
		ORDER BY hour ASC, player_id ASC
	`, day.Time())
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]availabilityrepo.Slot, error) {
	defer rows.Close()

	out := make([]availabilityrepo.Slot, 0)
	for rows.Next() {
		var (
			playerID  string
			day       time.Time
			hour      int
			source    *string
			createdAt time.Time
		)
		if err := rows.Scan(&playerID, &day, &hour, &source, &createdAt); err != nil {
			return nil, err
		}
		s := availabilityrepo.Slot{
			PlayerID:  domain.PlayerID(playerID),
			Day:       domain.DayOf(day),
			Hour:      hour,
			CreatedAt: createdAt.UTC(),
		}
		if source != nil {
			id := domain.CallID(*source)
			s.SourceCallID = &id
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
