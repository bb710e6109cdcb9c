package responserepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

// Repo is a Postgres implementation of responserepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Get(ctx context.Context, callID domain.CallID, playerID domain.PlayerID) (responserepo.Response, error) {
	if r.pool == nil {
		return responserepo.Response{}, errors.New("nil postgres pool")
	}
	var (
		status    string
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT status, updated_at FROM call_responses
		WHERE call_id = $1 AND player_id = $2
	`, string(callID), string(playerID)).Scan(&status, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return responserepo.Response{}, responserepo.ErrNotFound
		}
		return responserepo.Response{}, err
	}
	return responserepo.Response{
		CallID:    callID,
		PlayerID:  playerID,
		Status:    responserepo.Status(status),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

func (r *Repo) Upsert(ctx context.Context, resp responserepo.Response) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_responses (call_id, player_id, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (call_id, player_id) DO UPDATE SET status = $3, updated_at = $4
	`, string(resp.CallID), string(resp.PlayerID), string(resp.Status), resp.UpdatedAt.UTC())
	return err
}

func (r *Repo) ListByCall(ctx context.Context, callID domain.CallID) ([]responserepo.Response, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT player_id, status, updated_at FROM call_responses
		WHERE call_id = $1
		ORDER BY player_id ASC
	`, string(callID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]responserepo.Response, 0)
	for rows.Next() {
		var (
			playerID  string
			status    string
			updatedAt time.Time
		)
		if err := rows.Scan(&playerID, &status, &updatedAt); err != nil {
			return nil, err
		}
		out = append(out, responserepo.Response{
			CallID:    callID,
			PlayerID:  domain.PlayerID(playerID),
			Status:    responserepo.Status(status),
			UpdatedAt: updatedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) DeleteByCall(ctx context.Context, callID domain.CallID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM call_responses WHERE call_id = $1`, string(callID))
	return err
}
