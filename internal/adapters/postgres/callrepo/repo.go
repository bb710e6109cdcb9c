package callrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/callrepo"
)

// Repo is a Postgres implementation of callrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const callColumns = "id, creator_id, day, start_hour, location, duration_minutes, price, comment, created_at"

func (r *Repo) Create(ctx context.Context, c callrepo.Call) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calls (id, creator_id, day, start_hour, location, duration_minutes, price, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		string(c.ID),
		string(c.CreatorID),
		c.Day.Time(),
		c.StartHour,
		c.Location,
		c.DurationMinutes,
		c.Price,
		c.Comment,
		c.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return callrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CallID) (callrepo.Call, error) {
	if r.pool == nil {
		return callrepo.Call{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM calls WHERE id = $1
	`, string(id))
	return scanCall(row)
}

func (r *Repo) Delete(ctx context.Context, id domain.CallID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM calls WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return callrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListFrom(ctx context.Context, from domain.Day) ([]callrepo.Call, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE day >= $1
		ORDER BY day ASC, start_hour ASC, created_at ASC, id ASC
	`, from.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]callrepo.Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanCall(row interface {
	Scan(dest ...any) error
}) (callrepo.Call, error) {
	var (
		id              string
		creatorID       string
		day             time.Time
		startHour       int
		location        string
		durationMinutes int
		price           *string
		comment         *string
		createdAt       time.Time
	)
	if err := row.Scan(&id, &creatorID, &day, &startHour, &location, &durationMinutes, &price, &comment, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return callrepo.Call{}, callrepo.ErrNotFound
		}
		return callrepo.Call{}, err
	}
	return callrepo.Call{
		ID:              domain.CallID(id),
		CreatorID:       domain.PlayerID(creatorID),
		Day:             domain.DayOf(day),
		StartHour:       startHour,
		Location:        location,
		DurationMinutes: durationMinutes,
		Price:           price,
		Comment:         comment,
		CreatedAt:       createdAt.UTC(),
	}, nil
}
