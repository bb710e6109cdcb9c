package playerrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/fivesquad/pickup-planner-api/internal/adapters/postgres"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/playerrepo"
)

// Repo is a Postgres implementation of playerrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const playerColumns = "id, provider, provider_account, name, custom_name, avatar_url, is_banned, created_at, updated_at"

func (r *Repo) Create(ctx context.Context, p playerrepo.Player) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO players (id, provider, provider_account, name, custom_name, avatar_url, is_banned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		string(p.ID),
		string(p.Provider),
		string(p.ProviderAccount),
		p.Name,
		p.CustomName,
		p.AvatarURL,
		p.IsBanned,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "players_provider_account_unique":
				return playerrepo.ErrProviderAccountBound
			case "players_pkey":
				return playerrepo.ErrAlreadyExists
			default:
				return err
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p playerrepo.Player) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	// The provider binding is immutable; updates only touch profile fields.
	ct, err := r.pool.Exec(ctx, `
		UPDATE players
		SET name = $2,
		    custom_name = $3,
		    avatar_url = $4,
		    is_banned = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		string(p.ID),
		p.Name,
		p.CustomName,
		p.AvatarURL,
		p.IsBanned,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return playerrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PlayerID) (playerrepo.Player, error) {
	if r.pool == nil {
		return playerrepo.Player{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players WHERE id = $1
	`, string(id))
	return scanPlayer(row)
}

func (r *Repo) GetByProviderAccount(ctx context.Context, provider domain.Provider, account domain.ProviderAccountID) (playerrepo.Player, error) {
	if r.pool == nil {
		return playerrepo.Player{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE provider = $1 AND provider_account = $2
	`, string(provider), string(account))
	return scanPlayer(row)
}

func (r *Repo) List(ctx context.Context) ([]playerrepo.Player, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		ORDER BY lower(coalesce(nullif(custom_name, ''), nullif(name, ''), id)) ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]playerrepo.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanPlayer(row interface {
	Scan(dest ...any) error
}) (playerrepo.Player, error) {
	var (
		id         string
		provider   string
		account    string
		name       string
		customName *string
		avatarURL  *string
		isBanned   bool
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &provider, &account, &name, &customName, &avatarURL, &isBanned, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return playerrepo.Player{}, playerrepo.ErrNotFound
		}
		return playerrepo.Player{}, err
	}
	return playerrepo.Player{
		ID:              domain.PlayerID(id),
		Provider:        domain.Provider(provider),
		ProviderAccount: domain.ProviderAccountID(account),
		Name:            name,
		CustomName:      customName,
		AvatarURL:       avatarURL,
		IsBanned:        isBanned,
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       updatedAt.UTC(),
	}, nil
}
