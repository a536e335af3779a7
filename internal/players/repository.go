package players

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no player is registered under the id.
var ErrNotFound = errors.New("player not found")

// Repository persists players.
type Repository interface {
	Upsert(ctx context.Context, player Player) error
	FindByID(ctx context.Context, id int64) (Player, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed player repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the players table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS players (
        id           BIGINT PRIMARY KEY,
        display_name TEXT NOT NULL,
        created_at   TIMESTAMPTZ NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    )`)
	return err
}

// Upsert inserts a player or refreshes the display name.
func (r *PostgresRepository) Upsert(ctx context.Context, player Player) error {
	_, err := r.db.Exec(ctx, `INSERT INTO players (id, display_name, created_at, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = EXCLUDED.updated_at`,
		player.ID, player.DisplayName, player.CreatedAt.UTC(), player.UpdatedAt.UTC())
	return err
}

// FindByID fetches a player by chat identity.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (Player, error) {
	row := r.db.QueryRow(ctx, `SELECT id, display_name, created_at, updated_at FROM players WHERE id = $1`, id)
	var (
		player    Player
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&player.ID, &player.DisplayName, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, err
	}
	player.CreatedAt = createdAt.UTC()
	player.UpdatedAt = updatedAt.UTC()
	return player, nil
}
