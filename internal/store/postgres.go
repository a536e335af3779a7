package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

const (
	recordBalances = "balances"
	recordMatches  = "matches"
)

// Postgres stores the two ledger records as jsonb rows, rewritten together in
// one transaction.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed ledger store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the records table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS ledger_records (
        name       TEXT PRIMARY KEY,
        body       JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	return err
}

// Load reads both records. Absent rows are an empty ledger.
func (p *Postgres) Load(ctx context.Context) (ledger.Snapshot, error) {
	balances, err := p.record(ctx, recordBalances)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	matches, err := p.record(ctx, recordMatches)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.DecodeSnapshot(balances, matches)
}

// Save upserts both records in a single transaction.
func (p *Postgres) Save(ctx context.Context, snap ledger.Snapshot) error {
	balances, err := ledger.EncodeBalances(snap)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	matches, err := ledger.EncodeMatches(snap)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	const upsert = `INSERT INTO ledger_records (name, body, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, upsert, recordBalances, balances); err != nil {
		return fmt.Errorf("write balances: %w", err)
	}
	if _, err := tx.Exec(ctx, upsert, recordMatches, matches); err != nil {
		return fmt.Errorf("write matches: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) record(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := p.db.QueryRow(ctx, `SELECT body FROM ledger_records WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}
