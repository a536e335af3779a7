package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

const redisPrefix = "wagerbook:v1:"

// Redis keeps the two ledger records under adjacent keys, written in one
// MULTI/EXEC block.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a Redis-backed ledger store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: redisPrefix}
}

func (r *Redis) key(name string) string { return r.prefix + name }

// Load reads both records. Missing keys are an empty ledger.
func (r *Redis) Load(ctx context.Context) (ledger.Snapshot, error) {
	vals, err := r.client.MGet(ctx, r.key(recordBalances), r.key(recordMatches)).Result()
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("read ledger records: %w", err)
	}
	raw := make([][]byte, len(vals))
	for i, v := range vals {
		switch val := v.(type) {
		case nil:
		case string:
			raw[i] = []byte(val)
		default:
			return ledger.Snapshot{}, errors.New("unexpected ledger record type")
		}
	}
	return ledger.DecodeSnapshot(raw[0], raw[1])
}

// Save writes both records atomically.
func (r *Redis) Save(ctx context.Context, snap ledger.Snapshot) error {
	balances, err := ledger.EncodeBalances(snap)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	matches, err := ledger.EncodeMatches(snap)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(recordBalances), balances, 0)
		pipe.Set(ctx, r.key(recordMatches), matches, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write ledger records: %w", err)
	}
	return nil
}
