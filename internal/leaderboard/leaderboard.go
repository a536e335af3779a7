package leaderboard

import (
	"context"
	"log/slog"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

const (
	// DefaultSize is the number of rows shown by the /leaderboard command.
	DefaultSize = 10
	// FallbackName is shown when a display name cannot be resolved.
	FallbackName = "User"
)

// Ranker supplies balances in ranked order.
type Ranker interface {
	Ranked(limit int) []ledger.Standing
}

// NameResolver maps a user identity to a display name. It may fail.
type NameResolver interface {
	DisplayName(ctx context.Context, userID int64) (string, error)
}

// Entry is one leaderboard row.
type Entry struct {
	Rank        int
	UserID      int64
	DisplayName string
	Amount      int64
}

// Service builds the read-only ranked view.
type Service struct {
	ranker   Ranker
	resolver NameResolver
	logger   *slog.Logger
}

// NewService wires a leaderboard over the ranker. resolver may be nil, in
// which case every row gets the fallback name.
func NewService(ranker Ranker, resolver NameResolver, logger *slog.Logger) *Service {
	return &Service{ranker: ranker, resolver: resolver, logger: logger}
}

// Top returns the n richest users with resolved names. n <= 0 uses DefaultSize.
// Name lookups never fail the call; only a cancelled context does.
func (s *Service) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultSize
	}
	standings := s.ranker.Ranked(n)
	out := make([]Entry, 0, len(standings))
	for i, st := range standings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Rank:        i + 1,
			UserID:      st.UserID,
			DisplayName: s.resolve(ctx, st.UserID),
			Amount:      st.Amount,
		})
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, userID int64) string {
	if s.resolver == nil {
		return FallbackName
	}
	name, err := s.resolver.DisplayName(ctx, userID)
	if err != nil || name == "" {
		if err != nil && s.logger != nil {
			s.logger.Warn("leaderboard name lookup failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return FallbackName
	}
	return name
}
