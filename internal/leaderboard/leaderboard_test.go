package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/wagerbook/wagerbook/internal/ledger"
	"github.com/wagerbook/wagerbook/internal/logging"
)

type staticRanker []ledger.Standing

func (r staticRanker) Ranked(limit int) []ledger.Standing {
	if limit > 0 && len(r) > limit {
		return r[:limit]
	}
	return r
}

type mapResolver map[int64]string

func (m mapResolver) DisplayName(_ context.Context, id int64) (string, error) {
	name, ok := m[id]
	if !ok {
		return "", errors.New("chat lookup failed")
	}
	return name, nil
}

func TestTopResolvesNamesWithFallback(t *testing.T) {
	ranker := staticRanker{{UserID: 2, Amount: 200}, {UserID: 3, Amount: 75}, {UserID: 1, Amount: 50}}
	svc := NewService(ranker, mapResolver{2: "Bea", 1: "Al"}, logging.Discard())

	got, err := svc.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []Entry{
		{Rank: 1, UserID: 2, DisplayName: "Bea", Amount: 200},
		{Rank: 2, UserID: 3, DisplayName: FallbackName, Amount: 75},
		{Rank: 3, UserID: 1, DisplayName: "Al", Amount: 50},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTopDefaultsSize(t *testing.T) {
	var ranker staticRanker
	for i := 0; i < 15; i++ {
		ranker = append(ranker, ledger.Standing{UserID: int64(i), Amount: int64(100 - i)})
	}
	svc := NewService(ranker, nil, nil)
	got, err := svc.Top(context.Background(), 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(got) != DefaultSize {
		t.Fatalf("expected %d rows, got %d", DefaultSize, len(got))
	}
	if got[0].DisplayName != FallbackName {
		t.Fatalf("expected fallback name without resolver, got %q", got[0].DisplayName)
	}
}

func TestTopOverLedger(t *testing.T) {
	ctx := context.Background()
	l, err := ledger.New(ctx, newNopStore(), ledger.Options{})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ledger.SeedBalance(l, 1, 50)
	ledger.SeedBalance(l, 2, 200)
	ledger.SeedBalance(l, 3, 75)

	got, err := NewService(l, nil, nil).Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	amounts := []int64{got[0].Amount, got[1].Amount, got[2].Amount}
	if amounts[0] != 200 || amounts[1] != 75 || amounts[2] != 50 {
		t.Fatalf("unexpected order: %v", amounts)
	}
}

type nopStore struct{}

func newNopStore() nopStore { return nopStore{} }

func (nopStore) Load(context.Context) (ledger.Snapshot, error) { return ledger.EmptySnapshot(), nil }
func (nopStore) Save(context.Context, ledger.Snapshot) error   { return nil }

func TestTopStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(staticRanker{{UserID: 1, Amount: 10}}, nil, nil)
	if _, err := svc.Top(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
