package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

// exerciseRoundTrip drives a ledger through every mutation kind, reloads it
// from the same store and compares the logical state.
func exerciseRoundTrip(t *testing.T, st ledger.Store) {
	t.Helper()
	ctx := context.Background()

	l, err := ledger.New(ctx, st, ledger.Options{})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if _, err := l.EnsureUser(ctx, 1); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	settled, err := l.OpenMatch(ctx, "Red", "Blue", decimal.RequireFromString("1.8"), decimal.RequireFromString("2.2"))
	if err != nil {
		t.Fatalf("open settled: %v", err)
	}
	open, err := l.OpenMatch(ctx, "Ann", "Bea", decimal.RequireFromString("2.75"), decimal.RequireFromString("1.33"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := l.PlaceBet(ctx, 1, settled.ID, "Red", 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := l.PlaceBet(ctx, 2, open.ID, "Bea", 250); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := l.PlaceBet(ctx, 1, open.ID, "Ann", 40); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if _, err := l.ReportWinner(ctx, settled.ID, "Red"); err != nil {
		t.Fatalf("report: %v", err)
	}

	want := l.Snapshot()

	reloaded, err := ledger.New(ctx, st, ledger.Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.Snapshot()

	if got.CurrentMatchID != 2 || got.CurrentMatchID != want.CurrentMatchID {
		t.Fatalf("counter mismatch: want %d got %d", want.CurrentMatchID, got.CurrentMatchID)
	}
	if !reflect.DeepEqual(got.Balances, want.Balances) {
		t.Fatalf("balances mismatch: want %+v got %+v", want.Balances, got.Balances)
	}
	if len(got.Matches) != 1 {
		t.Fatalf("expected one open match, got %d", len(got.Matches))
	}
	gm, wm := got.Matches[open.ID], want.Matches[open.ID]
	if gm.ID != wm.ID || gm.Names != wm.Names || !reflect.DeepEqual(gm.Bets, wm.Bets) {
		t.Fatalf("match mismatch: want %+v got %+v", wm, gm)
	}
	for name, odds := range wm.Odds {
		if !gm.Odds[name].Equal(odds) {
			t.Fatalf("odds for %s: want %s got %s", name, odds, gm.Odds[name])
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	st, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseRoundTrip(t, st)
}

func TestFileLoadsLegacyRecords(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, BalancesFile), []byte(`{"12345": 1200}`), 0o644); err != nil {
		t.Fatalf("write balances: %v", err)
	}
	matches := `{"matches": {"1": {"names": ["X", "Y"], "odds": {"X": 1.5, "Y": 2.5}, "bets": {"12345": {"name": "Y", "amount": 10}}}}, "current_match_id": 1}`
	if err := os.WriteFile(filepath.Join(dir, MatchesFile), []byte(matches), 0o644); err != nil {
		t.Fatalf("write matches: %v", err)
	}

	st, err := NewFile(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Balances[12345] != 1200 || snap.CurrentMatchID != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Matches[1].Bets[12345].Amount != 10 {
		t.Fatalf("unexpected bets: %+v", snap.Matches[1].Bets)
	}
}

func TestFileSaveFailsOnMissingDir(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFile(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := st.Save(context.Background(), ledger.EmptySnapshot()); err == nil {
		t.Fatalf("expected save into a removed directory to fail")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseRoundTrip(t, NewRedis(client))

	if !mr.Exists(redisPrefix+recordBalances) || !mr.Exists(redisPrefix+recordMatches) {
		t.Fatalf("expected both records in redis, keys=%v", mr.Keys())
	}
}

func TestMemoryRoundTripAndFailure(t *testing.T) {
	st := NewMemory()
	exerciseRoundTrip(t, st)

	saves := st.Saves()
	st.FailWith(errors.New("boom"))

	ctx := context.Background()
	l, err := ledger.New(ctx, st, ledger.Options{})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if _, err := l.EnsureUser(ctx, 999); !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if st.Saves() != saves {
		t.Fatalf("failed save counted")
	}
}

func TestSettlementSurvivesRestartWithExactOdds(t *testing.T) {
	ctx := context.Background()
	settle := func(restart bool) int64 {
		st := NewMemory()
		l, err := ledger.New(ctx, st, ledger.Options{})
		if err != nil {
			t.Fatalf("new ledger: %v", err)
		}
		m, err := l.OpenMatch(ctx, "A", "B", decimal.RequireFromString("1.999999999999999999"), decimal.RequireFromString("1.5"))
		if err != nil {
			t.Fatalf("open match: %v", err)
		}
		if _, err := l.PlaceBet(ctx, 1, m.ID, "A", 100); err != nil {
			t.Fatalf("bet: %v", err)
		}
		if restart {
			if l, err = ledger.New(ctx, st, ledger.Options{}); err != nil {
				t.Fatalf("reload: %v", err)
			}
		}
		if _, err := l.ReportWinner(ctx, m.ID, "A"); err != nil {
			t.Fatalf("report winner: %v", err)
		}
		bal, _ := l.Balance(1)
		return bal
	}

	direct, reloaded := settle(false), settle(true)
	if direct != 1099 || reloaded != direct {
		t.Fatalf("balance without restart=%d with restart=%d, want 1099", direct, reloaded)
	}
}
