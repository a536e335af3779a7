package ledger

import (
	"context"
	"testing"

	"pgregory.net/rapid"
)

func totalHoldings(l *Ledger, matchID int64) int64 {
	snap := l.Snapshot()
	var total int64
	for _, amount := range snap.Balances {
		total += amount
	}
	if m, ok := snap.Matches[matchID]; ok {
		for _, bet := range m.Bets {
			total += bet.Amount
		}
	}
	return total
}

// Betting alone never creates or destroys currency once stakes on the open
// match are counted. Rebets refund here so every stake stays visible.
func TestProperty_BettingConservesCurrency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l, err := New(ctx, &fakeStore{}, Options{RefundReplacedStake: true})
		if err != nil {
			t.Fatalf("new ledger: %v", err)
		}
		m, err := l.OpenMatch(ctx, "A", "B", odds("2.0"), odds("1.5"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}

		users := rapid.IntRange(1, 5).Draw(t, "users")
		for u := 1; u <= users; u++ {
			if _, err := l.EnsureUser(ctx, int64(u)); err != nil {
				t.Fatalf("ensure user: %v", err)
			}
		}
		before := totalHoldings(l, m.ID)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			userID := int64(rapid.IntRange(1, users).Draw(t, "user"))
			name := rapid.SampledFrom([]string{"A", "B", "C"}).Draw(t, "name")
			amount := rapid.Int64Range(-10, 1500).Draw(t, "amount")
			_, _ = l.PlaceBet(ctx, userID, m.ID, name, amount)

			if got := totalHoldings(l, m.ID); got != before {
				t.Fatalf("holdings changed from %d to %d after step %d", before, got, i)
			}
		}

		for _, s := range l.Ranked(0) {
			if s.Amount < 0 {
				t.Fatalf("user %d went negative: %d", s.UserID, s.Amount)
			}
		}
	})
}

// Without refunds every accepted bet is one debit, and only the latest bet
// per user is settled.
func TestProperty_SettlementMatchesLatestBets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l, err := New(ctx, &fakeStore{}, Options{})
		if err != nil {
			t.Fatalf("new ledger: %v", err)
		}
		m, err := l.OpenMatch(ctx, "A", "B", odds("2.5"), odds("1.3"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}

		debited := map[int64]int64{}
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			userID := int64(rapid.IntRange(1, 4).Draw(t, "user"))
			name := rapid.SampledFrom([]string{"A", "B"}).Draw(t, "name")
			amount := rapid.Int64Range(1, 400).Draw(t, "amount")
			if _, err := l.PlaceBet(ctx, userID, m.ID, name, amount); err == nil {
				debited[userID] += amount
			}
		}

		latest, err := l.Match(m.ID)
		if err != nil {
			t.Fatalf("match: %v", err)
		}
		winner := rapid.SampledFrom([]string{"A", "B"}).Draw(t, "winner")
		if _, err := l.ReportWinner(ctx, m.ID, winner); err != nil {
			t.Fatalf("report: %v", err)
		}

		for userID, spent := range debited {
			want := DefaultStartingBalance - spent
			if bet := latest.Bets[userID]; bet.Name == winner {
				p, err := Payout(bet.Amount, latest.Odds[winner])
				if err != nil {
					t.Fatalf("payout: %v", err)
				}
				want += p
			}
			if got, _ := l.Balance(userID); got != want {
				t.Fatalf("user %d: expected %d, got %d", userID, want, got)
			}
		}
	})
}
