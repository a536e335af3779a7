package ledger

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
)

// Settlement summarises a reported winner. Individual payouts are not
// included.
type Settlement struct {
	MatchID     int64
	Winner      string
	WinningBets int
	TotalPaid   int64
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Payout is floor(stake * odds). Negative products truncate toward zero.
// Products beyond int64 return ErrPayoutOverflow.
func Payout(stake int64, odds decimal.Decimal) (int64, error) {
	product := decimal.NewFromInt(stake).Mul(odds).Truncate(0)
	if product.Cmp(maxAmount) > 0 || product.Cmp(maxAmount.Neg()) < 0 {
		return 0, ErrPayoutOverflow
	}
	return product.IntPart(), nil
}

type credit struct {
	userID  int64
	amount  int64
	created bool
}

// ReportWinner pays every bet on winner at the match odds, retires the match
// and persists. Losing stakes were already debited at placement. Every payout
// is computed and range-checked before any balance changes.
func (l *Ledger) ReportWinner(ctx context.Context, matchID int64, winner string) (Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.matches[matchID]
	if !ok {
		return Settlement{}, ErrInvalidMatch
	}
	if !m.HasParticipant(winner) {
		return Settlement{}, ErrInvalidParticipant
	}

	odds := m.Odds[winner]
	out := Settlement{MatchID: matchID, Winner: winner}
	var credits []credit
	for userID, bet := range m.Bets {
		if bet.Name != winner {
			continue
		}
		payout, err := Payout(bet.Amount, odds)
		if err != nil {
			return Settlement{}, err
		}
		balance, exists := l.balances[userID]
		if payout > math.MaxInt64-balance || payout > math.MaxInt64-out.TotalPaid {
			return Settlement{}, ErrPayoutOverflow
		}
		credits = append(credits, credit{userID: userID, amount: payout, created: !exists})
		out.WinningBets++
		out.TotalPaid += payout
	}

	for _, c := range credits {
		l.creditLocked(c.userID, c.amount)
	}
	l.retireLocked(matchID)

	undo := func() {
		for _, c := range credits {
			if c.created {
				delete(l.balances, c.userID)
				continue
			}
			l.balances[c.userID] -= c.amount
		}
		l.matches[matchID] = m
	}
	if err := l.commit(ctx, undo); err != nil {
		return Settlement{}, err
	}
	return out, nil
}
