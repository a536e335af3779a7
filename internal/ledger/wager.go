package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Receipt describes an accepted bet.
type Receipt struct {
	MatchID int64
	UserID  int64
	Name    string
	Amount  int64
	Odds    decimal.Decimal
	Balance int64
	// Replaced is the bet this one overwrote, if any.
	Replaced *Bet
}

// PlaceBet debits amount from the user and records the bet on the match.
// Validation order: match, amount, balance (auto-initialised), participant.
// Nothing is mutated unless every check passes.
func (l *Ledger) PlaceBet(ctx context.Context, userID, matchID int64, name string, amount int64) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.matches[matchID]
	if !ok {
		return Receipt{}, ErrInvalidMatch
	}
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	created := l.ensureLocked(userID)
	before := l.balances[userID]

	prev, hadPrev := m.Bets[userID]
	available := before
	if hadPrev && l.opts.RefundReplacedStake {
		available += prev.Amount
	}
	if available < amount {
		return Receipt{}, l.abortInit(ctx, userID, created, ErrInsufficientFunds)
	}
	if !m.HasParticipant(name) {
		return Receipt{}, l.abortInit(ctx, userID, created, ErrInvalidParticipant)
	}

	if hadPrev && l.opts.RefundReplacedStake {
		l.creditLocked(userID, prev.Amount)
	}
	if err := l.debitLocked(userID, amount); err != nil {
		l.balances[userID] = before
		return Receipt{}, err
	}
	l.recordBetLocked(m, userID, name, amount)

	undo := func() {
		l.balances[userID] = before
		if created {
			delete(l.balances, userID)
		}
		if hadPrev {
			m.Bets[userID] = prev
		} else {
			delete(m.Bets, userID)
		}
	}
	if err := l.commit(ctx, undo); err != nil {
		return Receipt{}, err
	}

	r := Receipt{
		MatchID: matchID,
		UserID:  userID,
		Name:    name,
		Amount:  amount,
		Odds:    m.Odds[name],
		Balance: l.balances[userID],
	}
	if hadPrev {
		p := prev
		r.Replaced = &p
	}
	return r, nil
}

// abortInit keeps the auto-initialised balance from a rejected bet, the same
// as an explicit start would, and returns cause. If that creation cannot be
// persisted the balance is dropped again and the persistence error wins.
func (l *Ledger) abortInit(ctx context.Context, userID int64, created bool, cause error) error {
	if !created {
		return cause
	}
	if err := l.commit(ctx, func() { delete(l.balances, userID) }); err != nil {
		return err
	}
	return cause
}
