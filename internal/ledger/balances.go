package ledger

import (
	"context"
	"sort"
)

// Standing is one row of the ranked balance view.
type Standing struct {
	UserID int64
	Amount int64
}

// EnsureUser returns the user's balance, creating it with the starting amount
// on first interaction. The creation is persisted before returning.
func (l *Ledger) EnsureUser(ctx context.Context, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount, ok := l.balances[userID]; ok {
		return amount, nil
	}
	l.balances[userID] = l.opts.StartingBalance
	if err := l.commit(ctx, func() { delete(l.balances, userID) }); err != nil {
		return 0, err
	}
	return l.opts.StartingBalance, nil
}

// Balance looks up a balance without initialising it.
func (l *Ledger) Balance(userID int64) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	amount, ok := l.balances[userID]
	return amount, ok
}

// Ranked returns balances in descending order, ties by ascending user id.
// A non-positive limit returns every balance.
func (l *Ledger) Ranked(limit int) []Standing {
	l.mu.RLock()
	out := make([]Standing, 0, len(l.balances))
	for id, amount := range l.balances {
		out = append(out, Standing{UserID: id, Amount: amount})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ensureLocked initialises a balance in memory and reports whether it did.
func (l *Ledger) ensureLocked(userID int64) bool {
	if _, ok := l.balances[userID]; ok {
		return false
	}
	l.balances[userID] = l.opts.StartingBalance
	return true
}

func (l *Ledger) debitLocked(userID, amount int64) error {
	if amount > l.balances[userID] {
		return ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	return nil
}

func (l *Ledger) creditLocked(userID, amount int64) {
	l.balances[userID] += amount
}
