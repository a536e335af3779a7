package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// OpenMatch allocates the next match id and stores a match between name1 and
// name2. Names must be non-empty and distinct.
func (l *Ledger) OpenMatch(ctx context.Context, name1, name2 string, odds1, odds2 decimal.Decimal) (Match, error) {
	name1, name2 = strings.TrimSpace(name1), strings.TrimSpace(name2)
	if name1 == "" || name2 == "" || name1 == name2 {
		return Match{}, ErrInvalidParticipant
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opts.SingleMatch {
		if _, open := l.matches[l.lastID]; open {
			return Match{}, ErrMatchInProgress
		}
	}

	l.lastID++
	m := &Match{
		ID:    l.lastID,
		Names: [2]string{name1, name2},
		Odds:  map[string]decimal.Decimal{name1: odds1, name2: odds2},
		Bets:  make(map[int64]Bet),
	}
	l.matches[m.ID] = m

	undo := func() {
		delete(l.matches, m.ID)
		l.lastID--
	}
	if err := l.commit(ctx, undo); err != nil {
		return Match{}, err
	}
	return m.clone(), nil
}

// Match returns a copy of an open match.
func (l *Ledger) Match(matchID int64) (Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.matches[matchID]
	if !ok {
		return Match{}, ErrNotFound
	}
	return m.clone(), nil
}

// CurrentMatchID is the most recently allocated match id, 0 before any match.
// The match may already be settled.
func (l *Ledger) CurrentMatchID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastID
}

// CurrentMatch returns the most recently allocated match if it is still open.
func (l *Ledger) CurrentMatch() (Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.matches[l.lastID]
	if !ok {
		return Match{}, ErrNoActiveMatch
	}
	return m.clone(), nil
}

// ActiveMatches lists open matches by ascending id.
func (l *Ledger) ActiveMatches() []Match {
	l.mu.RLock()
	out := make([]Match, 0, len(l.matches))
	for _, m := range l.matches {
		out = append(out, m.clone())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// recordBetLocked stores the bet, returning the bet it replaced.
func (l *Ledger) recordBetLocked(m *Match, userID int64, name string, amount int64) (Bet, bool) {
	prev, had := m.Bets[userID]
	m.Bets[userID] = Bet{Name: name, Amount: amount}
	return prev, had
}

func (l *Ledger) retireLocked(matchID int64) {
	delete(l.matches, matchID)
}
