package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidMatch is returned when a match id is unknown or already settled.
	ErrInvalidMatch = errors.New("invalid match")

	// ErrInvalidParticipant indicates the name is not one of the match participants.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrInsufficientFunds occurs when a stake exceeds the user's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive stakes.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound is a registry lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps a failed durable write. The triggering mutation has
	// been rolled back when this is returned.
	ErrPersistence = errors.New("persistence failure")

	// ErrNoActiveMatch is returned in current-match mode when nothing is open.
	ErrNoActiveMatch = errors.New("no active match")

	// ErrPayoutOverflow is returned when a settlement credit would not fit in
	// an int64 balance. Nothing is credited.
	ErrPayoutOverflow = errors.New("payout overflow")

	// ErrMatchInProgress is returned in current-match mode when a match is
	// already open.
	ErrMatchInProgress = errors.New("match already in progress")
)

// DefaultStartingBalance is credited to a user on first interaction.
const DefaultStartingBalance int64 = 1000

// Bet is a single user's stake on a match participant.
type Bet struct {
	Name   string
	Amount int64
}

// Match is an open match. Settled matches are removed from the registry.
type Match struct {
	ID    int64
	Names [2]string
	Odds  map[string]decimal.Decimal
	Bets  map[int64]Bet
}

// HasParticipant reports whether name is one of the two participants.
func (m Match) HasParticipant(name string) bool {
	return m.Names[0] == name || m.Names[1] == name
}

func (m Match) clone() Match {
	out := Match{ID: m.ID, Names: m.Names}
	out.Odds = make(map[string]decimal.Decimal, len(m.Odds))
	for k, v := range m.Odds {
		out.Odds[k] = v
	}
	out.Bets = make(map[int64]Bet, len(m.Bets))
	for k, v := range m.Bets {
		out.Bets[k] = v
	}
	return out
}

// Store durably persists ledger state. Save receives the complete state and
// must either write all of it or return an error.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Options tune ledger behaviour.
type Options struct {
	StartingBalance int64
	// RefundReplacedStake returns the previous stake to the user when they
	// rebet on the same match. Off by default: a rebet costs a second debit.
	RefundReplacedStake bool
	// SingleMatch restricts the ledger to at most one open match at a time.
	SingleMatch bool
}

// Ledger owns balances, matches and the match id counter. All mutations are
// serialised on mu and flushed to the store before they are reported.
type Ledger struct {
	mu       sync.RWMutex
	store    Store
	opts     Options
	balances map[int64]int64
	matches  map[int64]*Match
	lastID   int64
}

// New builds a ledger from the store's persisted state.
func New(ctx context.Context, store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if opts.StartingBalance <= 0 {
		opts.StartingBalance = DefaultStartingBalance
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l := &Ledger{
		store:    store,
		opts:     opts,
		balances: make(map[int64]int64, len(snap.Balances)),
		matches:  make(map[int64]*Match, len(snap.Matches)),
		lastID:   snap.CurrentMatchID,
	}
	for id, amount := range snap.Balances {
		l.balances[id] = amount
	}
	for id, m := range snap.Matches {
		cp := m.clone()
		cp.ID = id
		l.matches[id] = &cp
	}
	return l, nil
}

// Options returns the options the ledger was built with.
func (l *Ledger) Options() Options {
	return l.opts
}

// Flush writes the current state to the store. Used on shutdown.
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persist(ctx)
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := Snapshot{
		Balances:       make(map[int64]int64, len(l.balances)),
		Matches:        make(map[int64]Match, len(l.matches)),
		CurrentMatchID: l.lastID,
	}
	for id, amount := range l.balances {
		snap.Balances[id] = amount
	}
	for id, m := range l.matches {
		snap.Matches[id] = m.clone()
	}
	return snap
}

// persist must be called with mu held for writing.
func (l *Ledger) persist(ctx context.Context) error {
	if err := l.store.Save(ctx, l.snapshotLocked()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// commit persists the state and runs undo if the write fails.
func (l *Ledger) commit(ctx context.Context, undo func()) error {
	if err := l.persist(ctx); err != nil {
		undo()
		return err
	}
	return nil
}
