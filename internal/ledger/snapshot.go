package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Snapshot is the full logical ledger state.
type Snapshot struct {
	Balances       map[int64]int64
	Matches        map[int64]Match
	CurrentMatchID int64
}

// EmptySnapshot is the state of a ledger that has never been written.
func EmptySnapshot() Snapshot {
	return Snapshot{Balances: map[int64]int64{}, Matches: map[int64]Match{}}
}

type betRecord struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type matchRecord struct {
	Names [2]string              `json:"names"`
	Odds  map[string]json.Number `json:"odds"`
	Bets  map[string]betRecord   `json:"bets"`
}

type matchesRecord struct {
	Matches        map[string]matchRecord `json:"matches"`
	CurrentMatchID int64                  `json:"current_match_id"`
}

// EncodeBalances renders the balances record: user id string -> amount.
func EncodeBalances(snap Snapshot) ([]byte, error) {
	rec := make(map[string]int64, len(snap.Balances))
	for id, amount := range snap.Balances {
		rec[strconv.FormatInt(id, 10)] = amount
	}
	return json.Marshal(rec)
}

// EncodeMatches renders the matches record with its current_match_id.
func EncodeMatches(snap Snapshot) ([]byte, error) {
	rec := matchesRecord{
		Matches:        make(map[string]matchRecord, len(snap.Matches)),
		CurrentMatchID: snap.CurrentMatchID,
	}
	for id, m := range snap.Matches {
		mr := matchRecord{
			Names: m.Names,
			Odds:  make(map[string]json.Number, len(m.Odds)),
			Bets:  make(map[string]betRecord, len(m.Bets)),
		}
		// Exact decimal text is still a plain JSON number.
		for name, odds := range m.Odds {
			mr.Odds[name] = json.Number(odds.String())
		}
		for userID, bet := range m.Bets {
			mr.Bets[strconv.FormatInt(userID, 10)] = betRecord{Name: bet.Name, Amount: bet.Amount}
		}
		rec.Matches[strconv.FormatInt(id, 10)] = mr
	}
	return json.Marshal(rec)
}

// DecodeSnapshot parses the two records. A nil record is treated as absent.
func DecodeSnapshot(balances, matches []byte) (Snapshot, error) {
	snap := EmptySnapshot()

	if len(balances) > 0 {
		var rec map[string]int64
		if err := json.Unmarshal(balances, &rec); err != nil {
			return Snapshot{}, fmt.Errorf("decode balances: %w", err)
		}
		for key, amount := range rec {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return Snapshot{}, fmt.Errorf("decode balances: user id %q: %w", key, err)
			}
			snap.Balances[id] = amount
		}
	}

	if len(matches) > 0 {
		var rec matchesRecord
		if err := json.Unmarshal(matches, &rec); err != nil {
			return Snapshot{}, fmt.Errorf("decode matches: %w", err)
		}
		snap.CurrentMatchID = rec.CurrentMatchID
		for key, mr := range rec.Matches {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return Snapshot{}, fmt.Errorf("decode matches: match id %q: %w", key, err)
			}
			m := Match{
				ID:    id,
				Names: mr.Names,
				Odds:  make(map[string]decimal.Decimal, len(mr.Odds)),
				Bets:  make(map[int64]Bet, len(mr.Bets)),
			}
			for name, raw := range mr.Odds {
				odds, err := decimal.NewFromString(raw.String())
				if err != nil {
					return Snapshot{}, fmt.Errorf("decode matches: odds for %q in match %d: %w", name, id, err)
				}
				m.Odds[name] = odds
			}
			for userKey, br := range mr.Bets {
				userID, err := strconv.ParseInt(userKey, 10, 64)
				if err != nil {
					return Snapshot{}, fmt.Errorf("decode matches: bettor id %q: %w", userKey, err)
				}
				m.Bets[userID] = Bet{Name: br.Name, Amount: br.Amount}
			}
			snap.Matches[id] = m
			if id > snap.CurrentMatchID {
				snap.CurrentMatchID = id
			}
		}
	}

	return snap, nil
}
