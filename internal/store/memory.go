package store

import (
	"context"
	"sync"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

// Memory keeps the encoded records in memory. Encoding on every save keeps it
// honest about what the durable backends would see.
type Memory struct {
	mu       sync.RWMutex
	balances []byte
	matches  []byte
	saves    int
	failWith error
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load decodes the last saved records.
func (m *Memory) Load(_ context.Context) (ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.DecodeSnapshot(m.balances, m.matches)
}

// Save encodes and keeps both records unless a failure has been injected.
func (m *Memory) Save(_ context.Context, snap ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	balances, err := ledger.EncodeBalances(snap)
	if err != nil {
		return err
	}
	matches, err := ledger.EncodeMatches(snap)
	if err != nil {
		return err
	}
	m.balances, m.matches = balances, matches
	m.saves++
	return nil
}

// FailWith makes every following Save return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Saves reports how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
