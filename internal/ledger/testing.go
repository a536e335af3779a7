package ledger

// SeedBalance is a test helper that sets a balance in memory without
// persisting it.
func SeedBalance(l *Ledger, userID, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
}
