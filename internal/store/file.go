package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wagerbook/wagerbook/internal/ledger"
)

const (
	// BalancesFile holds the balances record.
	BalancesFile = "balances.json"
	// MatchesFile holds the matches record and the match id counter.
	MatchesFile = "matches.json"
)

// File keeps the two ledger records as JSON files in a directory.
type File struct {
	dir string
}

// NewFile builds a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Load reads both records. Missing files are an empty ledger.
func (f *File) Load(_ context.Context) (ledger.Snapshot, error) {
	balances, err := readOptional(filepath.Join(f.dir, BalancesFile))
	if err != nil {
		return ledger.Snapshot{}, err
	}
	matches, err := readOptional(filepath.Join(f.dir, MatchesFile))
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.DecodeSnapshot(balances, matches)
}

// Save writes both records to temp files and only renames them into place once
// both writes succeeded.
func (f *File) Save(_ context.Context, snap ledger.Snapshot) error {
	balances, err := ledger.EncodeBalances(snap)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	matches, err := ledger.EncodeMatches(snap)
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}

	balTmp, err := writeTemp(f.dir, BalancesFile, balances)
	if err != nil {
		return err
	}
	matchTmp, err := writeTemp(f.dir, MatchesFile, matches)
	if err != nil {
		os.Remove(balTmp) // nolint:errcheck
		return err
	}

	if err := os.Rename(balTmp, filepath.Join(f.dir, BalancesFile)); err != nil {
		os.Remove(balTmp)   // nolint:errcheck
		os.Remove(matchTmp) // nolint:errcheck
		return fmt.Errorf("replace %s: %w", BalancesFile, err)
	}
	if err := os.Rename(matchTmp, filepath.Join(f.dir, MatchesFile)); err != nil {
		os.Remove(matchTmp) // nolint:errcheck
		return fmt.Errorf("replace %s: %w", MatchesFile, err)
	}
	return nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()     // nolint:errcheck
		os.Remove(path) // nolint:errcheck
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()     // nolint:errcheck
		os.Remove(path) // nolint:errcheck
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path) // nolint:errcheck
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}
