package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a deterministic
// clock and a small page size so iteration crosses page boundaries.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock().Now), WithPageSize(2))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// countRows returns the number of rows in table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func collectKeys(t *testing.T, b ledger.Backend, start, end string) []string {
	t.Helper()
	var out []string
	for kv, err := range b.Range(t.Context(), start, end) {
		if err != nil {
			t.Fatalf("Range() failed: %v", err)
		}
		out = append(out, kv.Key)
	}
	return out
}
