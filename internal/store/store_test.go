package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/ledger/ledgertest"
	"github.com/roach88/tradeledger/internal/testutil"
)

func TestStore_Conformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, now ledger.WallClock) ledger.Backend {
		s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), WithClock(now), WithPageSize(2))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_ConformanceInMemory(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, now ledger.WallClock) ledger.Backend {
		s, err := Open(":memory:", WithClock(now))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"world_state", "history"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_history_key_seq'",
	).Scan(&name)
	require.NoError(t, err, "history index should exist after migration")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := ledger.WithSubmitter(context.Background(), "user001")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "doc001", []byte(`{"v":1}`)))
	require.NoError(t, s1.Put(ctx, "doc001", []byte(`{"v":2}`)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	value, ok, err := s2.Get(ctx, "doc001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(value))

	var seqs []int64
	for m, err := range s2.History(ctx, "doc001") {
		require.NoError(t, err)
		assert.Equal(t, "user001", m.Submitter)
		seqs = append(seqs, m.Seq)
	}
	assert.Equal(t, []int64{1, 2}, seqs)

	// Sequences continue after reopen.
	require.NoError(t, s2.Put(ctx, "doc002", []byte(`{}`)))
	for m, err := range s2.History(ctx, "doc002") {
		require.NoError(t, err)
		assert.Equal(t, int64(3), m.Seq)
	}
}

func TestStore_ReopenNeverStampsEarlier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	late := testutil.NewDeterministicClockAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	s1, err := Open(path, WithClock(late.Now))
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "k", []byte("a")))
	require.NoError(t, s1.Close())

	early := testutil.NewDeterministicClock()
	s2, err := Open(path, WithClock(early.Now))
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Put(ctx, "k", []byte("b")))

	var stamps []time.Time
	for m, err := range s2.History(ctx, "k") {
		require.NoError(t, err)
		stamps = append(stamps, m.Timestamp)
	}
	require.Len(t, stamps, 2)
	assert.False(t, stamps[1].Before(stamps[0]))
}

func TestStore_DeleteWritesTombstoneRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doc001", []byte("x")))
	require.NoError(t, s.Delete(ctx, "doc001"))
	require.NoError(t, s.Delete(ctx, "doc001"))

	assert.Equal(t, 0, countRows(t, s, "world_state"))
	assert.Equal(t, 2, countRows(t, s, "history"))
}

func TestStore_RangeAcrossPages(t *testing.T) {
	s := createTestStore(t) // page size 2
	ctx := context.Background()

	for _, k := range []string{"e", "a", "c", "b", "d"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, collectKeys(t, s, "", ""))
	assert.Equal(t, []string{"b", "c", "d"}, collectKeys(t, s, "b", "e"))
}

func TestStore_RangeBinaryCollation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"b", "B", "a", "A"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}

	assert.Equal(t, []string{"A", "B", "a", "b"}, collectKeys(t, s, "", ""))
}

func TestStore_PutDuringRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}

	var seen []string
	for kv, err := range s.Range(ctx, "", "") {
		require.NoError(t, err)
		seen = append(seen, kv.Key)
		require.NoError(t, s.Put(ctx, kv.Key, []byte("updated")))
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	value, ok, err := s.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "updated", string(value))
}

func TestStore_HistoryAcrossPages(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, "k", []byte{byte('0' + i)}))
	}

	var values []string
	for m, err := range s.History(ctx, "k") {
		require.NoError(t, err)
		values = append(values, string(m.Value))
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, values)
}

func TestStore_TxIDsAreReproducible(t *testing.T) {
	write := func() []string {
		s := createTestStore(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "k", []byte("a")))
		require.NoError(t, s.Delete(ctx, "k"))
		var ids []string
		for m, err := range s.History(ctx, "k") {
			require.NoError(t, err)
			ids = append(ids, m.TxID)
		}
		return ids
	}

	first, second := write(), write()
	assert.Equal(t, first, second)
	assert.Equal(t, ledger.TxID(1, "k", []byte("a"), false), first[0])
	assert.Equal(t, ledger.TxID(2, "k", nil, true), first[1])
}
