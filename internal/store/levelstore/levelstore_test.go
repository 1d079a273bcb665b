package levelstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/ledger/ledgertest"
	"github.com/roach88/tradeledger/internal/store/prefixkv"
)

func TestLevel_Conformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, now ledger.WallClock) ledger.Backend {
		s, err := Open(t.TempDir(), prefixkv.WithClock(now), prefixkv.WithPageSize(2))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestLevel_ConformanceInMemory(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, now ledger.WallClock) ledger.Backend {
		s, err := Open("", prefixkv.WithClock(now))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestLevel_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "doc001", []byte("a")))
	require.NoError(t, s1.Delete(ctx, "doc001"))
	require.NoError(t, s1.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	_, ok, err := s2.Get(ctx, "doc001")
	require.NoError(t, err)
	assert.False(t, ok)

	var deletes []bool
	for m, err := range s2.History(ctx, "doc001") {
		require.NoError(t, err)
		deletes = append(deletes, m.IsDelete)
	}
	assert.Equal(t, []bool{false, true}, deletes)
}
