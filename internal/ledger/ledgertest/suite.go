// Package ledgertest holds the conformance suite every ledger.Backend must pass.
package ledgertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/testutil"
)

// Opener opens a fresh, empty backend driven by the given wall clock. The
// opener registers its own cleanup.
type Opener func(t *testing.T, now ledger.WallClock) ledger.Backend

// Run executes the conformance suite against backends produced by open.
func Run(t *testing.T, open Opener) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, open Opener)
	}{
		{"GetAbsent", testGetAbsent},
		{"PutGet", testPutGet},
		{"PutOverwrite", testPutOverwrite},
		{"DeleteTombstones", testDeleteTombstones},
		{"DeleteAbsentIsNoop", testDeleteAbsentIsNoop},
		{"RecreateAfterDelete", testRecreateAfterDelete},
		{"RangeOrder", testRangeOrder},
		{"RangeBounds", testRangeBounds},
		{"RangeEarlyBreakAndRestart", testRangeEarlyBreakAndRestart},
		{"RangeNestedCalls", testRangeNestedCalls},
		{"HistoryOrder", testHistoryOrder},
		{"HistoryUnknownKey", testHistoryUnknownKey},
		{"HistoryPrefixIsolation", testHistoryPrefixIsolation},
		{"TimestampsNonDecreasing", testTimestampsNonDecreasing},
		{"InvalidKey", testInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open)
		})
	}
}

func newBackend(t *testing.T, open Opener) (ledger.Backend, *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	return open(t, clock.Now), clock
}

func collectRange(t *testing.T, b ledger.Backend, start, end string) []ledger.KV {
	t.Helper()
	var out []ledger.KV
	for kv, err := range b.Range(context.Background(), start, end) {
		require.NoError(t, err)
		out = append(out, kv)
	}
	return out
}

func collectHistory(t *testing.T, b ledger.Backend, key string) []ledger.Modification {
	t.Helper()
	var out []ledger.Modification
	for m, err := range b.History(context.Background(), key) {
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func keys(kvs []ledger.KV) []string {
	out := make([]string, len(kvs))
	for i, kv := range kvs {
		out[i] = kv.Key
	}
	return out
}

func testGetAbsent(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	v, ok, err := b.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func testPutGet(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := ledger.WithSubmitter(context.Background(), "Org1MSP")

	require.NoError(t, b.Put(ctx, "doc001", []byte(`{"ID":"doc001"}`)))

	v, ok, err := b.Get(ctx, "doc001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"ID":"doc001"}`, string(v))
}

func testPutOverwrite(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	require.NoError(t, b.Put(ctx, "k", []byte("v2")))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(v))
	assert.Len(t, collectHistory(t, b, "k"), 2)
}

func testDeleteTombstones(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := ledger.WithSubmitter(context.Background(), "Org1MSP")

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	require.NoError(t, b.Delete(ctx, "k"))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, collectRange(t, b, "", ""))

	hist := collectHistory(t, b, "k")
	require.Len(t, hist, 2)
	assert.False(t, hist[0].IsDelete)
	assert.Equal(t, "v1", string(hist[0].Value))
	assert.True(t, hist[1].IsDelete)
	assert.Empty(t, hist[1].Value)
	assert.Equal(t, "Org1MSP", hist[1].Submitter)
}

func testDeleteAbsentIsNoop(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	require.NoError(t, b.Delete(ctx, "never"))
	assert.Empty(t, collectHistory(t, b, "never"))

	require.NoError(t, b.Put(ctx, "k", []byte("v")))
	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Delete(ctx, "k"))
	assert.Len(t, collectHistory(t, b, "k"), 2, "second delete of a tombstoned key records nothing")
}

func testRecreateAfterDelete(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	require.NoError(t, b.Delete(ctx, "k"))
	require.NoError(t, b.Put(ctx, "k", []byte("v2")))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(v))

	hist := collectHistory(t, b, "k")
	require.Len(t, hist, 3)
	assert.Equal(t, []bool{false, true, false}, []bool{hist[0].IsDelete, hist[1].IsDelete, hist[2].IsDelete})
}

func testRangeOrder(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	for _, k := range []string{"proc001", "doc002", "Zeta", "doc001", "doc010"} {
		require.NoError(t, b.Put(ctx, k, []byte(k)))
	}

	got := collectRange(t, b, "", "")
	assert.Equal(t, []string{"Zeta", "doc001", "doc002", "doc010", "proc001"}, keys(got))
	for _, kv := range got {
		assert.Equal(t, kv.Key, string(kv.Value))
	}
}

func testRangeBounds(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, b.Put(ctx, k, []byte(k)))
	}

	assert.Equal(t, []string{"b", "c"}, keys(collectRange(t, b, "b", "d")))
	assert.Equal(t, []string{"c", "d"}, keys(collectRange(t, b, "c", "")))
	assert.Equal(t, []string{"a", "b"}, keys(collectRange(t, b, "", "c")))
	assert.Empty(t, collectRange(t, b, "x", ""))
}

func testRangeEarlyBreakAndRestart(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Put(ctx, k, []byte(k)))
	}

	seq := b.Range(ctx, "", "")
	var first string
	for kv, err := range seq {
		require.NoError(t, err)
		first = kv.Key
		break
	}
	assert.Equal(t, "a", first)

	// Writes after an early break must not block on a leaked cursor.
	require.NoError(t, b.Put(ctx, "d", []byte("d")))

	var all []string
	for kv, err := range seq {
		require.NoError(t, err)
		all = append(all, kv.Key)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, all, "sequence is restartable and sees new writes")
}

func testRangeNestedCalls(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		require.NoError(t, b.Put(ctx, k, []byte(k)))
		require.NoError(t, b.Put(ctx, k, []byte(k+k)))
	}

	total := 0
	for kv, err := range b.Range(ctx, "", "") {
		require.NoError(t, err)
		_, ok, err := b.Get(ctx, kv.Key)
		require.NoError(t, err)
		require.True(t, ok)
		for _, err := range b.History(ctx, kv.Key) {
			require.NoError(t, err)
			total++
		}
	}
	assert.Equal(t, 4, total)
}

func testHistoryOrder(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	alice := ledger.WithSubmitter(context.Background(), "alice")
	bob := ledger.WithSubmitter(context.Background(), "bob")

	require.NoError(t, b.Put(alice, "k", []byte("v1")))
	require.NoError(t, b.Put(bob, "other", []byte("x")))
	require.NoError(t, b.Put(bob, "k", []byte("v2")))
	require.NoError(t, b.Put(alice, "k", []byte("v3")))

	hist := collectHistory(t, b, "k")
	require.Len(t, hist, 3)

	assert.Equal(t, "v1", string(hist[0].Value))
	assert.Equal(t, "v2", string(hist[1].Value))
	assert.Equal(t, "v3", string(hist[2].Value))
	assert.Equal(t, []string{"alice", "bob", "alice"}, []string{hist[0].Submitter, hist[1].Submitter, hist[2].Submitter})

	txIDs := make(map[string]bool)
	for i, m := range hist {
		assert.Equal(t, "k", m.Key)
		assert.NotEmpty(t, m.TxID)
		txIDs[m.TxID] = true
		if i > 0 {
			assert.Greater(t, m.Seq, hist[i-1].Seq)
		}
	}
	assert.Len(t, txIDs, 3, "tx ids are unique")
}

func testHistoryUnknownKey(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	assert.Empty(t, collectHistory(t, b, "nope"))
}

func testHistoryPrefixIsolation(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "doc1", []byte("a")))
	require.NoError(t, b.Put(ctx, "doc10", []byte("b")))
	require.NoError(t, b.Put(ctx, "doc1", []byte("c")))

	hist := collectHistory(t, b, "doc1")
	require.Len(t, hist, 2)
	assert.Equal(t, "a", string(hist[0].Value))
	assert.Equal(t, "c", string(hist[1].Value))
	assert.Len(t, collectHistory(t, b, "doc10"), 1)
}

func testTimestampsNonDecreasing(t *testing.T, open Opener) {
	b, clock := newBackend(t, open)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("v1")))
	clock.Set(testutil.Epoch.Add(-24 * time.Hour))
	require.NoError(t, b.Put(ctx, "k", []byte("v2")))
	require.NoError(t, b.Put(ctx, "k", []byte("v3")))

	hist := collectHistory(t, b, "k")
	require.Len(t, hist, 3)
	assert.True(t, hist[0].Timestamp.Equal(testutil.Epoch))
	for i := 1; i < len(hist); i++ {
		assert.False(t, hist[i].Timestamp.Before(hist[i-1].Timestamp),
			"timestamp %d (%s) before %d (%s)", i, hist[i].Timestamp, i-1, hist[i-1].Timestamp)
	}
}

func testInvalidKey(t *testing.T, open Opener) {
	b, _ := newBackend(t, open)
	ctx := context.Background()

	err := b.Put(ctx, "", []byte("v"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidKey))

	err = b.Put(ctx, "a\x00b", []byte("v"))
	assert.True(t, errors.Is(err, ledger.ErrInvalidKey))
}
