package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/store"
	"github.com/roach88/tradeledger/internal/testutil"
)

// newTestLedger opens a ledger on a private in-memory SQLite backend with
// deterministic clocks.
func newTestLedger(t *testing.T) (*Ledger, ledger.Backend) {
	t.Helper()
	backend, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	docClock := testutil.NewDeterministicClock()
	return New(backend, WithClock(docClock.Now)), backend
}

func testContext() context.Context {
	return ledger.WithSubmitter(context.Background(), "Org1MSP")
}

func createProcess(t *testing.T, l *Ledger, id, stage string) {
	t.Helper()
	_, err := l.Processes().CreateProcess(testContext(), NewProcess{
		ID:          id,
		Name:        "Importação de partes de avião",
		Description: "Solicitação de importação de partes de avião",
		Importer:    "Embraer",
		Exporter:    "Exporter",
		Currency:    "USD",
		Origin:      "Address USA, USA",
		Destination: "Address BR, BRA",
		Stage:       stage,
		CreatedBy:   "user001",
	})
	require.NoError(t, err)
}

func rawValue(t *testing.T, b ledger.Backend, key string) []byte {
	t.Helper()
	v, ok, err := b.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "key %s should be live", key)
	return v
}

func historyLen(t *testing.T, b ledger.Backend, key string) int {
	t.Helper()
	n := 0
	for _, err := range b.History(context.Background(), key) {
		require.NoError(t, err)
		n++
	}
	return n
}
