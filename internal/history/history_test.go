package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/repository"
	"github.com/roach88/tradeledger/internal/store"
	"github.com/roach88/tradeledger/internal/testutil"
)

func setup(t *testing.T) (*repository.Ledger, *Service) {
	t.Helper()
	backend, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return repository.New(backend, repository.WithClock(testutil.NewDeterministicClock().Now)), New(backend)
}

func TestListProcessTransactions_NPlusOne(t *testing.T) {
	l, svc := setup(t)
	ctx := ledger.WithSubmitter(context.Background(), "Org1MSP")

	_, err := l.Processes().CreateProcess(ctx, repository.NewProcess{ID: "proc001", Stage: "Req"})
	require.NoError(t, err)

	const mutations = 5
	_, err = l.Processes().AddItemToProcess(ctx, "proc001", repository.NewItem{ItemID: "1", Quantity: 1, UnitValue: 1})
	require.NoError(t, err)
	_, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	_, err = l.Processes().UpdateProcessStatus(ctx, "proc001", "approved", "m", "")
	require.NoError(t, err)
	_, err = l.Processes().UpdateProcessStage(ctx, "proc001", "Fin", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	last, err := l.Processes().RemoveItemFromProcess(ctx, "proc001", "1")
	require.NoError(t, err)

	txs, err := svc.ListProcessTransactions(ctx, "proc001")
	require.NoError(t, err)
	require.Len(t, txs, mutations+1)

	for i, tx := range txs {
		assert.Equal(t, "Org1MSP", tx.CreatedBy)
		assert.Empty(t, tx.Key)
		assert.NotEmpty(t, tx.TxID)
		if i > 0 {
			assert.GreaterOrEqual(t, tx.Timestamp, txs[i-1].Timestamp)
		}
	}

	final, err := document.Encode(last)
	require.NoError(t, err)
	assert.Equal(t, string(final), txs[mutations].Value)
}

func TestListAssetTransactions_Tombstone(t *testing.T) {
	l, svc := setup(t)
	ctx := ledger.WithSubmitter(context.Background(), "Org1MSP")

	_, err := l.Assets().CreateAsset(ctx, "doc001", "a.pdf", "h", "user001")
	require.NoError(t, err)
	require.NoError(t, l.Assets().DeleteAsset(ctx, "doc001"))

	txs, err := svc.ListAssetTransactions(ctx, "doc001")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Org1MSP", txs[0].CreatedBy)
	assert.Contains(t, txs[0].Value, `"ID":"doc001"`)
	assert.Equal(t, DeletedBy, txs[1].CreatedBy)
	assert.Empty(t, txs[1].Value)
}

func TestListAssetTransactions_UnknownKey(t *testing.T) {
	_, svc := setup(t)

	txs, err := svc.ListAssetTransactions(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestListAllTransactions_ScanThenHistoryOrder(t *testing.T) {
	l, svc := setup(t)
	ctx := ledger.WithSubmitter(context.Background(), "Org1MSP")

	_, err := l.Processes().CreateProcess(ctx, repository.NewProcess{ID: "proc001"})
	require.NoError(t, err)
	_, err = l.Assets().CreateAsset(ctx, "doc002", "b", "h2", "u")
	require.NoError(t, err)
	_, err = l.Assets().CreateAsset(ctx, "doc001", "a", "h1", "u")
	require.NoError(t, err)
	_, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	_, err = l.Assets().CreateAsset(ctx, "doc003", "c", "h3", "u")
	require.NoError(t, err)
	require.NoError(t, l.Assets().DeleteAsset(ctx, "doc003"))

	txs, err := svc.ListAllTransactions(ctx)
	require.NoError(t, err)

	var keys []string
	for _, tx := range txs {
		keys = append(keys, tx.Key)
	}
	assert.Equal(t, []string{"doc001", "doc002", "proc001", "proc001"}, keys,
		"deleted keys are not discovered by the live-key scan")
}

func TestFromModification_TimestampFormat(t *testing.T) {
	tx := fromModification(ledger.Modification{
		TxID:      "abc",
		Value:     []byte("{}"),
		Timestamp: testutil.Epoch,
		Submitter: "Org1MSP",
	})
	assert.Equal(t, Transaction{
		TxID:      "abc",
		Value:     "{}",
		Timestamp: "2024-01-01T00:00:00.000000000Z",
		CreatedBy: "Org1MSP",
	}, tx)
}
