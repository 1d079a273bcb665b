package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
)

func TestCreateAsset(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	created, err := l.Assets().CreateAsset(ctx, "doc001", "invoice.pdf", "0abcdef1234567890", "user001")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", created.CreationDate)
	assert.Equal(t, document.DocTypeAsset, created.DocType)

	read, err := l.Assets().ReadAsset(ctx, "doc001")
	require.NoError(t, err)
	assert.Equal(t, created, read)
}

func TestCreateAsset_AlreadyExists(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	_, err := l.Assets().CreateAsset(ctx, "doc001", "a.pdf", "h1", "user001")
	require.NoError(t, err)
	before := rawValue(t, backend, "doc001")

	_, err = l.Assets().CreateAsset(ctx, "doc001", "b.pdf", "h2", "user002")
	require.Error(t, err)
	assert.True(t, fault.IsAlreadyExists(err))
	assert.Equal(t, before, rawValue(t, backend, "doc001"))

	createProcess(t, l, "proc001", "Req")
	_, err = l.Assets().CreateAsset(ctx, "proc001", "c.pdf", "h3", "user001")
	assert.True(t, fault.IsAlreadyExists(err), "process IDs share the keyspace")
}

func TestReadAsset_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	_, err := l.Assets().ReadAsset(ctx, "missing")
	assert.True(t, fault.IsNotFound(err))

	createProcess(t, l, "proc001", "Req")
	_, err = l.Assets().ReadAsset(ctx, "proc001")
	assert.True(t, fault.IsNotFound(err), "a process is not an asset")
}

func TestReadAsset_CorruptRecord(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	require.NoError(t, backend.Put(ctx, "doc001", []byte("not json")))

	_, err := l.Assets().ReadAsset(ctx, "doc001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrCorruptRecord))

	var fe *fault.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "doc001", fe.Key)
}

func TestFindAssetByFileHash_FirstInKeyOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	for _, id := range []string{"doc003", "doc002", "doc001"} {
		hash := "shared"
		if id == "doc003" {
			hash = "other"
		}
		_, err := l.Assets().CreateAsset(ctx, id, id+".pdf", hash, "user001")
		require.NoError(t, err)
	}

	found, err := l.Assets().FindAssetByFileHash(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "doc001", found.ID)

	found, err = l.Assets().FindAssetByFileHash(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "doc003", found.ID)
}

func TestFindAssetByFileHash_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	_, err := l.Assets().CreateAsset(ctx, "doc001", "a.pdf", "h1", "user001")
	require.NoError(t, err)

	_, err = l.Assets().FindAssetByFileHash(ctx, "nope")
	assert.True(t, fault.IsNotFound(err))
}

func TestFindAssetByFileHash_SkipsCorruptAndForeignRecords(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	require.NoError(t, backend.Put(ctx, "a-corrupt", []byte("{{{")))
	require.NoError(t, backend.Put(ctx, "b-foreign", []byte(`{"FileHash":"h1","docType":"invoice"}`)))
	_, err := l.Assets().CreateAsset(ctx, "c-doc", "a.pdf", "h1", "user001")
	require.NoError(t, err)

	found, err := l.Assets().FindAssetByFileHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "c-doc", found.ID)
}

func TestDeleteAsset(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	err := l.Assets().DeleteAsset(ctx, "doc001")
	assert.True(t, fault.IsNotFound(err))

	_, err = l.Assets().CreateAsset(ctx, "doc001", "a.pdf", "h1", "user001")
	require.NoError(t, err)
	require.NoError(t, l.Assets().DeleteAsset(ctx, "doc001"))

	_, err = l.Assets().ReadAsset(ctx, "doc001")
	assert.True(t, fault.IsNotFound(err))

	exists, err := l.Assets().AssetExists(ctx, "doc001")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 2, historyLen(t, backend, "doc001"))

	err = l.Assets().DeleteAsset(ctx, "doc001")
	assert.True(t, fault.IsNotFound(err))
}

func TestGetAllAssets(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	all, err := l.Assets().GetAllAssets(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	for _, id := range []string{"doc002", "doc001"} {
		_, err := l.Assets().CreateAsset(ctx, id, id, id, "user001")
		require.NoError(t, err)
	}
	createProcess(t, l, "doc0015", "Req")
	require.NoError(t, backend.Put(ctx, "doc0010", []byte("garbage")))

	all, err = l.Assets().GetAllAssets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "doc001", all[0].ID)
	assert.Equal(t, "doc002", all[1].ID)
}
