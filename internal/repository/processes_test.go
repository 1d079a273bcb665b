package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
)

func TestCreateProcess_Initializes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	p, err := l.Processes().CreateProcess(ctx, NewProcess{ID: "proc001", Name: "n", Stage: "Req", CreatedBy: "user001"})
	require.NoError(t, err)

	assert.Equal(t, []document.Item{}, p.ItemsList)
	assert.Equal(t, []string{}, p.Assets)
	assert.Zero(t, p.TotalValue)
	assert.Zero(t, p.TotalItems)
	assert.Empty(t, p.ApprovedBy)
	assert.Empty(t, p.RejectedBy)
	assert.Empty(t, p.ApprovalStatus)
	assert.Empty(t, p.Observations)
	assert.Empty(t, p.ConcludedDate)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", p.CreatedDate)
	assert.Equal(t, document.DocTypeProcess, p.DocType)

	read, err := l.Processes().ReadProcess(ctx, "proc001")
	require.NoError(t, err)
	assert.Equal(t, p, read)
}

func TestCreateProcess_AlreadyExists(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	createProcess(t, l, "proc001", "Req")
	_, err := l.Processes().CreateProcess(ctx, NewProcess{ID: "proc001"})
	assert.True(t, fault.IsAlreadyExists(err))

	_, err = l.Assets().CreateAsset(ctx, "doc001", "a", "h", "u")
	require.NoError(t, err)
	_, err = l.Processes().CreateProcess(ctx, NewProcess{ID: "doc001"})
	assert.True(t, fault.IsAlreadyExists(err), "asset IDs share the keyspace")
}

func TestReadProcess_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Processes().ReadProcess(testContext(), "proc404")
	assert.True(t, fault.IsNotFound(err))
}

func TestGetAllProcesses_AndByStage(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	createProcess(t, l, "proc003", "Req")
	createProcess(t, l, "proc001", "Cot")
	createProcess(t, l, "proc002", "Req")
	_, err := l.Assets().CreateAsset(ctx, "doc001", "a", "h", "u")
	require.NoError(t, err)

	all, err := l.Processes().GetAllProcesses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"proc001", "proc002", "proc003"}, []string{all[0].ID, all[1].ID, all[2].ID})

	req, err := l.Processes().ListProcessesByStage(ctx, "Req")
	require.NoError(t, err)
	require.Len(t, req, 2)
	assert.Equal(t, "proc002", req[0].ID)
	assert.Equal(t, "proc003", req[1].ID)

	none, err := l.Processes().ListProcessesByStage(ctx, "req")
	require.NoError(t, err)
	assert.Empty(t, none, "stage match is exact")
}

func TestItems_RunningTotals(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	type step struct {
		add    *NewItem
		remove string
	}
	steps := []step{
		{add: &NewItem{ItemID: "1", Quantity: 10, UnitValue: 100}},
		{add: &NewItem{ItemID: "2", Quantity: 3, UnitValue: 0.1}},
		{add: &NewItem{ItemID: "3", Quantity: 7, UnitValue: 0.2}},
		{remove: "1"},
		{add: &NewItem{ItemID: "4", Quantity: 1, UnitValue: 19.99}},
		{remove: "3"},
		{remove: "2"},
		{add: &NewItem{ItemID: "5", Quantity: 2, UnitValue: 0.3}},
		{remove: "4"},
		{remove: "5"},
	}

	var (
		wantValue float64
		wantItems int64
		live      = map[string]document.Item{}
	)
	for i, s := range steps {
		var (
			p   *document.Process
			err error
		)
		if s.add != nil {
			p, err = l.Processes().AddItemToProcess(ctx, "proc001", *s.add)
			require.NoError(t, err)
			item := document.NewItem(s.add.ItemID, "", "", "", "", "", s.add.Quantity, s.add.UnitValue)
			live[item.ItemID] = item
			wantValue += item.TotalValue
			wantItems += item.Quantity
		} else {
			p, err = l.Processes().RemoveItemFromProcess(ctx, "proc001", s.remove)
			require.NoError(t, err)
			item := live[s.remove]
			delete(live, s.remove)
			wantValue -= item.TotalValue
			wantItems -= item.Quantity
		}

		assert.Equal(t, wantValue, p.TotalValue, "step %d TotalValue", i)
		assert.Equal(t, wantItems, p.TotalItems, "step %d TotalItems", i)
		assert.Len(t, p.ItemsList, len(live), "step %d items", i)

		stored, err := l.Processes().ReadProcess(ctx, "proc001")
		require.NoError(t, err)
		assert.Equal(t, p, stored, "step %d stored document", i)
	}
	assert.Zero(t, wantItems)
}

func TestAddItemToProcess_ComputesItemTotal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	p, err := l.Processes().AddItemToProcess(ctx, "proc001", NewItem{
		ItemID: "1", CFF: "00", PartNo: "001-ab", Description: "equipment parts",
		CatMat: "abcd", MesUnit: "un", Quantity: 10, UnitValue: 100,
	})
	require.NoError(t, err)
	require.Len(t, p.ItemsList, 1)
	assert.Equal(t, 1000.0, p.ItemsList[0].TotalValue)
	assert.Equal(t, 1000.0, p.TotalValue)
	assert.Equal(t, int64(10), p.TotalItems)

	_, err = l.Processes().AddItemToProcess(ctx, "proc404", NewItem{ItemID: "1"})
	assert.True(t, fault.IsNotFound(err))
}

func TestRemoveItemFromProcess_Errors(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()

	_, err := l.Processes().RemoveItemFromProcess(ctx, "proc404", "1")
	assert.True(t, fault.IsNotFound(err))

	createProcess(t, l, "proc001", "Req")
	_, err = l.Processes().RemoveItemFromProcess(ctx, "proc001", "1")
	assert.Equal(t, fault.CodeNoItemsList, fault.CodeOf(err))

	_, err = l.Processes().AddItemToProcess(ctx, "proc001", NewItem{ItemID: "1", Quantity: 2, UnitValue: 0.1})
	require.NoError(t, err)

	before := rawValue(t, backend, "proc001")
	versions := historyLen(t, backend, "proc001")

	_, err = l.Processes().RemoveItemFromProcess(ctx, "proc001", "999")
	assert.Equal(t, fault.CodeItemNotFound, fault.CodeOf(err))
	assert.Equal(t, before, rawValue(t, backend, "proc001"), "document must be byte-for-byte unchanged")
	assert.Equal(t, versions, historyLen(t, backend, "proc001"))
}

func TestRemoveItemFromProcess_FirstMatchOnly(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	_, err := l.Processes().AddItemToProcess(ctx, "proc001", NewItem{ItemID: "dup", Quantity: 1, UnitValue: 1})
	require.NoError(t, err)
	_, err = l.Processes().AddItemToProcess(ctx, "proc001", NewItem{ItemID: "dup", Quantity: 5, UnitValue: 2})
	require.NoError(t, err)

	p, err := l.Processes().RemoveItemFromProcess(ctx, "proc001", "dup")
	require.NoError(t, err)
	require.Len(t, p.ItemsList, 1)
	assert.Equal(t, int64(5), p.ItemsList[0].Quantity)
	assert.Equal(t, int64(5), p.TotalItems)
	assert.Equal(t, 10.0, p.TotalValue)
}

func TestAssetLinks(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	p, err := l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	p, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc404")
	require.NoError(t, err, "links are not checked for existence")
	p, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc001", "doc404", "doc001"}, p.Assets, "duplicates are kept")

	p, err = l.Processes().RemoveAssetFromProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc404", "doc001"}, p.Assets)

	versions := historyLen(t, backend, "proc001")
	p, err = l.Processes().RemoveAssetFromProcess(ctx, "proc001", "doc999")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc404", "doc001"}, p.Assets)
	assert.Equal(t, versions, historyLen(t, backend, "proc001"), "absent link writes nothing")

	_, err = l.Processes().AddAssetToProcess(ctx, "proc404", "doc001")
	assert.True(t, fault.IsNotFound(err))
	_, err = l.Processes().RemoveAssetFromProcess(ctx, "proc404", "doc001")
	assert.True(t, fault.IsNotFound(err))
}

func TestListAssetsByProcess_EndToEnd(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	asset, err := l.Assets().CreateAsset(ctx, "doc001", "parts.pdf", "0abcdef1234567890", "user001")
	require.NoError(t, err)
	createProcess(t, l, "proc001", "Req")

	_, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)

	assets, err := l.Processes().ListAssetsByProcess(ctx, "proc001")
	require.NoError(t, err)
	assert.Equal(t, []*document.Asset{asset}, assets)

	_, err = l.Processes().RemoveAssetFromProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)

	assets, err = l.Processes().ListAssetsByProcess(ctx, "proc001")
	require.NoError(t, err)
	assert.Equal(t, []*document.Asset{}, assets)
}

func TestListAssetsByProcess_DanglingReference(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	_, err := l.Assets().CreateAsset(ctx, "doc001", "a", "h", "u")
	require.NoError(t, err)
	createProcess(t, l, "proc001", "Req")
	_, err = l.Processes().AddAssetToProcess(ctx, "proc001", "doc001")
	require.NoError(t, err)
	require.NoError(t, l.Assets().DeleteAsset(ctx, "doc001"))

	_, err = l.Processes().ListAssetsByProcess(ctx, "proc001")
	require.Error(t, err)
	assert.Equal(t, fault.CodeDanglingReference, fault.CodeOf(err))
	assert.True(t, fault.IsNotFound(err), "the underlying read failure stays visible")

	_, err = l.Processes().ListAssetsByProcess(ctx, "proc404")
	assert.Equal(t, fault.CodeNotFound, fault.CodeOf(err))
}

func TestUpdateProcessStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	p, err := l.Processes().UpdateProcessStatus(ctx, "proc001", "rejected", "auditor", "")
	require.NoError(t, err, "policy is not enforced here")
	assert.Equal(t, "rejected", p.ApprovalStatus)
	assert.Equal(t, "auditor", p.ApprovedBy)
	assert.Empty(t, p.Observations)

	p, err = l.Processes().UpdateProcessStatus(ctx, "proc001", "approved", "manager", "ok")
	require.NoError(t, err)
	assert.Equal(t, "approved", p.ApprovalStatus)
	assert.Equal(t, "manager", p.ApprovedBy)
	assert.Equal(t, "ok", p.Observations)

	_, err = l.Processes().UpdateProcessStatus(ctx, "proc404", "approved", "m", "")
	assert.True(t, fault.IsNotFound(err))
}

func TestUpdateProcessStage(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	p, err := l.Processes().UpdateProcessStage(ctx, "proc001", "Fin", "")
	require.NoError(t, err)
	assert.Equal(t, "Fin", p.Stage)
	assert.Empty(t, p.ConcludedDate, "Fin without a date sets nothing")

	p, err = l.Processes().UpdateProcessStage(ctx, "proc001", "Fin", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", p.ConcludedDate)

	p, err = l.Processes().UpdateProcessStage(ctx, "proc001", "Cot", "")
	require.NoError(t, err)
	assert.Equal(t, "Cot", p.Stage)
	assert.Equal(t, "2024-01-01T00:00:00Z", p.ConcludedDate, "reopening keeps the conclusion date")

	p, err = l.Processes().UpdateProcessStage(ctx, "proc001", "Emb", "2025-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", p.ConcludedDate, "only Fin sets the conclusion date")

	_, err = l.Processes().UpdateProcessStage(ctx, "proc404", "Fin", "")
	assert.True(t, fault.IsNotFound(err))
}

func TestDeleteProcess(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	assert.True(t, fault.IsNotFound(l.Processes().DeleteProcess(ctx, "proc001")))

	createProcess(t, l, "proc001", "Req")
	require.NoError(t, l.Processes().DeleteProcess(ctx, "proc001"))

	exists, err := l.Processes().ProcessExists(ctx, "proc001")
	require.NoError(t, err)
	assert.False(t, exists)

	createProcess(t, l, "proc001", "Req")
}

func TestConcurrentAddItem_NoLostUpdates(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()
	createProcess(t, l, "proc001", "Req")

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Processes().AddItemToProcess(ctx, "proc001", NewItem{ItemID: fmt.Sprint(i), Quantity: 1, UnitValue: 2})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	p, err := l.Processes().ReadProcess(ctx, "proc001")
	require.NoError(t, err)
	assert.Len(t, p.ItemsList, n)
	assert.Equal(t, int64(n), p.TotalItems)
	assert.Equal(t, float64(2*n), p.TotalValue)
	assert.Zero(t, l.locks.len())
}

func TestConcurrentCreate_ExactlyOneWins(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := testContext()

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Processes().CreateProcess(ctx, NewProcess{ID: "proc001"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if fault.IsAlreadyExists(err) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, rejected)
}
