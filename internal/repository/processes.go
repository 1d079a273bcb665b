package repository

import (
	"context"
	"slices"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
)

const kindProcess = "process"

// ProcessRepository manages Process documents.
type ProcessRepository struct {
	l *Ledger
}

// NewProcess holds the caller-supplied fields of a process at creation.
type NewProcess struct {
	ID          string
	Name        string
	Description string
	Importer    string
	Exporter    string
	Currency    string
	Origin      string
	Destination string
	Stage       string
	CreatedBy   string
}

// NewItem holds the caller-supplied fields of a line item. The item total is
// computed on insertion.
type NewItem struct {
	ItemID      string
	CFF         string
	PartNo      string
	Description string
	CatMat      string
	MesUnit     string
	Quantity    int64
	UnitValue   float64
}

// CreateProcess registers a new process with empty items, assets and
// approval fields. It fails with AlreadyExists when the ID holds any live
// document.
func (r *ProcessRepository) CreateProcess(ctx context.Context, in NewProcess) (*document.Process, error) {
	unlock := r.l.locks.Lock(in.ID)
	defer unlock()

	exists, err := r.l.exists(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fault.NewAlreadyExists(kindProcess, in.ID)
	}

	process := &document.Process{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Importer:    in.Importer,
		Exporter:    in.Exporter,
		Currency:    in.Currency,
		Origin:      in.Origin,
		Destination: in.Destination,
		ItemsList:   []document.Item{},
		Assets:      []string{},
		Stage:       in.Stage,
		CreatedBy:   in.CreatedBy,
		CreatedDate: r.l.timestamp(),
	}
	if err := r.l.store(ctx, in.ID, process); err != nil {
		return nil, err
	}
	return process, nil
}

// ReadProcess returns the process stored under id. A missing key, or a key
// holding a non-process document, is NotFound.
func (r *ProcessRepository) ReadProcess(ctx context.Context, id string) (*document.Process, error) {
	doc, ok, err := r.l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.NewNotFound(kindProcess, id)
	}
	process, isProcess := doc.(*document.Process)
	if !isProcess {
		return nil, fault.NewNotFound(kindProcess, id)
	}
	return process, nil
}

// ProcessExists reports whether id holds a live document of any docType.
func (r *ProcessRepository) ProcessExists(ctx context.Context, id string) (bool, error) {
	return r.l.exists(ctx, id)
}

// DeleteProcess tombstones the document under id.
func (r *ProcessRepository) DeleteProcess(ctx context.Context, id string) error {
	unlock := r.l.locks.Lock(id)
	defer unlock()

	exists, err := r.l.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fault.NewNotFound(kindProcess, id)
	}
	return r.l.remove(ctx, id)
}

// GetAllProcesses returns every process in key order.
func (r *ProcessRepository) GetAllProcesses(ctx context.Context) ([]*document.Process, error) {
	return r.filter(ctx, func(*document.Process) bool { return true })
}

// ListProcessesByStage returns the processes whose Stage equals stage
// exactly, in key order.
func (r *ProcessRepository) ListProcessesByStage(ctx context.Context, stage string) ([]*document.Process, error) {
	return r.filter(ctx, func(p *document.Process) bool { return p.Stage == stage })
}

func (r *ProcessRepository) filter(ctx context.Context, match func(*document.Process) bool) ([]*document.Process, error) {
	processes := []*document.Process{}
	for doc, err := range r.l.documents(ctx) {
		if err != nil {
			return nil, err
		}
		if p, ok := doc.(*document.Process); ok && match(p) {
			processes = append(processes, p)
		}
	}
	return processes, nil
}

// update runs a read-modify-write on the process under id while holding the
// key lock. mutate reports whether the document changed; unchanged documents
// are not written back.
func (r *ProcessRepository) update(ctx context.Context, id string, mutate func(*document.Process) (bool, error)) (*document.Process, error) {
	unlock := r.l.locks.Lock(id)
	defer unlock()

	process, err := r.ReadProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := mutate(process)
	if err != nil {
		return nil, err
	}
	if !changed {
		return process, nil
	}
	if err := r.l.store(ctx, id, process); err != nil {
		return nil, err
	}
	return process, nil
}

// AddItemToProcess appends an item and adds its contribution to the running
// totals.
func (r *ProcessRepository) AddItemToProcess(ctx context.Context, processID string, in NewItem) (*document.Process, error) {
	item := document.NewItem(in.ItemID, in.CFF, in.PartNo, in.Description, in.CatMat, in.MesUnit, in.Quantity, in.UnitValue)
	return r.update(ctx, processID, func(p *document.Process) (bool, error) {
		p.ItemsList = append(p.ItemsList, item)
		p.TotalValue += item.TotalValue
		p.TotalItems += item.Quantity
		return true, nil
	})
}

// RemoveItemFromProcess removes the first item with itemID and subtracts its
// stored contribution from the running totals.
func (r *ProcessRepository) RemoveItemFromProcess(ctx context.Context, processID, itemID string) (*document.Process, error) {
	return r.update(ctx, processID, func(p *document.Process) (bool, error) {
		if len(p.ItemsList) == 0 {
			return false, fault.NewNoItemsList(processID)
		}
		idx := slices.IndexFunc(p.ItemsList, func(it document.Item) bool { return it.ItemID == itemID })
		if idx < 0 {
			return false, fault.NewItemNotFound(processID, itemID)
		}
		removed := p.ItemsList[idx]
		p.ItemsList = slices.Delete(p.ItemsList, idx, idx+1)
		p.TotalValue -= removed.TotalValue
		p.TotalItems -= removed.Quantity
		return true, nil
	})
}

// AddAssetToProcess appends assetID to the process's asset links. The asset
// is not checked for existence and duplicates are kept.
func (r *ProcessRepository) AddAssetToProcess(ctx context.Context, processID, assetID string) (*document.Process, error) {
	return r.update(ctx, processID, func(p *document.Process) (bool, error) {
		p.Assets = append(p.Assets, assetID)
		return true, nil
	})
}

// RemoveAssetFromProcess removes the first occurrence of assetID. An absent
// link leaves the process untouched and returns it as stored.
func (r *ProcessRepository) RemoveAssetFromProcess(ctx context.Context, processID, assetID string) (*document.Process, error) {
	return r.update(ctx, processID, func(p *document.Process) (bool, error) {
		idx := slices.Index(p.Assets, assetID)
		if idx < 0 {
			return false, nil
		}
		p.Assets = slices.Delete(p.Assets, idx, idx+1)
		return true, nil
	})
}

// ListAssetsByProcess resolves every asset linked by the process, in link
// order. A link that no longer resolves fails with DanglingReference wrapping
// the read error.
func (r *ProcessRepository) ListAssetsByProcess(ctx context.Context, processID string) ([]*document.Asset, error) {
	process, err := r.ReadProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	assets := make([]*document.Asset, 0, len(process.Assets))
	for _, assetID := range process.Assets {
		asset, err := r.l.assets.ReadAsset(ctx, assetID)
		if fault.IsNotFound(err) {
			return nil, fault.NewDanglingReference(processID, assetID, err)
		}
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// UpdateProcessStatus sets ApprovalStatus, Observations and ApprovedBy as
// given. Status policy is enforced by the caller.
func (r *ProcessRepository) UpdateProcessStatus(ctx context.Context, id, newStatus, approvedBy, observations string) (*document.Process, error) {
	return r.update(ctx, id, func(p *document.Process) (bool, error) {
		p.ApprovalStatus = newStatus
		p.Observations = observations
		p.ApprovedBy = approvedBy
		return true, nil
	})
}

// UpdateProcessStage sets Stage. ConcludedDate is set only when newStage is
// "Fin" and concludedDate is non-empty; otherwise it keeps its prior value.
func (r *ProcessRepository) UpdateProcessStage(ctx context.Context, id, newStage, concludedDate string) (*document.Process, error) {
	return r.update(ctx, id, func(p *document.Process) (bool, error) {
		p.Stage = newStage
		if newStage == document.StageFinished && concludedDate != "" {
			p.ConcludedDate = concludedDate
		}
		return true, nil
	})
}
