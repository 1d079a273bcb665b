package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tradeledger/internal/repository"
	"github.com/roach88/tradeledger/internal/workflow"
)

// opFunc runs one scenario operation. The returned value is recorded in the
// trace as JSON.
type opFunc func(ctx context.Context, h *Harness, a args) (interface{}, error)

// ops maps scenario op names to ledger operations.
var ops = map[string]opFunc{
	"create_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.CreateAsset(ctx, workflow.AssetRequest{
			ID:        a.str("id"),
			FileName:  a.str("fileName"),
			FileHash:  a.str("fileHash"),
			CreatedBy: a.str("createdBy"),
		})
	},
	"register_file": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.RegisterFile(ctx, a.str("fileName"), strings.NewReader(a.str("content")), a.str("createdBy"))
	},
	"read_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Assets().ReadAsset(ctx, a.str("id"))
	},
	"asset_exists": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		exists, err := h.ledger.Assets().AssetExists(ctx, a.str("id"))
		return map[string]bool{"exists": exists}, err
	},
	"find_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Assets().FindAssetByFileHash(ctx, a.str("fileHash"))
	},
	"delete_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return nil, h.ledger.Assets().DeleteAsset(ctx, a.str("id"))
	},
	"list_assets": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Assets().GetAllAssets(ctx)
	},
	"create_process": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.CreateProcess(ctx, repository.NewProcess{
			ID:          a.str("id"),
			Name:        a.str("name"),
			Description: a.str("description"),
			Importer:    a.str("importer"),
			Exporter:    a.str("exporter"),
			Currency:    a.str("currency"),
			Origin:      a.str("origin"),
			Destination: a.str("destination"),
			Stage:       a.str("stage"),
			CreatedBy:   a.str("createdBy"),
		})
	},
	"read_process": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().ReadProcess(ctx, a.str("id"))
	},
	"process_exists": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		exists, err := h.ledger.Processes().ProcessExists(ctx, a.str("id"))
		return map[string]bool{"exists": exists}, err
	},
	"delete_process": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return nil, h.ledger.Processes().DeleteProcess(ctx, a.str("id"))
	},
	"list_processes": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		if stage := a.str("stage"); stage != "" {
			return h.ledger.Processes().ListProcessesByStage(ctx, stage)
		}
		return h.ledger.Processes().GetAllProcesses(ctx)
	},
	"add_item": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		quantity, err := a.integer("quantity")
		if err != nil {
			return nil, err
		}
		unitValue, err := a.number("unitValue")
		if err != nil {
			return nil, err
		}
		return h.workflow.AddItem(ctx, a.str("processID"), repository.NewItem{
			ItemID:      a.str("itemID"),
			CFF:         a.str("CFF"),
			PartNo:      a.str("partNo"),
			Description: a.str("description"),
			CatMat:      a.str("catMat"),
			MesUnit:     a.str("mesUnit"),
			Quantity:    quantity,
			UnitValue:   unitValue,
		})
	},
	"remove_item": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().RemoveItemFromProcess(ctx, a.str("processID"), a.str("itemID"))
	},
	"add_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().AddAssetToProcess(ctx, a.str("processID"), a.str("assetID"))
	},
	"remove_asset": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().RemoveAssetFromProcess(ctx, a.str("processID"), a.str("assetID"))
	},
	"list_process_assets": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().ListAssetsByProcess(ctx, a.str("processID"))
	},
	"update_status": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.UpdateStatus(ctx, a.str("processID"), workflow.StatusChange{
			NewStatus:    a.str("newStatus"),
			ApprovedBy:   a.str("approvedBy"),
			Observations: a.str("observations"),
		})
	},
	"advance_stage": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.AdvanceStage(ctx, a.str("processID"), a.str("stage"))
	},
	"update_stage": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.ledger.Processes().UpdateProcessStage(ctx, a.str("processID"), a.str("stage"), a.str("concludedDate"))
	},
	"asset_history": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.history.ListAssetTransactions(ctx, a.str("id"))
	},
	"process_history": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.history.ListProcessTransactions(ctx, a.str("id"))
	},
	"all_history": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.history.ListAllTransactions(ctx)
	},
	"seed": func(ctx context.Context, h *Harness, a args) (interface{}, error) {
		return h.workflow.Seed(ctx)
	},
}

// args wraps a step's YAML arguments with typed accessors.
type args map[string]interface{}

func (a args) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (a args) integer(key string) (int64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("arg %s: %v is not an integer", key, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("arg %s: expected integer, got %T", key, v)
	}
}

func (a args) number(key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("arg %s: expected number, got %T", key, v)
	}
}
