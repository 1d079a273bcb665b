package workflow

import (
	"context"
	"fmt"

	"github.com/roach88/tradeledger/internal/fault"
	"github.com/roach88/tradeledger/internal/repository"
)

// Sample data written by Seed.
const (
	SeedAssetID   = "doc001"
	SeedProcessID = "proc001"
	SeedFileHash  = "0abcdef1234567890"
	SeedCreatedBy = "user001"
)

// SeedResult reports which sample documents Seed wrote.
type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Seed writes the sample asset and process: doc001, and proc001 with one
// item, a link to doc001 and an approved status. Documents whose ID already
// exists are left alone, so Seed is safe to run repeatedly.
func (s *Service) Seed(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{Created: []string{}, Skipped: []string{}}

	_, err := s.ledger.Assets().CreateAsset(ctx, SeedAssetID, "", SeedFileHash, SeedCreatedBy)
	switch {
	case err == nil:
		result.Created = append(result.Created, SeedAssetID)
	case fault.IsAlreadyExists(err):
		result.Skipped = append(result.Skipped, SeedAssetID)
	default:
		return nil, fmt.Errorf("seed %s: %w", SeedAssetID, err)
	}

	processes := s.ledger.Processes()
	_, err = processes.CreateProcess(ctx, repository.NewProcess{
		ID:          SeedProcessID,
		Name:        normalize("Importação de partes de avião"),
		Description: normalize("Solicitação de importação de partes de avião"),
		Importer:    "Embraer",
		Exporter:    "Exporter",
		Currency:    "USD",
		Origin:      "Address USA, USA",
		Destination: "Address BR, BRA",
		Stage:       "Req",
		CreatedBy:   SeedCreatedBy,
	})
	if fault.IsAlreadyExists(err) {
		result.Skipped = append(result.Skipped, SeedProcessID)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", SeedProcessID, err)
	}

	if _, err := processes.AddItemToProcess(ctx, SeedProcessID, repository.NewItem{
		ItemID:      "1",
		CFF:         "00",
		PartNo:      "001-ab",
		Description: "equipment parts",
		CatMat:      "abcd",
		MesUnit:     "un",
		Quantity:    10,
		UnitValue:   100,
	}); err != nil {
		return nil, fmt.Errorf("seed %s item: %w", SeedProcessID, err)
	}
	if _, err := processes.AddAssetToProcess(ctx, SeedProcessID, SeedAssetID); err != nil {
		return nil, fmt.Errorf("seed %s asset link: %w", SeedProcessID, err)
	}
	if _, err := processes.UpdateProcessStatus(ctx, SeedProcessID, "approved", "Requerente", ""); err != nil {
		return nil, fmt.Errorf("seed %s status: %w", SeedProcessID, err)
	}

	result.Created = append(result.Created, SeedProcessID)
	s.logger.Info("ledger seeded", "created", result.Created, "skipped", result.Skipped)
	return result, nil
}
