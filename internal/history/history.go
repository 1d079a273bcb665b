// Package history reconstructs transaction logs from the ledger's per-key
// history.
//
// The service is read-only and independent of the repositories: it reports
// what the backend recorded, in the order the backend records it.
package history

import (
	"context"
	"fmt"

	"github.com/roach88/tradeledger/internal/ledger"
)

// DeletedBy is reported as CreatedBy for tombstone entries.
const DeletedBy = "Deleted"

// Transaction is one entry of a key's history.
//
// Value is the stored document text, empty for tombstones. Key is only set
// by ListAllTransactions.
type Transaction struct {
	TxID      string `json:"txID"`
	Key       string `json:"key,omitempty"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
	CreatedBy string `json:"createdBy"`
}

// Service lists transactions.
type Service struct {
	backend ledger.Backend
}

// New creates a history service over backend.
func New(backend ledger.Backend) *Service {
	return &Service{backend: backend}
}

// ListAssetTransactions returns the history of an asset key, oldest first.
func (s *Service) ListAssetTransactions(ctx context.Context, assetID string) ([]Transaction, error) {
	return s.listKey(ctx, assetID, false)
}

// ListProcessTransactions returns the history of a process key, oldest first.
func (s *Service) ListProcessTransactions(ctx context.Context, processID string) ([]Transaction, error) {
	return s.listKey(ctx, processID, false)
}

// ListAllTransactions returns the history of every live key, keys in scan
// order and each key's entries oldest first. Keys whose latest modification
// is a tombstone are not discovered by the scan and are not listed.
func (s *Service) ListAllTransactions(ctx context.Context) ([]Transaction, error) {
	all := []Transaction{}
	for kv, err := range s.backend.Range(ctx, "", "") {
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		txs, err := s.listKey(ctx, kv.Key, true)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	return all, nil
}

func (s *Service) listKey(ctx context.Context, key string, withKey bool) ([]Transaction, error) {
	txs := []Transaction{}
	for m, err := range s.backend.History(ctx, key) {
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", key, err)
		}
		tx := fromModification(m)
		if withKey {
			tx.Key = key
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func fromModification(m ledger.Modification) Transaction {
	tx := Transaction{
		TxID:      m.TxID,
		Value:     string(m.Value),
		Timestamp: ledger.FormatTimestamp(m.Timestamp),
		CreatedBy: m.Submitter,
	}
	if m.IsDelete {
		tx.Value = ""
		tx.CreatedBy = DeletedBy
	}
	return tx
}
