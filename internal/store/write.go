package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tradeledger/internal/ledger"
)

// Put writes value as the current value of key and appends a history row.
// Both happen in one SQL transaction.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ledger.ValidateKey(key); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put %q: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}

	if err := s.appendHistory(ctx, tx, seq, key, value, false, ledger.SubmitterFrom(ctx)); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO world_state (key, value, version)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = excluded.version
	`, key, value, seq)
	if err != nil {
		return fmt.Errorf("put %q: write state: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put %q: commit: %w", key, err)
	}

	s.logger.Debug("put", "key", key, "seq", seq)
	return nil
}

// Delete tombstones key. Deleting a key that is not live records nothing.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ledger.ValidateKey(key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %q: begin tx: %w", key, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM world_state WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %q: remove state: %w", key, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %q: rows affected: %w", key, err)
	}
	if rowsAffected == 0 {
		return nil
	}

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	if err := s.appendHistory(ctx, tx, seq, key, nil, true, ledger.SubmitterFrom(ctx)); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete %q: commit: %w", key, err)
	}

	s.logger.Debug("delete", "key", key, "seq", seq)
	return nil
}

// nextSeq returns the next commit sequence. History rows are never removed,
// so MAX(seq)+1 is strictly increasing.
func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM history`).Scan(&last); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return last + 1, nil
}

func (s *Store) appendHistory(ctx context.Context, tx *sql.Tx, seq int64, key string, value []byte, isDelete bool, submitter string) error {
	var deleted int
	if isDelete {
		deleted = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history
		(seq, tx_id, key, value, is_delete, timestamp, submitter)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		seq,
		ledger.TxID(seq, key, value, isDelete),
		key,
		value,
		deleted,
		ledger.FormatTimestamp(s.stamper.Stamp()),
		submitter,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
