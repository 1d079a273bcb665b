package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/tradeledger/internal/ledger"
)

// Get returns the current value of key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM world_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Range yields live keys in [start, end), ordered by key COLLATE BINARY.
//
// Rows are read pageSize at a time; each page's result set is closed before
// its rows are yielded.
func (s *Store) Range(ctx context.Context, start, end string) iter.Seq2[ledger.KV, error] {
	return func(yield func(ledger.KV, error) bool) {
		after, first := "", true
		for {
			page, err := s.rangePage(ctx, start, end, after, first)
			if err != nil {
				yield(ledger.KV{}, err)
				return
			}
			for _, kv := range page {
				if !yield(kv, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after, first = page[len(page)-1].Key, false
		}
	}
}

func (s *Store) rangePage(ctx context.Context, start, end, after string, first bool) ([]ledger.KV, error) {
	var (
		conds []string
		args  []any
	)
	if first {
		if start != "" {
			conds = append(conds, "key >= ?")
			args = append(args, start)
		}
	} else {
		conds = append(conds, "key > ?")
		args = append(args, after)
	}
	if end != "" {
		conds = append(conds, "key < ?")
		args = append(args, end)
	}

	query := `SELECT key, value FROM world_state`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY key COLLATE BINARY ASC LIMIT ?`
	args = append(args, s.pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	page := make([]ledger.KV, 0, s.pageSize)
	for rows.Next() {
		var kv ledger.KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("scan range row: %w", err)
		}
		page = append(page, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate range: %w", err)
	}
	return page, nil
}

// History yields every modification of key in commit order (seq ASC).
func (s *Store) History(ctx context.Context, key string) iter.Seq2[ledger.Modification, error] {
	return func(yield func(ledger.Modification, error) bool) {
		var after int64
		for {
			page, err := s.historyPage(ctx, key, after)
			if err != nil {
				yield(ledger.Modification{}, err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = page[len(page)-1].Seq
		}
	}
}

func (s *Store) historyPage(ctx context.Context, key string, after int64) ([]ledger.Modification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tx_id, key, value, is_delete, timestamp, submitter
		FROM history
		WHERE key = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, key, after, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("query history %q: %w", key, err)
	}
	defer rows.Close()

	page := make([]ledger.Modification, 0, s.pageSize)
	for rows.Next() {
		m, err := scanModification(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history %q: %w", key, err)
	}
	return page, nil
}

// scanModification scans a history row into a Modification.
func scanModification(rows *sql.Rows) (ledger.Modification, error) {
	var (
		m        ledger.Modification
		isDelete int
		ts       string
	)
	if err := rows.Scan(&m.Seq, &m.TxID, &m.Key, &m.Value, &isDelete, &ts, &m.Submitter); err != nil {
		return ledger.Modification{}, fmt.Errorf("scan history row: %w", err)
	}
	m.IsDelete = isDelete != 0
	if m.IsDelete {
		m.Value = nil
	}

	parsed, err := ledger.ParseTimestamp(ts)
	if err != nil {
		return ledger.Modification{}, fmt.Errorf("parse history timestamp %q: %w", ts, err)
	}
	m.Timestamp = parsed
	return m, nil
}
