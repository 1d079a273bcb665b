package prefixkv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/roach88/tradeledger/internal/ledger"
)

// DefaultPageSize is the number of elements Range and History read per scan.
const DefaultPageSize = 256

var metaSeqKey = metaPool.prefixKey([]byte("seq"))

// Store is a ledger.Backend over an Engine.
type Store struct {
	engine   Engine
	mu       sync.Mutex // serializes writers
	clock    *ledger.Clock
	stamper  *ledger.Stamper
	pageSize int
	logger   *slog.Logger
}

var _ ledger.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the wall clock used to timestamp modifications.
func WithClock(now ledger.WallClock) Option {
	return func(s *Store) { s.stamper = ledger.NewStamper(now) }
}

// WithPageSize sets how many elements each scan reads.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger for store events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps engine and restores the commit sequence from its meta pool.
// The Store owns engine and closes it on Close.
func New(engine Engine, opts ...Option) (*Store, error) {
	s := &Store{
		engine:   engine,
		stamper:  ledger.NewStamper(nil),
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	seq, err := s.restoreMeta()
	if err != nil {
		return nil, err
	}
	s.clock = ledger.NewClockAt(seq)
	return s, nil
}

// historyEntry is the JSON value stored in the history pool.
type historyEntry struct {
	TxID      string `json:"tx_id"`
	Value     []byte `json:"value,omitempty"`
	IsDelete  bool   `json:"is_delete"`
	Timestamp string `json:"timestamp"`
	Submitter string `json:"submitter"`
}

// restoreMeta reads the last committed seq and timestamp.
func (s *Store) restoreMeta() (int64, error) {
	buffer, err := s.engine.Get(metaSeqKey)
	if err != nil {
		return 0, fmt.Errorf("read meta: %w", err)
	}
	if buffer == nil {
		return 0, nil
	}
	if len(buffer) < 8 {
		return 0, fmt.Errorf("read meta: truncated record %x", buffer)
	}
	seq := int64(binary.BigEndian.Uint64(buffer[:8]))
	if len(buffer) > 8 {
		last, err := ledger.ParseTimestamp(string(buffer[8:]))
		if err != nil {
			return 0, fmt.Errorf("read meta timestamp: %w", err)
		}
		s.stamper.Observe(last)
	}
	return seq, nil
}

// Close closes the engine.
func (s *Store) Close() error {
	return s.engine.Close()
}

// Get returns the current value of key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.engine.Get(statePool.prefixKey([]byte(key)))
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

// Put writes value as the current value of key and appends a history entry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ledger.ValidateKey(key); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stateKey := statePool.prefixKey([]byte(key))
	if err := s.commit(ctx, key, value, false, Op{Key: stateKey, Value: value}); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete tombstones key. Deleting a key that is not live records nothing.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ledger.ValidateKey(key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stateKey := statePool.prefixKey([]byte(key))
	current, err := s.engine.Get(stateKey)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if current == nil {
		return nil
	}

	if err := s.commit(ctx, key, nil, true, Op{Key: stateKey, Delete: true}); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// commit writes the state op together with its history entry and the meta
// record in one engine batch. Caller holds s.mu.
func (s *Store) commit(ctx context.Context, key string, value []byte, isDelete bool, state Op) error {
	seq := s.clock.Next()
	ts := ledger.FormatTimestamp(s.stamper.Stamp())

	entry, err := json.Marshal(historyEntry{
		TxID:      ledger.TxID(seq, key, value, isDelete),
		Value:     value,
		IsDelete:  isDelete,
		Timestamp: ts,
		Submitter: ledger.SubmitterFrom(ctx),
	})
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	meta := binary.BigEndian.AppendUint64(nil, uint64(seq))
	meta = append(meta, ts...)

	ops := []Op{
		state,
		{Key: historyKey(key, seq), Value: entry},
		{Key: metaSeqKey, Value: meta},
	}
	if err := s.engine.Write(ops); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	s.logger.Debug("commit", "key", key, "seq", seq, "delete", isDelete)
	return nil
}

// historyKey builds H + key + 0x00 + seq.
func historyKey(key string, seq int64) []byte {
	k := make([]byte, 0, len(key)+9)
	k = append(k, key...)
	k = append(k, 0x00)
	k = binary.BigEndian.AppendUint64(k, uint64(seq))
	return historyPool.prefixKey(k)
}

// Range yields live keys in [start, end) in byte order. Each page is read
// before its elements are yielded, so no engine iterator outlives a scan.
func (s *Store) Range(ctx context.Context, start, end string) iter.Seq2[ledger.KV, error] {
	return func(yield func(ledger.KV, error) bool) {
		lo, hi := statePool.bounds(start, end)
		for {
			if err := ctx.Err(); err != nil {
				yield(ledger.KV{}, err)
				return
			}
			page, err := s.engine.Scan(lo, hi, s.pageSize)
			if err != nil {
				yield(ledger.KV{}, fmt.Errorf("scan state: %w", err))
				return
			}
			for _, e := range page {
				if !yield(ledger.KV{Key: string(e.Key[1:]), Value: e.Value}, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			lo = successor(page[len(page)-1].Key)
		}
	}
}

// History yields every modification of key in commit order.
func (s *Store) History(ctx context.Context, key string) iter.Seq2[ledger.Modification, error] {
	return func(yield func(ledger.Modification, error) bool) {
		prefix := append([]byte(key), 0x00)
		lo := historyPool.prefixKey(prefix)
		hi := historyPool.prefixKey(append([]byte(key), 0x01))
		for {
			if err := ctx.Err(); err != nil {
				yield(ledger.Modification{}, err)
				return
			}
			page, err := s.engine.Scan(lo, hi, s.pageSize)
			if err != nil {
				yield(ledger.Modification{}, fmt.Errorf("scan history %q: %w", key, err))
				return
			}
			for _, e := range page {
				m, err := decodeHistory(key, e)
				if !yield(m, err) || err != nil {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			lo = successor(page[len(page)-1].Key)
		}
	}
}

func decodeHistory(key string, e Element) (ledger.Modification, error) {
	if len(e.Key) < 8 {
		return ledger.Modification{}, fmt.Errorf("history key %x truncated", e.Key)
	}
	var entry historyEntry
	if err := json.Unmarshal(e.Value, &entry); err != nil {
		return ledger.Modification{}, fmt.Errorf("decode history entry %x: %w", e.Key, err)
	}
	ts, err := ledger.ParseTimestamp(entry.Timestamp)
	if err != nil {
		return ledger.Modification{}, fmt.Errorf("parse history timestamp %q: %w", entry.Timestamp, err)
	}

	m := ledger.Modification{
		Seq:       int64(binary.BigEndian.Uint64(e.Key[len(e.Key)-8:])),
		TxID:      entry.TxID,
		Key:       key,
		Value:     entry.Value,
		IsDelete:  entry.IsDelete,
		Timestamp: ts,
		Submitter: entry.Submitter,
	}
	if m.IsDelete {
		m.Value = nil
	} else if m.Value == nil {
		m.Value = []byte{}
	}
	return m, nil
}
