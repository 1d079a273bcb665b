package repository

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
	"github.com/roach88/tradeledger/internal/ledger"
)

// Ledger binds the asset and process repositories to one backend.
type Ledger struct {
	backend ledger.Backend
	now     func() time.Time
	logger  *slog.Logger
	locks   *keyLocks

	assets    *AssetRepository
	processes *ProcessRepository
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used for CreationDate and CreatedDate.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for skipped records and writes.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Ledger over backend. The caller keeps ownership of backend.
func New(backend ledger.Backend, opts ...Option) *Ledger {
	l := &Ledger{
		backend: backend,
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:   newKeyLocks(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.assets = &AssetRepository{l: l}
	l.processes = &ProcessRepository{l: l}
	return l
}

// Assets returns the asset repository.
func (l *Ledger) Assets() *AssetRepository { return l.assets }

// Processes returns the process repository.
func (l *Ledger) Processes() *ProcessRepository { return l.processes }

// Backend returns the underlying backend.
func (l *Ledger) Backend() ledger.Backend { return l.backend }

// exists reports whether key holds a live value of any docType.
func (l *Ledger) exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return ok, nil
}

// load reads and decodes key. ok is false when the key is absent.
func (l *Ledger) load(ctx context.Context, key string) (document.Document, bool, error) {
	value, ok, err := l.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	doc, err := document.Decode(value)
	if fe, ok := err.(*fault.Error); ok {
		fe.Key = key
	}
	return doc, true, err
}

// store encodes doc and writes it under key.
func (l *Ledger) store(ctx context.Context, key string, doc document.Document) error {
	value, err := document.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.backend.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	l.logger.Debug("document written", "key", key, "doc_type", doc.Kind(), "submitter", ledger.SubmitterFrom(ctx))
	return nil
}

// remove tombstones key.
func (l *Ledger) remove(ctx context.Context, key string) error {
	if err := l.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	l.logger.Debug("document deleted", "key", key, "submitter", ledger.SubmitterFrom(ctx))
	return nil
}

// documents yields every decodable document in key order. Records that fail
// to decode are logged and skipped.
func (l *Ledger) documents(ctx context.Context) iter.Seq2[document.Document, error] {
	return func(yield func(document.Document, error) bool) {
		for kv, err := range l.backend.Range(ctx, "", "") {
			if err != nil {
				yield(nil, fmt.Errorf("scan ledger: %w", err))
				return
			}
			doc, err := document.Decode(kv.Value)
			if err != nil {
				l.logger.Warn("skipping corrupt record", "key", kv.Key, "error", err)
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (l *Ledger) timestamp() string {
	return document.FormatDate(l.now())
}
