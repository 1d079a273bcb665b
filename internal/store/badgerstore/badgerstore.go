// Package badgerstore opens a ledger backend on BadgerDB.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/tradeledger/internal/store/prefixkv"
)

// Open opens (or creates) a Badger database in dir and wraps it as a ledger
// backend. An empty dir opens an in-memory database.
func Open(dir string, logger *slog.Logger, opts ...prefixkv.Option) (*prefixkv.Store, error) {
	options := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger})
	if dir == "" {
		options = options.WithInMemory(true)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}

	s, err := prefixkv.New(&engine{db: db}, append([]prefixkv.Option{prefixkv.WithLogger(logger)}, opts...)...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

type engine struct {
	db *badger.DB
}

func (e *engine) Get(key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		if value == nil {
			value = []byte{}
		}
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (e *engine) Scan(start, limit []byte, n int) ([]prefixkv.Element, error) {
	results := make([]prefixkv.Element, 0, n)
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = n
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.Valid() && len(results) < n; it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key(), limit) >= 0 {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if value == nil {
				value = []byte{}
			}
			results = append(results, prefixkv.Element{Key: item.KeyCopy(nil), Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (e *engine) Write(ops []prefixkv.Op) error {
	return e.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			if op.Delete {
				err = txn.Delete(op.Key)
			} else {
				err = txn.Set(op.Key, op.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *engine) Close() error {
	return e.db.Close()
}

// badgerLogger routes Badger's internal logging to slog. Badger's info
// chatter goes to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) log(level slog.Level, format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log(slog.LevelError, format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log(slog.LevelWarn, format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log(slog.LevelDebug, format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log(slog.LevelDebug, format, args...) }
