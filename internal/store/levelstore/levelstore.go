// Package levelstore opens a ledger backend on LevelDB.
package levelstore

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/roach88/tradeledger/internal/store/prefixkv"
)

// Open opens (or creates) a LevelDB database in dir and wraps it as a
// ledger backend. An empty dir opens an in-memory database.
func Open(dir string, opts ...prefixkv.Option) (*prefixkv.Store, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}

	var (
		db  *leveldb.DB
		err error
	)
	if dir == "" {
		db, err = leveldb.Open(ldb_storage.NewMemStorage(), opt)
	} else {
		db, err = leveldb.OpenFile(dir, opt)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", dir, err)
	}

	s, err := prefixkv.New(&engine{db: db}, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

type engine struct {
	db *leveldb.DB
}

func (e *engine) Get(key []byte) ([]byte, error) {
	value, err := e.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (e *engine) Scan(start, limit []byte, n int) ([]prefixkv.Element, error) {
	iter := e.db.NewIterator(&ldb_util.Range{Start: start, Limit: limit}, nil)

	results := make([]prefixkv.Element, 0, n)
	for len(results) < n && iter.Next() {
		// contents of the returned slices are only valid until the next
		// call to Next
		key := iter.Key()
		value := iter.Value()

		dataKey := make([]byte, len(key))
		copy(dataKey, key)

		dataValue := make([]byte, len(value))
		copy(dataValue, value)

		results = append(results, prefixkv.Element{Key: dataKey, Value: dataValue})
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *engine) Write(ops []prefixkv.Op) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
		} else {
			batch.Put(op.Key, op.Value)
		}
	}
	return e.db.Write(batch, &ldb_opt.WriteOptions{Sync: true})
}

func (e *engine) Close() error {
	return e.db.Close()
}
