package prefixkv

import (
	"bytes"
	"errors"
	"sort"
	"sync"
)

// memEngine is an in-memory Engine for tests.
type memEngine struct {
	mu     sync.Mutex
	data   map[string][]byte
	failAt int // fail the nth Write when > 0
	writes int
	closed bool
}

func newMemEngine() *memEngine {
	return &memEngine{data: make(map[string][]byte)}
}

var errInjected = errors.New("injected write failure")

func (m *memEngine) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (m *memEngine) Scan(start, limit []byte, n int) ([]Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if k >= string(start) && k < string(limit) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]Element, len(keys))
	for i, k := range keys {
		out[i] = Element{Key: []byte(k), Value: append([]byte{}, m.data[k]...)}
	}
	return out, nil
}

func (m *memEngine) Write(ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failAt > 0 && m.writes == m.failAt {
		return errInjected
	}
	for _, op := range ops {
		if op.Delete {
			delete(m.data, string(op.Key))
			continue
		}
		m.data[string(op.Key)] = append([]byte{}, op.Value...)
	}
	return nil
}

func (m *memEngine) Close() error {
	m.closed = true
	return nil
}
