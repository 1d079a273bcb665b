// Package prefixkv implements ledger.Backend over an ordered byte-key engine
// by splitting the keyspace into single-byte prefixed pools.
//
// Pools:
//
//	S + key                  current value of a live key
//	H + key + 0x00 + seq(8)  JSON history entry, seq big endian
//	M + "seq"                last committed seq (8 bytes) + its timestamp
package prefixkv

// Engine is the minimal ordered key-value store a prefix backend needs.
type Engine interface {
	// Get returns nil, nil when key is absent.
	Get(key []byte) ([]byte, error)

	// Scan returns at most n elements with start <= key < limit in key
	// order. Returned slices are owned by the caller.
	Scan(start, limit []byte, n int) ([]Element, error)

	// Write applies ops atomically.
	Write(ops []Op) error

	Close() error
}

// Element is a binary key/value pair.
type Element struct {
	Key   []byte
	Value []byte
}

// Op is one mutation in an atomic write.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Pool prefixes.
const (
	poolState   byte = 'S'
	poolHistory byte = 'H'
	poolMeta    byte = 'M'
)

// pool is one prefixed region of the keyspace.
type pool struct {
	prefix byte
	limit  []byte
}

func newPool(prefix byte) pool {
	return pool{prefix: prefix, limit: []byte{prefix + 1}}
}

var (
	statePool   = newPool(poolState)
	historyPool = newPool(poolHistory)
	metaPool    = newPool(poolMeta)
)

// prefixKey prepends the pool prefix onto key.
func (p pool) prefixKey(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = p.prefix
	return append(prefixedKey, key...)
}

// bounds returns the engine range covering pool keys in [start, end).
// Empty start or end leaves that side at the pool boundary.
func (p pool) bounds(start, end string) ([]byte, []byte) {
	lo := p.prefixKey([]byte(start))
	hi := p.limit
	if end != "" {
		hi = p.prefixKey([]byte(end))
	}
	return lo, hi
}

// successor returns the smallest key strictly greater than key.
func successor(key []byte) []byte {
	next := make([]byte, len(key)+1)
	copy(next, key)
	return next
}
