// Package ledger defines the versioned key-value contract the document
// repositories are built on.
//
// A ledger keeps, per key, the current value plus the full ordered history of
// every write and tombstone that key has seen. Backends in internal/store
// implement Backend; repositories never touch a concrete engine.
//
// # Ordering
//
//   - Range yields live keys in bytewise key order.
//   - History yields a key's modifications in commit order, oldest first.
//   - Every modification carries a backend-wide commit sequence (Seq) handed
//     out by a logical Clock, and a wall-clock timestamp that never moves
//     backwards within one open backend.
//
// # Iteration
//
// Range and History return iter.Seq2 values. Each range-over-func loop
// re-reads the backend, so a sequence can be iterated more than once. Cursors
// are released when the loop finishes or breaks early.
//
// # Identity
//
// The submitting identity rides on the context (WithSubmitter). Backends record
// it on every modification; it is opaque to the ledger.
package ledger
