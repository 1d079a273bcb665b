// Package store provides the SQLite-backed ledger backend.
//
// The store keeps two tables:
//   - world_state: the current value of every live key
//   - history: an append-only log of every put and tombstone, one row per
//     modification, keyed by commit sequence
//
// # Critical Patterns
//
// Single-Key Atomicity
//   - A put or delete writes its history row and its world_state change in
//     one SQL transaction
//   - Writers are serialized; seq is MAX(seq)+1 inside that transaction
//
// Deterministic Query Results
//   - Range orders by key COLLATE BINARY (bytewise)
//   - History orders by seq ASC
//
// Cursor-Free Iteration
//   - Range and History read in pages and close each result set before
//     yielding, so the single connection is free while callers run and nested
//     store calls inside a loop do not deadlock
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Transaction ids are computed by ledger.TxID.
package store
