// Package repository implements the asset and process operations over a
// ledger.Backend.
//
// Every mutating operation is a read-modify-write of a single key. The
// backend only guarantees single-key put atomicity, so the repositories
// serialize operations on the same key with a keyed mutex: two concurrent
// AddItemToProcess calls on one process never lose an update, and two
// concurrent creates of one ID yield exactly one AlreadyExists.
//
// Operations fail fast. An operation that returns an error has not written
// anything.
//
// Scans (GetAllAssets, FindAssetByFileHash, ListProcessesByStage, ...) walk
// the full keyspace in key order and filter on the docType discriminator. A
// record that does not decode is logged and skipped; it never aborts the scan.
package repository
