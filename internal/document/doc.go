// Package document defines the records stored in the ledger and their JSON
// encoding.
//
// Every stored value is a JSON object tagged with a "docType" discriminator.
// Decode turns stored bytes into one of the Document variants:
//
//   - *Asset for docType "asset"
//   - *Process for docType "process"
//   - *Raw for anything else, including bytes that are not a JSON object
//
// Field names follow the ledger's wire shape (ID, FileHash, ItemsList, itemID,
// ...) so records written by other clients of the same ledger decode.
package document
