package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DomainTx separates transaction id hashes from any other hash in the system.
// The version suffix allows a future algorithm change.
const DomainTx = "tradeledger/tx/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TxID computes the transaction id of a modification.
//
// The id depends only on the commit sequence, the key and the written bytes,
// so replaying the same writes into an empty backend reproduces the same ids.
func TxID(seq int64, key string, value []byte, isDelete bool) string {
	buf := make([]byte, 0, 8+len(key)+1+1+len(value))
	buf = binary.BigEndian.AppendUint64(buf, uint64(seq))
	buf = append(buf, key...)
	buf = append(buf, 0x00)
	if isDelete {
		buf = append(buf, 'D')
	} else {
		buf = append(buf, 'P')
	}
	buf = append(buf, value...)
	return hashWithDomain(DomainTx, buf)
}
