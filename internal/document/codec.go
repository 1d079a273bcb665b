package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/tradeledger/internal/fault"
)

// Encode serializes doc for storage, stamping its discriminator.
// A *Raw encodes to its bytes unchanged.
func Encode(doc Document) ([]byte, error) {
	switch d := doc.(type) {
	case *Asset:
		d.DocType = DocTypeAsset
		return json.Marshal(d)
	case *Process:
		d.DocType = DocTypeProcess
		if d.ItemsList == nil {
			d.ItemsList = []Item{}
		}
		if d.Assets == nil {
			d.Assets = []string{}
		}
		return json.Marshal(d)
	case *Raw:
		return bytes.Clone(d.Bytes), nil
	default:
		return nil, fmt.Errorf("encode: unsupported document %T", doc)
	}
}

type envelope struct {
	DocType DocType `json:"docType"`
}

// Decode parses stored bytes.
//
// Bytes that are not a JSON object, or a known docType whose fields do not
// decode, yield a *Raw together with an error matching fault.ErrCorruptRecord.
// A well-formed object with an unknown or missing docType yields a *Raw and no
// error.
func Decode(b []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return &Raw{Bytes: bytes.Clone(b)}, fault.NewCorruptRecord("", err)
	}

	switch env.DocType {
	case DocTypeAsset:
		var a Asset
		if err := json.Unmarshal(b, &a); err != nil {
			return &Raw{DocType: env.DocType, Bytes: bytes.Clone(b)}, fault.NewCorruptRecord("", err)
		}
		return &a, nil
	case DocTypeProcess:
		var p Process
		if err := json.Unmarshal(b, &p); err != nil {
			return &Raw{DocType: env.DocType, Bytes: bytes.Clone(b)}, fault.NewCorruptRecord("", err)
		}
		return &p, nil
	default:
		return &Raw{DocType: env.DocType, Bytes: bytes.Clone(b)}, nil
	}
}

// HashContent returns the hex SHA-256 of everything read from r.
func HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
