package repository

import (
	"context"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/fault"
)

const kindAsset = "asset"

// AssetRepository manages Asset documents.
type AssetRepository struct {
	l *Ledger
}

// CreateAsset registers a new asset. It fails with AlreadyExists when id
// holds any live document, asset or process.
func (r *AssetRepository) CreateAsset(ctx context.Context, id, fileName, fileHash, createdBy string) (*document.Asset, error) {
	unlock := r.l.locks.Lock(id)
	defer unlock()

	exists, err := r.l.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fault.NewAlreadyExists(kindAsset, id)
	}

	asset := &document.Asset{
		ID:           id,
		FileHash:     fileHash,
		FileName:     fileName,
		CreatedBy:    createdBy,
		CreationDate: r.l.timestamp(),
	}
	if err := r.l.store(ctx, id, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// ReadAsset returns the asset stored under id. A missing key, or a key
// holding a non-asset document, is NotFound.
func (r *AssetRepository) ReadAsset(ctx context.Context, id string) (*document.Asset, error) {
	doc, ok, err := r.l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.NewNotFound(kindAsset, id)
	}
	asset, isAsset := doc.(*document.Asset)
	if !isAsset {
		return nil, fault.NewNotFound(kindAsset, id)
	}
	return asset, nil
}

// AssetExists reports whether id holds a live document of any docType.
func (r *AssetRepository) AssetExists(ctx context.Context, id string) (bool, error) {
	return r.l.exists(ctx, id)
}

// FindAssetByFileHash returns the first asset in key order whose FileHash
// equals hash.
func (r *AssetRepository) FindAssetByFileHash(ctx context.Context, hash string) (*document.Asset, error) {
	for doc, err := range r.l.documents(ctx) {
		if err != nil {
			return nil, err
		}
		if asset, ok := doc.(*document.Asset); ok && asset.FileHash == hash {
			return asset, nil
		}
	}
	return nil, &fault.Error{
		Code:    fault.CodeNotFound,
		Message: "no asset with file hash " + hash,
		Details: map[string]string{"file_hash": hash},
	}
}

// DeleteAsset tombstones the document under id. Processes linking it are
// not touched.
func (r *AssetRepository) DeleteAsset(ctx context.Context, id string) error {
	unlock := r.l.locks.Lock(id)
	defer unlock()

	exists, err := r.l.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fault.NewNotFound(kindAsset, id)
	}
	return r.l.remove(ctx, id)
}

// GetAllAssets returns every asset in key order.
func (r *AssetRepository) GetAllAssets(ctx context.Context) ([]*document.Asset, error) {
	assets := []*document.Asset{}
	for doc, err := range r.l.documents(ctx) {
		if err != nil {
			return nil, err
		}
		if asset, ok := doc.(*document.Asset); ok {
			assets = append(assets, asset)
		}
	}
	return assets, nil
}
