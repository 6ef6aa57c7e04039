package media

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const assetColumns = `id, owner_id, storage_path, public_url, media_type, mime_type, size_bytes,
       original_filename, storage_provider, created_at`

// Create inserts a new asset.
func (r *PGRepo) Create(ctx context.Context, asset Asset) error {
	const query = `
INSERT INTO media_assets (
    id, owner_id, storage_path, public_url, media_type, mime_type, size_bytes,
    original_filename, storage_provider, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	provider := asset.StorageProvider
	if provider == "" {
		provider = "local"
	}
	_, err := r.DB.ExecContext(ctx, query,
		asset.ID,
		asset.OwnerID,
		asset.StoragePath,
		asset.PublicURL,
		string(asset.Category),
		asset.MimeType,
		asset.SizeBytes,
		asset.OriginalFilename,
		provider,
		asset.CreatedAt,
	)
	return err
}

// GetByPath returns the asset stored at storagePath.
func (r *PGRepo) GetByPath(ctx context.Context, storagePath string) (Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets WHERE storage_path = $1 LIMIT 1`
	asset, err := scanAsset(r.DB.QueryRowContext(ctx, query, storagePath))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, err
	}
	return asset, nil
}

// ListByOwner lists assets for an owner ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Asset, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + assetColumns + `
FROM media_assets
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (Asset, error) {
	var a Asset
	var category string
	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.StoragePath,
		&a.PublicURL,
		&category,
		&a.MimeType,
		&a.SizeBytes,
		&a.OriginalFilename,
		&a.StorageProvider,
		&a.CreatedAt,
	)
	a.Category = Category(category)
	return a, err
}

var _ Repo = (*PGRepo)(nil)
