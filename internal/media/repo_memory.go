package media

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores assets in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byPath  map[string]Asset
	byOwner map[string][]Asset
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byPath:  make(map[string]Asset),
		byOwner: make(map[string][]Asset),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, asset Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[asset.StoragePath] = asset
	r.byOwner[asset.OwnerID] = append(r.byOwner[asset.OwnerID], asset)
	return nil
}

func (r *MemoryRepo) GetByPath(ctx context.Context, storagePath string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.byPath[storagePath]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return asset, nil
}

// ListByOwner returns assets newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	assets := make([]Asset, len(r.byOwner[ownerID]))
	copy(assets, r.byOwner[ownerID])
	r.mu.RUnlock()

	if offset >= len(assets) {
		return []Asset{}, nil
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	end := len(assets)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return assets[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
