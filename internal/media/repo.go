package media

import "context"

// Repo defines persistence operations for media assets.
type Repo interface {
	Create(ctx context.Context, asset Asset) error
	GetByPath(ctx context.Context, storagePath string) (Asset, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Asset, error)
}
