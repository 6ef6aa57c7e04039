package analyses

import "context"

// Repo defines persistence operations for reports. Reports are written
// once and never updated.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, reportID string) (Report, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
