package analysis

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when no analysis has the given id.
var ErrNotFound = errors.New("analysis not found")

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	Paginate(ctx context.Context, page, pageSize int, f ListFilter) (PaginatedResult, error)
}

// ListFilter narrows Paginate. Empty fields match everything.
type ListFilter struct {
	Provider string
	Model    string
}

// ReportStore port for publishing exported report files
type ReportStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
