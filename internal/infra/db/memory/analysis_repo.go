package memory

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

const DefaultSize = 256

// AnalysisRepository keeps the most recently used analyses in process.
// Older entries are evicted once Size is reached.
type AnalysisRepository struct {
	cache *lru.Cache[domain.AnalysisID, domain.Analysis]
}

func NewAnalysisRepository(size int) (*AnalysisRepository, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[domain.AnalysisID, domain.Analysis](size)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	return &AnalysisRepository{cache: c}, nil
}

func (r *AnalysisRepository) Save(_ context.Context, a *domain.Analysis) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("memory: analysis id required")
	}
	r.cache.Add(a.ID, clone(a))
	return nil
}

func (r *AnalysisRepository) Get(_ context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	a, ok := r.cache.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := clone(&a)
	return &out, nil
}

// Paginate orders by created_at desc, id desc like the SQL backends.
func (r *AnalysisRepository) Paginate(_ context.Context, page, pageSize int, f domain.ListFilter) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var all []domain.Analysis
	for _, a := range r.cache.Values() {
		if f.Provider != "" && a.Provider != f.Provider {
			continue
		}
		if f.Model != "" && a.Model != f.Model {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start := (page - 1) * pageSize
	var data []*domain.Analysis
	for i := start; i < len(all) && i < start+pageSize; i++ {
		a := clone(&all[i])
		data = append(data, &a)
	}
	return domain.NewPaginatedResult(data, page, pageSize, int64(len(all))), nil
}

// Len is the number of cached analyses.
func (r *AnalysisRepository) Len() int { return r.cache.Len() }

func clone(a *domain.Analysis) domain.Analysis {
	out := *a
	out.Result = a.Result.Clone()
	if a.ReportURLs != nil {
		out.ReportURLs = append([]string(nil), a.ReportURLs...)
	}
	return out
}
