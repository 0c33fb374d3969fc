package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/db/record"
)

type AnalysisRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db, now: time.Now}
}

func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS requirement_analyses (
  id                TEXT        PRIMARY KEY,
  model             TEXT        NOT NULL,
  provider          TEXT        NOT NULL,
  fallback          BOOLEAN     NOT NULL DEFAULT FALSE,
  fallback_reason   TEXT        NOT NULL DEFAULT '',
  requirement_count INTEGER     NOT NULL DEFAULT 0,
  source_file_count INTEGER     NOT NULL DEFAULT 0,
  result_json       JSONB       NOT NULL,
  report            TEXT        NOT NULL,
  report_urls       JSONB       NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requirement_analyses_created ON requirement_analyses (created_at DESC);
`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate requirement_analyses: %w", err)
	}
	return nil
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO requirement_analyses
(` + record.Columns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  model=EXCLUDED.model,
  provider=EXCLUDED.provider,
  fallback=EXCLUDED.fallback,
  fallback_reason=EXCLUDED.fallback_reason,
  requirement_count=EXCLUDED.requirement_count,
  source_file_count=EXCLUDED.source_file_count,
  result_json=EXCLUDED.result_json,
  report=EXCLUDED.report,
  report_urls=EXCLUDED.report_urls;
`
	row, err := record.FromAnalysis(a, r.now())
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, row.Args()...); err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + record.Columns + `
FROM requirement_analyses
WHERE id=$1 LIMIT 1;
`
	var row record.Row
	if err := r.db.QueryRowContext(ctx, q, string(id)).Scan(row.Dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.Analysis()
}

// Paginate returns a page of analyses ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int, f domain.ListFilter) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	where, args := whereClause(f)
	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM requirement_analyses%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		record.Columns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		var row record.Row
		if err := rows.Scan(row.Dest()...); err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		a, err := row.Analysis()
		if err != nil {
			return domain.PaginatedResult{}, err
		}
		out = append(out, a)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requirement_analyses"+where, args[:n]...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}
	return domain.NewPaginatedResult(out, page, pageSize, total), nil
}

func whereClause(f domain.ListFilter) (string, []any) {
	var (
		clause string
		args   []any
	)
	add := func(col, v string) {
		if v == "" {
			return
		}
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		args = append(args, v)
		clause += fmt.Sprintf("%s = $%d", col, len(args))
	}
	add("provider", f.Provider)
	add("model", f.Model)
	return clause, args
}
