package mysql

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

// Migrate creates the requirement_analyses table when missing.
func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS requirement_analyses (
  id                VARCHAR(36)  NOT NULL PRIMARY KEY,
  model             VARCHAR(255) NOT NULL,
  provider          VARCHAR(32)  NOT NULL,
  fallback          TINYINT(1)   NOT NULL DEFAULT 0,
  fallback_reason   VARCHAR(64)  NOT NULL DEFAULT '',
  requirement_count INT          NOT NULL DEFAULT 0,
  source_file_count INT          NOT NULL DEFAULT 0,
  result_json       JSON         NOT NULL,
  report            LONGTEXT     NOT NULL,
  report_urls       JSON         NOT NULL,
  created_at        DATETIME(6)  NOT NULL,
  INDEX idx_requirement_analyses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate requirement_analyses: %w", err)
	}
	return nil
}

// Save insert/update analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO requirement_analyses
(` + record.Columns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  model=VALUES(model), provider=VALUES(provider), fallback=VALUES(fallback),
  fallback_reason=VALUES(fallback_reason), requirement_count=VALUES(requirement_count),
  source_file_count=VALUES(source_file_count), result_json=VALUES(result_json),
  report=VALUES(report), report_urls=VALUES(report_urls);
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
WHERE id=? LIMIT 1;
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
	query := "SELECT " + record.Columns + " FROM requirement_analyses" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
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
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requirement_analyses"+where, args...).Scan(&total); err != nil {
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
		clause += col + " = ?"
		args = append(args, v)
	}
	add("provider", f.Provider)
	add("model", f.Model)
	return clause, args
}
