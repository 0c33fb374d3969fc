package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

var columns = []string{
	"id", "model", "provider", "fallback", "fallback_reason", "requirement_count",
	"source_file_count", "result_json", "report", "report_urls", "created_at",
}

func newRepo(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAnalysisRepository(db), mock
}

func TestAnalysisRepositorySaveUpserts(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &domain.Analysis{ID: "a-1", Model: "mock", Provider: "mock", CreatedAt: time.Now()}
	require.NoError(t, repo.Save(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisRepositorySaveError(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec("INSERT INTO requirement_analyses").WillReturnError(errors.New("conn reset"))

	err := repo.Save(context.Background(), &domain.Analysis{ID: "a-1"})
	assert.ErrorContains(t, err, "conn reset")
}

func TestAnalysisRepositoryGetNotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=$1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalysisRepositoryPaginateWithFilters(t *testing.T) {
	repo, mock := newRepo(t)
	created := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE provider = $1 AND model = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
		WithArgs("ollama", "local llama 3", 10, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b", "local llama 3", "ollama", false, "", 2, 3, `{"summary":"two"}`, "r", `[]`, created).
			AddRow("a", "local llama 3", "ollama", false, "", 1, 1, `not json`, "r", `[]`, created))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM requirement_analyses WHERE provider = $1 AND model = $2")).
		WithArgs("ollama", "local llama 3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	got, err := repo.Paginate(context.Background(), 0, 10, domain.ListFilter{Provider: "ollama", Model: "local llama 3"})
	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, "two", got.Data[0].Result.Summary)
	assert.Equal(t, domain.DegradedSummary, got.Data[1].Result.Summary)
	assert.Equal(t, 1, got.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), "sqlite", "file::memory:")
	assert.Error(t, err)
}
