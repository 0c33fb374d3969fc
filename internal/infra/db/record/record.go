package record

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

// Columns in the order used by Args and Dest.
const Columns = "id, model, provider, fallback, fallback_reason, requirement_count, source_file_count, result_json, report, report_urls, created_at"

// MaxModelLen bounds the stored model name in characters. Unknown names are
// accepted (they fall back to the mock) and may be arbitrarily long.
const MaxModelLen = 255

// Row is the column form of an Analysis in requirement_analyses.
type Row struct {
	ID               string
	Model            string
	Provider         string
	Fallback         bool
	FallbackReason   string
	RequirementCount int
	SourceFileCount  int
	ResultJSON       []byte
	Report           string
	ReportURLs       []byte
	CreatedAt        time.Time
}

// FromAnalysis encodes a for storage. A zero CreatedAt becomes now.
func FromAnalysis(a *analysis.Analysis, now time.Time) (Row, error) {
	result, err := json.Marshal(a.Result)
	if err != nil {
		return Row{}, fmt.Errorf("encode result: %w", err)
	}
	urls := a.ReportURLs
	if urls == nil {
		urls = []string{}
	}
	urlJSON, err := json.Marshal(urls)
	if err != nil {
		return Row{}, fmt.Errorf("encode report urls: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}
	return Row{
		ID:               string(a.ID),
		Model:            truncate(a.Model, MaxModelLen),
		Provider:         a.Provider,
		Fallback:         a.Fallback,
		FallbackReason:   a.FallbackReason,
		RequirementCount: a.RequirementCount,
		SourceFileCount:  a.SourceFileCount,
		ResultJSON:       result,
		Report:           a.Report,
		ReportURLs:       urlJSON,
		CreatedAt:        created.UTC(),
	}, nil
}

func (r Row) Args() []any {
	return []any{
		r.ID, r.Model, r.Provider, r.Fallback, r.FallbackReason,
		r.RequirementCount, r.SourceFileCount, string(r.ResultJSON),
		r.Report, string(r.ReportURLs), r.CreatedAt,
	}
}

// Dest returns scan targets matching Columns.
func (r *Row) Dest() []any {
	return []any{
		&r.ID, &r.Model, &r.Provider, &r.Fallback, &r.FallbackReason,
		&r.RequirementCount, &r.SourceFileCount, &r.ResultJSON,
		&r.Report, &r.ReportURLs, &r.CreatedAt,
	}
}

// Analysis decodes the row. Stored results go through the normalizer so a
// hand-edited row still yields a complete result.
func (r Row) Analysis() (*analysis.Analysis, error) {
	a := &analysis.Analysis{
		ID:               analysis.AnalysisID(r.ID),
		Model:            r.Model,
		Provider:         r.Provider,
		Fallback:         r.Fallback,
		FallbackReason:   r.FallbackReason,
		RequirementCount: r.RequirementCount,
		SourceFileCount:  r.SourceFileCount,
		Result:           analysis.Normalize(string(r.ResultJSON)),
		Report:           r.Report,
		CreatedAt:        r.CreatedAt,
	}
	if len(r.ReportURLs) > 0 {
		if err := json.Unmarshal(r.ReportURLs, &a.ReportURLs); err != nil {
			return nil, fmt.Errorf("decode report urls: %w", err)
		}
	}
	return a, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
