package analysis

import (
	"encoding/json"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Status labels the model commonly uses in the traceability matrix.
// The matrix accepts any string; these are only the observed values.
const (
	StatusImplemented          = "IMPLEMENTED"
	StatusPartiallyImplemented = "PARTIALLY_IMPLEMENTED"
	StatusNotImplemented       = "NOT_IMPLEMENTED"
)

// Result is the fixed schema every model response is coerced into.
type Result struct {
	Summary             string            `json:"summary"`
	TraceabilityMatrix  map[string]string `json:"traceability_matrix"`
	MissingRequirements []string          `json:"missing_requirements"`
	Suggestions         []string          `json:"suggestions"`
	DetailedAnalysis    string            `json:"detailed_analysis"`

	// passthrough holds unknown keys and known keys whose JSON type did not
	// match the schema. They are re-emitted verbatim on marshal.
	passthrough map[string]json.RawMessage
}

// Requirement is one line item extracted from the requirements document.
type Requirement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SourceFile is one file collected from the source directory.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Analysis is one verification run as stored for retrieval and download.
type Analysis struct {
	ID               AnalysisID `json:"id"`
	Model            string     `json:"model"`
	Provider         string     `json:"provider"`
	Fallback         bool       `json:"fallback"`
	FallbackReason   string     `json:"fallback_reason,omitempty"`
	RequirementCount int        `json:"requirement_count"`
	SourceFileCount  int        `json:"source_file_count"`
	Result           Result     `json:"result"`
	Report           string     `json:"report"`
	ReportURLs       []string   `json:"report_urls,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Analysis `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// NewPaginatedResult fills in the page arithmetic.
func NewPaginatedResult(data []*Analysis, page, pageSize int, total int64) PaginatedResult {
	if data == nil {
		data = []*Analysis{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginatedResult{Data: data, Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}
