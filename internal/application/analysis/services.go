package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/reqverify/internal/application"
	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/prompt"
	"github.com/bryanwahyu/reqverify/internal/infra/docs"
	"github.com/bryanwahyu/reqverify/internal/infra/report"
	"github.com/bryanwahyu/reqverify/internal/infra/source"
	"github.com/bryanwahyu/reqverify/internal/metrics"
)

var (
	// ErrInvalidInput wraps problems with the caller's document or directory.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBusy is returned when another analysis is still running.
	ErrBusy = errors.New("an analysis is already running")

	errUnsupported = errors.New("unsupported provider")
)

// Service implements the verification use-cases.
type Service struct {
	Selector  *Selector
	Repo      domain.Repository
	Reports   domain.ReportStore // optional
	Clock     application.Clock
	Log       *slog.Logger
	OutputDir string
	Sources   source.Options

	running sync.Mutex
}

// RunCommand is one end-to-end verification request.
type RunCommand struct {
	Requirements []byte // .docx content
	SourceDir    string
	Model        string
	APIKey       string
}

// Run parses the inputs, queries the selected model, exports the report and
// stores the analysis. Model failures never fail the run; only bad input,
// export and persistence errors do.
func (s *Service) Run(ctx context.Context, cmd RunCommand) (*domain.Analysis, error) {
	if len(cmd.Requirements) == 0 {
		return nil, fmt.Errorf("%w: requirements document is empty", ErrInvalidInput)
	}
	if cmd.SourceDir == "" {
		return nil, fmt.Errorf("%w: source directory is required", ErrInvalidInput)
	}
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	reqs, err := docs.ReadRequirementsBytes(cmd.Requirements)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	opts := s.Sources
	if opts.Log == nil {
		opts.Log = s.Log
	}
	files, _, err := source.Read(cmd.SourceDir, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.Log.Info("inputs parsed", "requirements", len(reqs), "files", len(files))

	text := prompt.Build(reqs, files)
	metrics.PromptChars.Observe(float64(len(text)))
	res, out := s.Selector.Analyze(ctx, text, cmd.Model, cmd.APIKey)

	a := &domain.Analysis{
		ID:               domain.AnalysisID(uuid.NewString()),
		Model:            NormalizeModelName(cmd.Model),
		Provider:         string(out.Provider),
		Fallback:         out.Fallback,
		FallbackReason:   out.Reason,
		RequirementCount: len(reqs),
		SourceFileCount:  len(files),
		Result:           res,
		Report:           report.Render(res),
		CreatedAt:        s.Clock.Now(),
	}

	for _, f := range []report.Format{report.FormatTXT, report.FormatPDF} {
		path, err := s.export(a, f)
		if err != nil {
			return nil, err
		}
		if s.Reports == nil {
			continue
		}
		url, err := s.Reports.Upload(ctx, path, filepath.ToSlash(filepath.Join(string(a.ID), f.FileName())))
		if err != nil {
			s.Log.Warn("report upload failed", "id", a.ID, "format", f, "error", err)
			continue
		}
		a.ReportURLs = append(a.ReportURLs, url)
	}

	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	s.Log.Info("analysis completed", "id", a.ID, "provider", a.Provider, "fallback", a.Fallback)
	return a, nil
}

// Analyze runs a prebuilt prompt without storing anything.
func (s *Service) Analyze(ctx context.Context, prompt, model, apiKey string) (domain.Result, ai.Outcome) {
	return s.Selector.Analyze(ctx, prompt, model, apiKey)
}

func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, pageSize int, f domain.ListFilter) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, page, pageSize, f)
}

// Export returns the path of the report file, regenerating it from the
// stored report text when the output directory no longer has it.
func (s *Service) Export(ctx context.Context, id domain.AnalysisID, f report.Format) (string, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	path := s.reportPath(a.ID, f)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return s.export(a, f)
}

func (s *Service) export(a *domain.Analysis, f report.Format) (string, error) {
	path := s.reportPath(a.ID, f)
	var err error
	switch f {
	case report.FormatPDF:
		_, err = report.WritePDF(a.Report, path)
	default:
		_, err = report.WriteText(a.Report, path)
	}
	if err != nil {
		return "", err
	}
	s.Log.Info("report saved", "path", path)
	return path, nil
}

func (s *Service) reportPath(id domain.AnalysisID, f report.Format) string {
	return filepath.Join(s.OutputDir, string(id), f.FileName())
}
