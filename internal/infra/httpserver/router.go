package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appanalysis "github.com/bryanwahyu/reqverify/internal/application/analysis"
	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/report"
	"github.com/bryanwahyu/reqverify/internal/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	APIKeys     []string
	CORSOrigins []string
	MaxUploadMB int
	SourceRoots []string
	// Checkers back /healthz; names in OptionalChecks only degrade it.
	Checkers       map[string]middleware.HealthChecker
	OptionalChecks []string
	Log            *slog.Logger
}

type Router struct {
	svc         *appanalysis.Service
	log         *slog.Logger
	maxUpload   int64
	sourceRoots []string
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 20
	}
	r := &Router{svc: svc, log: log.With("component", "http"), maxUpload: int64(maxMB) << 20, sourceRoots: opts.SourceRoots}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID, chimw.Recoverer, middleware.Logging(r.log), middleware.Metrics)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(opts.Checkers, opts.OptionalChecks...))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/models", r.wrap(r.handleModels))
		rt.Post("/analyze", r.wrap(r.handleAnalyzePrompt))
		rt.Post("/analyses", r.wrap(r.handleRun))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/analyses/{id}/report", r.wrap(r.handleReport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusError carries an explicit HTTP status.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		switch {
		case errors.As(err, &se):
			http.Error(w, se.msg, se.code)
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, appanalysis.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, appanalysis.ErrBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			r.log.Error("request failed", "path", req.URL.Path, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GET /v1/models
func (r *Router) handleModels(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"models": appanalysis.Models()})
}

type analyzeResponse struct {
	Result  domain.Result `json:"result"`
	Outcome ai.Outcome    `json:"outcome"`
}

// POST /v1/analyze
// Body: {"prompt": "...", "model": "gpt-4o", "api_key": "..."}
func (r *Router) handleAnalyzePrompt(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Prompt string `json:"prompt"`
		Model  string `json:"model"`
		APIKey string `json:"api_key"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, r.maxUpload))
	if err := dec.Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if body.Prompt == "" {
		return badRequest("prompt is required")
	}

	res, out := r.svc.Analyze(req.Context(), body.Prompt, middleware.SanitizeString(body.Model), body.APIKey)
	return writeJSON(w, http.StatusOK, analyzeResponse{Result: res, Outcome: out})
}

// POST /v1/analyses (multipart: requirements, source_dir, model, api_key)
func (r *Router) handleRun(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		return badRequest("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("requirements")
	if err != nil {
		return badRequest("requirements document is required")
	}
	defer file.Close()
	if err := middleware.ValidateUpload(header.Filename, header.Size); err != nil {
		return badRequest("%v", err)
	}
	doc, err := io.ReadAll(file)
	if err != nil {
		return badRequest("read requirements: %v", err)
	}

	sourceDir := req.FormValue("source_dir")
	if err := middleware.ValidateSourceDir(sourceDir, r.sourceRoots); err != nil {
		return badRequest("%v", err)
	}

	a, err := r.svc.Run(req.Context(), appanalysis.RunCommand{
		Requirements: doc,
		SourceDir:    sourceDir,
		Model:        middleware.SanitizeString(req.FormValue("model")),
		APIKey:       req.FormValue("api_key"),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/analyses?page=&page_size=&provider=&model=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page <= 0 {
		page = 1
	}

	list, err := r.svc.List(req.Context(), page, middleware.ValidateLimit(size), domain.ListFilter{
		Provider: middleware.SanitizeString(q.Get("provider")),
		Model:    appanalysis.NormalizeModelName(middleware.SanitizeString(q.Get("model"))),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/analyses/{id}/report?format=txt|pdf
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(req.URL.Query().Get("format"))
	if err != nil {
		return badRequest("%v", err)
	}

	path, err := r.svc.Export(req.Context(), id, format)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	http.ServeContent(w, req, format.FileName(), st.ModTime(), f)
	return nil
}

func analysisID(req *http.Request) (domain.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.AnalysisID(id), nil
}
