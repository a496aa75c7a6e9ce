// Package web serves the generation form, the job API and the operational endpoints.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/database"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// StatsSource reports usage totals and the latest ledger rows.
// *database.Repository implements it.
type StatsSource interface {
	Summary(ctx context.Context) (*database.Summary, error)
	Recent(ctx context.Context, limit int) ([]database.GenerationRecord, error)
}

// Batch is the inbox observer as seen by the web surface.
type Batch interface {
	IsProcessing() bool
	RetryFailed(ctx context.Context) int
}

type Options struct {
	Config       *config.Config
	Orchestrator *generator.Orchestrator
	Jobs         *generator.Jobs
	// Stats and Batch are optional.
	Stats    StatsSource
	Batch    Batch
	BatchLog *LogBuffer
}

type Server struct {
	cfg      *config.Config
	orch     *generator.Orchestrator
	jobs     *generator.Jobs
	stats    StatsSource
	batch    Batch
	batchLog *LogBuffer
	tmpl     *template.Template
}

func NewServer(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"T": func(lang, key string) string { return i18n.T(lang, key) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      opts.Config,
		orch:     opts.Orchestrator,
		jobs:     opts.Jobs,
		stats:    opts.Stats,
		batch:    opts.Batch,
		batchLog: opts.BatchLog,
		tmpl:     tmpl,
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /lang", s.handleLang)

	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/jobs/{id}/deck", s.handleJobDeck)
	mux.HandleFunc("GET /api/jobs/{id}/preview", s.handleJobPreview)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/batch", s.handleBatchStatus)
	mux.HandleFunc("POST /api/batch/retry", s.handleBatchRetry)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return requestID(recovery(metricsMiddleware(mux)))
}
