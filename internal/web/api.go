package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/database"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/logger"
)

// maxRequestBody bounds the JSON submission; key points are the only long field.
const maxRequestBody = 64 << 10

// recentGenerations is how many ledger rows /api/stats returns.
const recentGenerations = 20

type createJobRequest struct {
	Topic      string `json:"topic"`
	SlideCount json.RawMessage `json:"slide_count"`
	KeyPoints  string          `json:"key_points"`
	APIKey     string          `json:"api_key"`
}

// slideCount reads the optional slide_count field. Absent or null means
// DefaultSlides; a value that is not a JSON integer is rejected.
func (req *createJobRequest) slideCount() (int, error) {
	if len(req.SlideCount) == 0 || string(req.SlideCount) == "null" {
		return generator.DefaultSlides, nil
	}
	var n int
	if err := json.Unmarshal(req.SlideCount, &n); err != nil {
		return 0, generator.SlideCountError(err)
	}
	return generator.ClampSlideCount(n), nil
}

type statsResponse struct {
	*database.Summary
	Recent []database.GenerationRecord `json:"recent"`
}

type jobResponse struct {
	ID        string           `json:"id"`
	Status    generator.Status `json:"status"`
	Finished  bool             `json:"finished"`
	Filename  string           `json:"filename,omitempty"`
	Slides    int              `json:"slides,omitempty"`
	Error     *apperr.AppError `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func newJobResponse(job *generator.Job) jobResponse {
	resp := jobResponse{
		ID:        job.ID,
		Status:    job.Status(),
		Finished:  job.Finished(),
		CreatedAt: job.CreatedAt,
	}
	if !resp.Finished {
		return resp
	}
	res, err := job.Result()
	if err != nil {
		resp.Error = apperr.As(err)
		return resp
	}
	resp.Filename = res.Filename
	resp.Slides = len(res.Slides) + 1
	return resp
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, apperr.Wrap(err, apperr.CodeValidation, apperr.MsgMissingInformation).
			WithDetail("Request body must be a JSON object"))
		return
	}

	count, err := req.slideCount()
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := s.jobs.Submit(r.Context(), generator.Input{
		Topic:      req.Topic,
		SlideCount: count,
		KeyPoints:  req.KeyPoints,
		Credential: req.APIKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, newJobResponse(job))
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*generator.Job, bool) {
	job, ok := s.jobs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, apperr.New(apperr.CodeNotFound, "Job not found"))
		return nil, false
	}
	return job, true
}

// finishedResult resolves a job to its result, answering 409 while it runs and
// the run's error once it failed.
func (s *Server) finishedResult(w http.ResponseWriter, r *http.Request) (*generator.Result, bool) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return nil, false
	}
	if !job.Finished() {
		writeError(w, apperr.New(apperr.CodeConflict, "Presentation is still being generated"))
		return nil, false
	}
	res, err := job.Result()
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

func (s *Server) handleJobDeck(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finishedResult(w, r)
	if !ok {
		return
	}
	serveDeck(w, res)
}

func (s *Server) handleJobPreview(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finishedResult(w, r)
	if !ok {
		return
	}

	html := renderOutline(res.Markdown)

	data := s.getBaseData(r, res.Filename)
	data["JobID"] = r.PathValue("id")
	data["Filename"] = res.Filename
	data["Outline"] = template.HTML(html)
	s.renderTemplate(w, r, http.StatusOK, "preview.html", data)
}

// renderOutline converts the deck outline to HTML. Raw HTML in model output is dropped.
func renderOutline(md string) []byte {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML,
	})
	return blackfriday.Run([]byte(md),
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(blackfriday.CommonExtensions))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, apperr.New(apperr.CodeUnavailable, "Usage statistics require a database"))
		return
	}
	summary, err := s.stats.Summary(r.Context())
	if err != nil {
		logger.Error(r.Context(), "failed to load usage summary", err)
		writeError(w, apperr.Wrap(err, apperr.CodeUnavailable, "Usage statistics are unavailable"))
		return
	}
	recent, err := s.stats.Recent(r.Context(), recentGenerations)
	if err != nil {
		logger.Error(r.Context(), "failed to load recent generations", err)
		writeError(w, apperr.Wrap(err, apperr.CodeUnavailable, "Usage statistics are unavailable"))
		return
	}
	if recent == nil {
		recent = []database.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, statsResponse{Summary: summary, Recent: recent})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if s.batch == nil {
		writeError(w, apperr.New(apperr.CodeUnavailable, "Batch inbox is not configured"))
		return
	}
	resp := map[string]any{
		"processing": s.batch.IsProcessing(),
		"log":        []string{},
	}
	if s.batchLog != nil {
		resp["log"] = s.batchLog.Lines()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatchRetry(w http.ResponseWriter, r *http.Request) {
	if s.batch == nil {
		writeError(w, apperr.New(apperr.CodeUnavailable, "Batch inbox is not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"requeued": s.batch.RetryFailed(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.orch != nil {
		resp["provider"] = s.orch.Provider()
	}
	if s.jobs != nil {
		resp["jobs"] = s.jobs.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}
