package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnemet/DeckForge/internal/ai"
	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/database"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/pptx"
)

const slidesJSON = `[{"title":"Revenue","content":["up 10%","<script>alert(1)</script>"]},{"title":"Outlook","content":["steady"]}]`

type upstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T, status int, content string) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, content)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(u.Close)
	return u
}

// blockingGenerator holds the completion call until release is closed.
type blockingGenerator struct{ release chan struct{} }

func (b *blockingGenerator) Provider() string { return "fake" }
func (b *blockingGenerator) Model() string    { return "fake" }
func (b *blockingGenerator) GenerateSlides(ctx context.Context, _, _ string, _ int, _ string) (*ai.Completion, error) {
	<-b.release
	return &ai.Completion{Text: slidesJSON}, nil
}

type fakeStats struct{ err error }

func (f fakeStats) Summary(context.Context) (*database.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &database.Summary{Generations: 3, Succeeded: 2, TotalTokens: 900, Providers: []database.ProviderStats{}}, nil
}

func (f fakeStats) Recent(_ context.Context, limit int) ([]database.GenerationRecord, error) {
	if limit <= 0 {
		return nil, errors.New("limit required")
	}
	return []database.GenerationRecord{{ID: 7, Provider: "openrouter", Model: "m", SlideCount: 4, Outcome: "done"}}, nil
}

type fakeBatch struct{ requeued int }

func (f *fakeBatch) IsProcessing() bool             { return true }
func (f *fakeBatch) RetryFailed(context.Context) int { return f.requeued }

func newTestServer(t *testing.T, gen generator.SlideGenerator, opts Options) http.Handler {
	t.Helper()
	orch := generator.NewOrchestrator(gen, nil)
	jobs, err := generator.NewJobs(orch, 8)
	require.NoError(t, err)
	t.Cleanup(jobs.Wait)

	opts.Config = &config.Config{Application: config.ApplicationConfig{Name: "DeckForge", Version: "test"}}
	opts.Orchestrator = orch
	opts.Jobs = jobs
	srv, err := NewServer(opts)
	require.NoError(t, err)
	return srv.Handler()
}

func clientFor(t *testing.T, u *upstream) *ai.Client {
	t.Helper()
	client, err := ai.NewClient(&config.AIConfig{
		ActiveProvider: "openrouter",
		Providers:      map[string]config.ProviderSettings{"openrouter": {Endpoint: u.URL, Model: "m"}},
	})
	require.NoError(t, err)
	return client
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersForm(t *testing.T) {
	h := newTestServer(t, clientFor(t, newUpstream(t, http.StatusOK, slidesJSON)), Options{})

	rec := do(h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Presentation Topic")
	assert.Contains(t, body, `type="password"`)
	assert.Contains(t, body, `min="1" max="20" value="5"`)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "lang", Value: "hu"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Az előadás témája")

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/nope", nil).Code)
}

func TestGenerateValidationMakesNoCall(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := postForm(h, "/generate", url.Values{"topic": {"  "}, "api_key": {"sk"}, "slide_count": {"3"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing Information")
	assert.Contains(t, rec.Body.String(), "Please fill in all required fields")

	rec = postForm(h, "/generate", url.Values{"topic": {"Go"}, "api_key": {"sk"}, "slide_count": {"many"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go</textarea>")

	assert.Equal(t, int32(0), u.hits.Load())
}

func TestGenerateServesDeck(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := postForm(h, "/generate", url.Values{"topic": {"Q1 Results!"}, "api_key": {"sk"}, "slide_count": {"2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pptx.MIMEType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Q1Results.pptx"`, rec.Header().Get("Content-Disposition"))

	deck := rec.Body.Bytes()
	_, err := zip.NewReader(bytes.NewReader(deck), int64(len(deck)))
	require.NoError(t, err)
	content, err := pptx.ExtractSlideContent(deck)
	require.NoError(t, err)
	assert.Len(t, content, 3)
}

func TestGenerateSurfacesRemoteError(t *testing.T) {
	u := newUpstream(t, http.StatusUnauthorized, `{"message":"bad key"}`)
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := postForm(h, "/generate", url.Values{"topic": {"Go"}, "api_key": {"sk"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad key")
	assert.NotContains(t, rec.Body.String(), `value="sk"`)
}

func TestJobLifecycle(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := do(h, http.MethodPost, "/api/jobs", strings.NewReader(`{"topic":"Q1 Results!","slide_count":2,"api_key":"sk"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/jobs/"+created.ID, rec.Header().Get("Location"))

	var status jobResponse
	require.Eventually(t, func() bool {
		rec := do(h, http.MethodGet, "/api/jobs/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return status.Finished
	}, 10*time.Second, 20*time.Millisecond)

	assert.Nil(t, status.Error)
	assert.Equal(t, "Q1Results.pptx", status.Filename)
	assert.Equal(t, 3, status.Slides)
	assert.Equal(t, generator.OutcomeSuccess, status.Status.Outcome)
	assert.False(t, status.Status.Busy)

	rec = do(h, http.MethodGet, "/api/jobs/"+created.ID+"/deck", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Q1Results.pptx"`, rec.Header().Get("Content-Disposition"))

	rec = do(h, http.MethodGet, "/api/jobs/"+created.ID+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h2")
	assert.Contains(t, body, "Revenue")
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestJobValidationAndErrors(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := do(h, http.MethodPost, "/api/jobs", strings.NewReader(`{"topic":"Go"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation"`)

	rec = do(h, http.MethodPost, "/api/jobs", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for _, count := range []string{`5.5`, `"five"`, `true`} {
		rec = do(h, http.MethodPost, "/api/jobs", strings.NewReader(`{"topic":"Go","api_key":"sk","slide_count":`+count+`}`))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, count)
		assert.Contains(t, rec.Body.String(), "Number of slides must be a whole number between 1 and 20", count)
		assert.NotContains(t, rec.Body.String(), "JSON object", count)
	}

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/jobs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/jobs/missing/deck", nil).Code)
	assert.Equal(t, int32(0), u.hits.Load())
}

func TestJobDeckConflictWhileRunning(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	h := newTestServer(t, gen, Options{})

	rec := do(h, http.MethodPost, "/api/jobs", strings.NewReader(`{"topic":"Go","api_key":"sk"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.Equal(t, http.StatusConflict, do(h, http.MethodGet, "/api/jobs/"+created.ID+"/deck", nil).Code)
	assert.Equal(t, http.StatusConflict, do(h, http.MethodGet, "/api/jobs/"+created.ID+"/preview", nil).Code)
	close(gen.release)
}

func TestJobDeckAfterFailure(t *testing.T) {
	u := newUpstream(t, http.StatusOK, "not a slide array")
	h := newTestServer(t, clientFor(t, u), Options{})

	rec := do(h, http.MethodPost, "/api/jobs", strings.NewReader(`{"topic":"Go","api_key":"sk"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	var status jobResponse
	require.Eventually(t, func() bool {
		rec := do(h, http.MethodGet, "/api/jobs/"+created.ID, nil)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return status.Finished
	}, 10*time.Second, 20*time.Millisecond)

	require.NotNil(t, status.Error)
	assert.Equal(t, "Failed to create presentation file", status.Error.Message)
	assert.Equal(t, generator.OutcomeFailure, status.Status.Outcome)

	rec = do(h, http.MethodGet, "/api/jobs/"+created.ID+"/deck", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStats(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)

	h := newTestServer(t, clientFor(t, u), Options{})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/stats", nil).Code)

	h = newTestServer(t, clientFor(t, u), Options{Stats: fakeStats{}})
	rec := do(h, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Generations int                         `json:"generations"`
		Recent      []database.GenerationRecord `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Generations)
	require.Len(t, stats.Recent, 1)
	assert.Equal(t, 7, stats.Recent[0].ID)
	assert.Equal(t, "done", stats.Recent[0].Outcome)

	h = newTestServer(t, clientFor(t, u), Options{Stats: fakeStats{err: errors.New("db down")}})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/stats", nil).Code)
}

func TestBatchEndpoints(t *testing.T) {
	u := newUpstream(t, http.StatusOK, slidesJSON)

	h := newTestServer(t, clientFor(t, u), Options{})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/api/batch", nil).Code)

	logs := NewLogBuffer(10)
	logs.Add("Processing request: q1.json")
	h = newTestServer(t, clientFor(t, u), Options{Batch: &fakeBatch{requeued: 2}, BatchLog: logs})

	rec := do(h, http.MethodGet, "/api/batch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processing":true,"log":["Processing request: q1.json"]}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/api/batch/retry", nil)
	assert.JSONEq(t, `{"requeued":2}`, rec.Body.String())
}

func TestOperationalEndpoints(t *testing.T) {
	h := newTestServer(t, clientFor(t, newUpstream(t, http.StatusOK, slidesJSON)), Options{})

	rec := do(h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider":"openrouter"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = do(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deckforge_http_requests_total")
}

func TestLangCookie(t *testing.T) {
	h := newTestServer(t, clientFor(t, newUpstream(t, http.StatusOK, slidesJSON)), Options{})

	rec := do(h, http.MethodPost, "/lang?lang=hu", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lang", cookies[0].Name)
	assert.Equal(t, "hu", cookies[0].Value)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/lang?lang=xx", nil).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := do(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal"`)
}

func TestRenderOutlineSkipsHTML(t *testing.T) {
	out := string(renderOutline(pptx.Markdown("Deck", []pptx.Slide{{Title: "A", Content: []string{"<b>x</b>", "plain"}}})))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<li>plain</li>")
	assert.NotContains(t, out, "<b>")
}

func TestLogBuffer(t *testing.T) {
	b := NewLogBuffer(2)
	b.Add("one")
	b.Add("two")
	b.Add("three")
	assert.Equal(t, []string{"two", "three"}, b.Lines())

	ch := make(chan string, 1)
	ch <- "four"
	close(ch)
	require.NoError(t, b.Consume(context.Background(), ch))
	assert.Equal(t, []string{"three", "four"}, b.Lines())
}
