package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnemet/DeckForge/internal/ai"
	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/database"
)

const twoSlides = `[
	{"title": "Goroutines", "content": ["cheap", "multiplexed", "growable stacks"]},
	{"title": "Channels", "content": ["typed", "blocking"]}
]`

// completionServer is an OpenRouter-compatible endpoint that counts hits.
type completionServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCompletionServer(t *testing.T, status int, body string) *completionServer {
	t.Helper()
	cs := &completionServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func chatBody(content string) string {
	return `{"choices":[{"message":{"content":` + quote(content) + `}}],"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}}`
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newClient(t *testing.T, endpoint string) *ai.Client {
	t.Helper()
	client, err := ai.NewClient(&config.AIConfig{
		ActiveProvider: "openrouter",
		Providers: map[string]config.ProviderSettings{
			"openrouter": {Endpoint: endpoint, Model: "test-model"},
		},
	})
	require.NoError(t, err)
	return client
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []database.GenerationRecord
}

func (m *memoryRecorder) RecordUsage(_ context.Context, rec *database.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memoryRecorder) all() []database.GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.GenerationRecord(nil), m.records...)
}

// blockingGenerator holds every call until release is closed.
type blockingGenerator struct {
	release chan struct{}
	text    string
}

func (b *blockingGenerator) Provider() string { return "fake" }
func (b *blockingGenerator) Model() string    { return "fake-model" }

func (b *blockingGenerator) GenerateSlides(ctx context.Context, _, _ string, _ int, _ string) (*ai.Completion, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &ai.Completion{Text: b.text, Provider: "fake", Model: "fake-model"}, nil
}

// liveContextRecorder refuses writes on a dead context, like a database driver.
type liveContextRecorder struct {
	memoryRecorder
}

func (l *liveContextRecorder) RecordUsage(ctx context.Context, rec *database.GenerationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.memoryRecorder.RecordUsage(ctx, rec)
}
