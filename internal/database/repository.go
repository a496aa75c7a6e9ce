package database

import (
	"context"
	"database/sql"
	"time"
)

// GenerationRecord is one row of the usage ledger. It never holds the topic,
// the key points or the credential.
type GenerationRecord struct {
	ID               int       `json:"id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	SlideCount       int       `json:"slide_count"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Outcome          string    `json:"outcome"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	DurationMS       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProviderStats aggregates the ledger per provider.
type ProviderStats struct {
	Provider    string `json:"provider"`
	Generations int    `json:"generations"`
	Succeeded   int    `json:"succeeded"`
	Failed      int    `json:"failed"`
	TotalTokens int64  `json:"total_tokens"`
}

type Summary struct {
	Generations int             `json:"generations"`
	Succeeded   int             `json:"succeeded"`
	TotalTokens int64           `json:"total_tokens"`
	Providers   []ProviderStats `json:"providers"`
}

func LogGeneration(ctx context.Context, db *sql.DB, r *GenerationRecord) error {
	query := `
		INSERT INTO generation_usage (provider, model, slide_count, prompt_tokens, completion_tokens, total_tokens, outcome, error_kind, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.ExecContext(ctx, query, r.Provider, r.Model, r.SlideCount, r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.Outcome, r.ErrorKind, r.DurationMS)
	return err
}

func GetRecentGenerations(ctx context.Context, db *sql.DB, limit int) ([]GenerationRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, provider, model, slide_count, prompt_tokens, completion_tokens, total_tokens, outcome, error_kind, duration_ms, created_at FROM generation_usage ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		if err := rows.Scan(&r.ID, &r.Provider, &r.Model, &r.SlideCount, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.Outcome, &r.ErrorKind, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func GetSummary(ctx context.Context, db *sql.DB) (*Summary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT provider,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE outcome = 'done'),
		       COALESCE(SUM(total_tokens), 0)
		FROM generation_usage
		GROUP BY provider
		ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &Summary{Providers: []ProviderStats{}}
	for rows.Next() {
		var p ProviderStats
		if err := rows.Scan(&p.Provider, &p.Generations, &p.Succeeded, &p.TotalTokens); err != nil {
			return nil, err
		}
		p.Failed = p.Generations - p.Succeeded
		s.Generations += p.Generations
		s.Succeeded += p.Succeeded
		s.TotalTokens += p.TotalTokens
		s.Providers = append(s.Providers, p)
	}
	return s, rows.Err()
}

// Repository binds the ledger queries to one connection pool.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RecordUsage(ctx context.Context, rec *GenerationRecord) error {
	return LogGeneration(ctx, r.db, rec)
}

func (r *Repository) Summary(ctx context.Context) (*Summary, error) {
	return GetSummary(ctx, r.db)
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	return GetRecentGenerations(ctx, r.db, limit)
}
