// Package generator runs one submission through validation, the completion call
// and deck assembly, tracking its progress.
package generator

import (
	"context"
	"time"

	"github.com/gnemet/DeckForge/internal/ai"
	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/database"
	"github.com/gnemet/DeckForge/internal/logger"
	"github.com/gnemet/DeckForge/internal/metrics"
	"github.com/gnemet/DeckForge/internal/pptx"
)

// MsgSuccess is the status message of a finished run.
const MsgSuccess = "Your presentation has been generated"

// SlideGenerator is the content requester. *ai.Client implements it.
type SlideGenerator interface {
	Provider() string
	Model() string
	GenerateSlides(ctx context.Context, credential, topic string, slideCount int, keyPoints string) (*ai.Completion, error)
}

// UsageRecorder persists one ledger row per finished run.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec *database.GenerationRecord) error
}

type noopRecorder struct{}

func (noopRecorder) RecordUsage(context.Context, *database.GenerationRecord) error { return nil }

// Result is what a successful run hands to the caller.
type Result struct {
	Filename string
	Deck     []byte
	Slides   []pptx.Slide
	Usage    ai.Usage
	Markdown string
}

type Orchestrator struct {
	gen   SlideGenerator
	usage UsageRecorder
}

// NewOrchestrator builds an orchestrator. usage may be nil.
func NewOrchestrator(gen SlideGenerator, usage UsageRecorder) *Orchestrator {
	if usage == nil {
		usage = noopRecorder{}
	}
	return &Orchestrator{gen: gen, usage: usage}
}

func (o *Orchestrator) Provider() string { return o.gen.Provider() }

// Run executes the pipeline once. tr may be nil. Whatever happens, tr is back
// in StateIdle when Run returns.
func (o *Orchestrator) Run(ctx context.Context, in Input, tr *Tracker) (*Result, error) {
	if tr == nil {
		tr = NewTracker()
	}
	if err := tr.transition(StateValidating); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConflict, "A presentation is already being generated")
	}

	if err := Validate(in); err != nil {
		appErr := apperr.As(err)
		logger.Warn(ctx, "submission rejected", "reason", appErr.Error())
		metrics.GenerationTotal.WithLabelValues(o.gen.Provider(), "invalid").Inc()
		_ = tr.finish(StateIdle, OutcomeWarning, appErr.Message, appErr.Detail)
		return nil, appErr
	}
	in.SlideCount = ClampSlideCount(in.SlideCount)

	start := time.Now()
	res, err := o.execute(ctx, in, tr)
	elapsed := time.Since(start)

	rec := &database.GenerationRecord{
		Provider:   o.gen.Provider(),
		Model:      o.gen.Model(),
		SlideCount: in.SlideCount,
		DurationMS: elapsed.Milliseconds(),
	}

	if err != nil {
		appErr := apperr.As(err)
		rec.Outcome = string(StateFailed)
		rec.ErrorKind = string(appErr.Code)
		logger.Error(ctx, "generation failed", err, "provider", rec.Provider, "elapsed", elapsed)
		metrics.RecordGeneration(rec.Provider, rec.Outcome, elapsed.Seconds())
		o.record(ctx, rec)
		_ = tr.finish(StateFailed, OutcomeFailure, appErr.Message, appErr.Detail)
		_ = tr.transition(StateIdle)
		return nil, appErr
	}

	rec.Outcome = string(StateDone)
	rec.PromptTokens = res.Usage.PromptTokens
	rec.CompletionTokens = res.Usage.CompletionTokens
	rec.TotalTokens = res.Usage.TotalTokens
	metrics.RecordGeneration(rec.Provider, rec.Outcome, elapsed.Seconds())
	metrics.DeckSlides.Observe(float64(len(res.Slides) + 1))
	o.record(ctx, rec)
	logger.Info(ctx, "presentation generated",
		"file", res.Filename,
		"slides", len(res.Slides),
		"bytes", len(res.Deck),
		"elapsed", elapsed,
	)

	_ = tr.finish(StateDone, OutcomeSuccess, MsgSuccess, "")
	_ = tr.transition(StateIdle)
	return res, nil
}

func (o *Orchestrator) execute(ctx context.Context, in Input, tr *Tracker) (*Result, error) {
	if err := tr.transition(StateRequesting); err != nil {
		return nil, err
	}
	completion, err := o.gen.GenerateSlides(ctx, in.Credential, in.Topic, in.SlideCount, in.KeyPoints)
	if err != nil {
		return nil, err
	}

	if err := tr.transition(StateAssembling); err != nil {
		return nil, err
	}
	slides, err := pptx.ParseSlides(completion.Text)
	if err != nil {
		return nil, apperr.Assembly(err)
	}
	deck, err := pptx.BuildDeck(in.Topic, slides)
	if err != nil {
		return nil, apperr.Assembly(err)
	}

	return &Result{
		Filename: pptx.DeckFilename(in.Topic),
		Deck:     deck,
		Slides:   slides,
		Usage:    completion.Usage,
		Markdown: pptx.Markdown(in.Topic, slides),
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, rec *database.GenerationRecord) {
	// the run outcome stands even if the ledger is down
	if err := o.usage.RecordUsage(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn(ctx, "usage not recorded", "error", err.Error())
	}
}
