package generator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/logger"
)

const DefaultJobCacheSize = 128

// Job is one asynchronous submission.
type Job struct {
	ID        string
	CreatedAt time.Time
	Topic     string

	tracker *Tracker
	done    chan struct{}

	mu     sync.RWMutex
	result *Result
	err    error
}

func (j *Job) Status() Status { return j.tracker.Status() }

func (j *Job) History() []State { return j.tracker.History() }

// Done is closed once the run has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the run's output, or nil and the error once it has failed.
// Both are nil while the run is still going.
func (j *Job) Result() (*Result, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result, j.err
}

func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Jobs keeps recent submissions in a bounded cache. The oldest finished jobs
// are evicted together with their decks; a running job is never evicted.
type Jobs struct {
	orch  *Orchestrator
	size  int
	cache *lru.Cache[string, *Job]
	mu    sync.Mutex
	wg    sync.WaitGroup
}

func NewJobs(orch *Orchestrator, size int) (*Jobs, error) {
	if size <= 0 {
		size = DefaultJobCacheSize
	}
	cache, err := lru.New[string, *Job](size)
	if err != nil {
		return nil, err
	}
	return &Jobs{orch: orch, size: size, cache: cache}, nil
}

// makeRoom drops the least recently used finished job when the cache is full.
// It reports false when every cached job is still running.
func (s *Jobs) makeRoom() bool {
	if s.cache.Len() < s.size {
		return true
	}
	for _, id := range s.cache.Keys() {
		if job, ok := s.cache.Peek(id); ok && job.Finished() {
			s.cache.Remove(id)
			return true
		}
	}
	return false
}

// Submit validates in and starts the run in the background. Invalid input
// never creates a job. A started run is detached from ctx's cancellation.
func (s *Jobs) Submit(ctx context.Context, in Input) (*Job, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Topic:     in.Topic,
		tracker:   NewTracker(),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if !s.makeRoom() {
		s.mu.Unlock()
		logger.Warn(ctx, "job rejected, all slots busy", "running", s.size)
		return nil, apperr.New(apperr.CodeUnavailable, "Too many presentations are being generated, try again shortly")
	}
	s.cache.Add(job.ID, job)
	s.mu.Unlock()

	runCtx := logger.WithContext(context.WithoutCancel(ctx), logger.JobIDKey, job.ID)
	logger.Info(runCtx, "job submitted", "slides", in.SlideCount)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(job.done)
		res, err := s.orch.Run(runCtx, in, job.tracker)
		job.mu.Lock()
		job.result, job.err = res, err
		job.mu.Unlock()
	}()
	return job, nil
}

func (s *Jobs) Get(id string) (*Job, bool) {
	return s.cache.Get(id)
}

func (s *Jobs) Len() int { return s.cache.Len() }

// Wait blocks until every started run has finished.
func (s *Jobs) Wait() { s.wg.Wait() }
