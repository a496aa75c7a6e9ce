// Package observer turns request files dropped into the inbox into decks.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/generator"
	"github.com/gnemet/DeckForge/internal/logger"
	"github.com/gnemet/DeckForge/internal/pptx"
	"github.com/gnemet/DeckForge/internal/storage"
)

const (
	requestExt    = ".json"
	failedSuffix  = ".failed"
	defaultSettle = 2 * time.Second
)

// Runner executes one submission. *generator.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, in generator.Input, tr *generator.Tracker) (*generator.Result, error)
}

// Request is the content of one inbox file.
type Request struct {
	Topic      string `json:"topic"`
	SlideCount *int   `json:"slide_count"`
	KeyPoints  string `json:"key_points"`
}

type Observer struct {
	inbox       string
	processed   string
	runner      Runner
	sink        storage.Sink
	credential  string
	settle      time.Duration
	activeTasks int
	mu          sync.Mutex
	LogChan     chan string
}

// NewObserver watches cfg.Inbox. Every request runs with credential, the
// configured provider key.
func NewObserver(cfg config.StorageConfig, runner Runner, sink storage.Sink, credential string, logChan chan string) *Observer {
	return &Observer{
		inbox:      cfg.Inbox,
		processed:  cfg.Processed,
		runner:     runner,
		sink:       sink,
		credential: credential,
		settle:     defaultSettle,
		LogChan:    logChan,
	}
}

func (o *Observer) log(ctx context.Context, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	logger.Info(ctx, msg, "component", "observer")
	if o.LogChan != nil {
		select {
		case o.LogChan <- msg:
		default:
		}
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

// Start scans the inbox once, then processes new request files until ctx ends.
func (o *Observer) Start(ctx context.Context) error {
	if o.inbox == "" {
		return fmt.Errorf("inbox storage directory not configured")
	}
	if o.processed == "" {
		return fmt.Errorf("processed storage directory not configured")
	}
	for _, dir := range []string{o.inbox, o.processed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(o.inbox); err != nil {
		return err
	}

	o.log(ctx, "Batch observer started, watching: %s", o.inbox)
	o.scanDirectory(ctx, o.inbox)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && isRequestFile(event.Name) {
				// let the writer finish
				select {
				case <-time.After(o.settle):
				case <-ctx.Done():
					return nil
				}
				o.processFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "watcher error", err, "component", "observer")

		case <-ctx.Done():
			return nil
		}
	}
}

func isRequestFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.ToLower(base), requestExt) && !strings.HasPrefix(base, ".")
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		logger.Error(ctx, "failed to scan inbox", err, "dir", dir)
		return
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if !f.IsDir() && isRequestFile(f.Name()) {
			o.processFile(ctx, filepath.Join(dir, f.Name()))
		}
	}
}

// processFile runs one request. A request interrupted by shutdown stays in
// the inbox for the next start.
func (o *Observer) processFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	o.incrementTask()
	defer o.decrementTask()

	filename := filepath.Base(path)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug(ctx, "request already handled", "file", filename)
		return
	}
	if err != nil {
		logger.Error(ctx, "failed to read request", err, "file", filename)
		return
	}
	o.log(ctx, "Processing request: %s", filename)

	in, err := o.parseRequest(raw)
	if err != nil {
		o.log(ctx, "Invalid request %s: %v", filename, err)
		o.finalizeFile(ctx, path, filename, false)
		return
	}

	res, err := o.runner.Run(ctx, in, nil)
	if err != nil {
		if ctx.Err() != nil {
			o.log(ctx, "Interrupted %s, leaving it in the inbox", filename)
			return
		}
		o.log(ctx, "Failed to generate deck for %s: %v", filename, err)
		o.finalizeFile(ctx, path, filename, false)
		return
	}

	name := deckName(res.Filename)
	location, err := o.sink.Save(ctx, name, res.Deck)
	if err != nil {
		if ctx.Err() != nil {
			o.log(ctx, "Interrupted %s, leaving it in the inbox", filename)
			return
		}
		o.log(ctx, "Failed to store %s: %v", name, err)
		o.finalizeFile(ctx, path, filename, false)
		return
	}

	o.log(ctx, "Successfully processed: %s -> %s (%d slides)", filename, location, len(res.Slides)+1)
	o.finalizeFile(ctx, path, filename, true)
}

// deckName suffixes the topic filename with a short random id, so requests
// whose topics sanitize alike never overwrite each other's deck.
func deckName(filename string) string {
	stem := strings.TrimSuffix(filename, pptx.Extension)
	return stem + "-" + uuid.NewString()[:8] + pptx.Extension
}

func (o *Observer) parseRequest(raw []byte) (generator.Input, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return generator.Input{}, err
	}
	count := generator.DefaultSlides
	if req.SlideCount != nil {
		count = generator.ClampSlideCount(*req.SlideCount)
	}
	return generator.Input{
		Topic:      req.Topic,
		SlideCount: count,
		KeyPoints:  req.KeyPoints,
		Credential: o.credential,
	}, nil
}

// finalizeFile moves the request out of the inbox. Failed requests keep a
// .failed suffix so they are not picked up again.
func (o *Observer) finalizeFile(ctx context.Context, path, filename string, ok bool) {
	target := filename
	if !ok {
		target += failedSuffix
	}
	newPath := filepath.Join(o.processed, target)

	if err := os.Rename(path, newPath); err != nil {
		logger.Error(ctx, "failed to move request", err, "file", filename)
		return
	}
	o.log(ctx, "Moved %s to %s", filename, newPath)
}

// RetryFailed moves every failed request back into the inbox, where the
// running watcher picks them up again.
func (o *Observer) RetryFailed(ctx context.Context) int {
	files, err := os.ReadDir(o.processed)
	if err != nil {
		logger.Error(ctx, "failed to list processed requests", err)
		return 0
	}

	moved := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), requestExt+failedSuffix) {
			continue
		}
		oldPath := filepath.Join(o.processed, f.Name())
		newPath := filepath.Join(o.inbox, strings.TrimSuffix(f.Name(), failedSuffix))
		if err := os.Rename(oldPath, newPath); err != nil {
			logger.Error(ctx, "failed to requeue request", err, "file", f.Name())
			continue
		}
		moved++
	}

	o.log(ctx, "Requeued %d failed requests", moved)
	return moved
}

func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}
