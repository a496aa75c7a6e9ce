package web

import (
	"context"
	"sync"
)

// LogBuffer keeps the most recent batch observer messages for the status endpoint.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 100
	}
	return &LogBuffer{size: size}
}

func (b *LogBuffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.size; over > 0 {
		b.lines = append(b.lines[:0:0], b.lines[over:]...)
	}
}

func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.lines...)
}

// Consume drains ch into the buffer until ctx ends or ch is closed.
func (b *LogBuffer) Consume(ctx context.Context, ch <-chan string) error {
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return nil
			}
			b.Add(line)
		case <-ctx.Done():
			return nil
		}
	}
}
