// Package storage persists generated decks.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnemet/DeckForge/internal/config"
)

// Sink stores one artifact and reports where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// NewSink returns an S3Sink when an endpoint is configured, a LocalSink otherwise.
func NewSink(cfg config.StorageConfig) (Sink, error) {
	if cfg.S3.Enabled() {
		return NewS3Sink(cfg.S3)
	}
	return NewLocalSink(cfg.Output)
}

type LocalSink struct {
	dir string
}

func NewLocalSink(dir string) (*LocalSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

// Save writes data to dir/name through a temp file so readers never see a
// partial deck.
func (s *LocalSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return target, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	base := filepath.Base(name)
	if name == "" || base != name || base == "." || base == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return base, nil
}
