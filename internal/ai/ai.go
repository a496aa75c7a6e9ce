// Package ai requests slide text from a completion provider.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gnemet/DeckForge/internal/apperr"
	"github.com/gnemet/DeckForge/internal/config"
	"github.com/gnemet/DeckForge/internal/logger"
	"github.com/gnemet/DeckForge/internal/metrics"
)

// Usage is the token accounting reported by the provider, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the raw text of the first choice plus what produced it.
type Completion struct {
	Text     string
	Provider string
	Model    string
	Usage    Usage
}

// Driver performs exactly one completion call. Implementations never retry.
type Driver interface {
	Name() string
	Model() string
	Complete(ctx context.Context, credential, prompt string) (*Completion, error)
}

type Client struct {
	driver  Driver
	timeout time.Duration
}

// NewClient builds a client for the active provider in cfg.
func NewClient(cfg *config.AIConfig) (*Client, error) {
	name, settings, err := cfg.Active()
	if err != nil {
		return nil, err
	}

	var driver Driver
	switch strings.ToLower(settings.Driver) {
	case "openrouter", "openai":
		driver = NewOpenRouterDriver(name, settings, cfg.Referer, &http.Client{})
	case "gemini":
		driver = NewGeminiDriver(name, settings)
	default:
		return nil, fmt.Errorf("unsupported ai driver %q", settings.Driver)
	}
	return &Client{driver: driver, timeout: cfg.Timeout}, nil
}

// NewClientWithDriver wraps an existing driver.
func NewClientWithDriver(d Driver, timeout time.Duration) *Client {
	return &Client{driver: d, timeout: timeout}
}

func (c *Client) Provider() string { return c.driver.Name() }
func (c *Client) Model() string    { return c.driver.Model() }

// GenerateSlides builds the slide prompt and returns the provider's raw reply.
func (c *Client) GenerateSlides(ctx context.Context, credential, topic string, slideCount int, keyPoints string) (*Completion, error) {
	prompt := BuildPrompt(topic, slideCount, keyPoints)
	return c.Complete(ctx, credential, prompt)
}

// Complete sends prompt through the driver, applying the configured deadline.
func (c *Client) Complete(ctx context.Context, credential, prompt string) (*Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.driver.Complete(ctx, credential, prompt)
	elapsed := time.Since(start)
	metrics.RecordLLMRequest(c.driver.Name(), c.driver.Model(), elapsed.Seconds())

	if err != nil {
		logger.Error(ctx, "completion call failed", err, "provider", c.driver.Name(), "elapsed", elapsed)
		return nil, err
	}
	logger.Info(ctx, "completion call finished",
		"provider", out.Provider,
		"model", out.Model,
		"total_tokens", out.Usage.TotalTokens,
		"elapsed", elapsed,
	)
	return out, nil
}

func remoteError(err error, message string) *apperr.AppError {
	if strings.TrimSpace(message) == "" {
		message = apperr.MsgGenerateFailed
	}
	return apperr.Wrap(err, apperr.CodeRemoteCall, message)
}
