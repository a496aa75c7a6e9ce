package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gnemet/DeckForge/internal/config"
)

// OpenRouterDriver calls an OpenAI-compatible chat completions endpoint.
type OpenRouterDriver struct {
	http     *http.Client
	name     string
	endpoint string
	model    string
	referer  string
	settings config.ProviderSettings
}

func NewOpenRouterDriver(name string, settings config.ProviderSettings, referer string, hc *http.Client) *OpenRouterDriver {
	if hc == nil {
		hc = &http.Client{}
	}
	return &OpenRouterDriver{
		http:     hc,
		name:     name,
		endpoint: settings.Endpoint,
		model:    settings.Model,
		referer:  referer,
		settings: settings,
	}
}

func (d *OpenRouterDriver) Name() string  { return d.name }
func (d *OpenRouterDriver) Model() string { return d.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func (d *OpenRouterDriver) Complete(ctx context.Context, credential, prompt string) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:       d.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: d.settings.Temperature,
		MaxTokens:   d.settings.MaxTokens,
	})
	if err != nil {
		return nil, remoteError(err, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, remoteError(err, "")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("HTTP-Referer", d.referer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, remoteError(err, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, remoteError(fmt.Errorf("%s: unexpected status %s", d.name, resp.Status), errorMessage(raw))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, remoteError(fmt.Errorf("%s: decode response: %w", d.name, err), "")
	}
	if len(out.Choices) == 0 {
		return nil, remoteError(fmt.Errorf("%s: response has no choices", d.name), "")
	}

	model := out.Model
	if model == "" {
		model = d.model
	}
	return &Completion{
		Text:     out.Choices[0].Message.Content,
		Provider: d.name,
		Model:    model,
		Usage:    out.Usage,
	}, nil
}

// errorMessage extracts the remote message from an error body, or "" when there is none.
// Both {"message": "..."} and {"error": {"message": "..."}} are understood.
func errorMessage(raw []byte) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	var msg string
	if err := json.Unmarshal(body["message"], &msg); err == nil && msg != "" {
		return msg
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body["error"], &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	if err := json.Unmarshal(body["error"], &msg); err == nil {
		return msg
	}
	return ""
}
