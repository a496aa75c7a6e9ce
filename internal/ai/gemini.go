package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/gnemet/DeckForge/internal/config"
)

// GeminiDriver uses the Gemini API; the per-call credential is the API key.
type GeminiDriver struct {
	name     string
	settings config.ProviderSettings
}

func NewGeminiDriver(name string, settings config.ProviderSettings) *GeminiDriver {
	return &GeminiDriver{name: name, settings: settings}
}

func (d *GeminiDriver) Name() string  { return d.name }
func (d *GeminiDriver) Model() string { return d.settings.Model }

func (d *GeminiDriver) clientOptions(credential string) []option.ClientOption {
	opts := []option.ClientOption{option.WithAPIKey(credential)}
	if d.settings.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.settings.Endpoint))
	}
	return opts
}

func (d *GeminiDriver) Complete(ctx context.Context, credential, prompt string) (*Completion, error) {
	client, err := genai.NewClient(ctx, d.clientOptions(credential)...)
	if err != nil {
		return nil, remoteError(err, err.Error())
	}
	defer client.Close()

	model := client.GenerativeModel(d.settings.Model)
	model.ResponseMIMEType = "application/json"
	if d.settings.Temperature > 0 {
		model.SetTemperature(float32(d.settings.Temperature))
	}
	if d.settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(d.settings.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, remoteError(err, geminiErrorMessage(err))
	}
	return d.completionFromResponse(resp)
}

func (d *GeminiDriver) completionFromResponse(resp *genai.GenerateContentResponse) (*Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, remoteError(fmt.Errorf("%s: response has no candidates", d.name), "")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := &Completion{
		Text:     text.String(),
		Provider: d.name,
		Model:    d.settings.Model,
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func geminiErrorMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return err.Error()
}
