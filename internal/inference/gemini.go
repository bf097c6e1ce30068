package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/pipelineerror"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client against the Google Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     logging.Logger
}

// NewGeminiClient creates a Gemini-backed inference client. The timeout is
// applied per call; expiry is reported as a transport error so batch loops
// treat it like any other failed round trip.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger logging.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     logger,
	}, nil
}

// Describe reports the provider and model identity.
func (c *GeminiClient) Describe() ModelInfo {
	return ModelInfo{Provider: "gemini", Model: c.model}
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Complete performs one blocking completion round trip.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	// No dedicated system turn at this API version; the system prompt is
	// prepended to the user prompt.
	prompt := req.UserPrompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.UserPrompt
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &pipelineerror.TransportError{Operation: "completion", Err: err}
	}

	text := collectText(resp)
	if text == "" {
		return "", &pipelineerror.TransportError{
			Operation: "completion",
			Err:       fmt.Errorf("empty completion from model %s", c.model),
		}
	}

	c.log.WithFields(
		logging.Field{Key: logging.FieldModel, Value: c.model},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(started).Milliseconds()},
		logging.Field{Key: "response_len", Value: len(text)},
	).Debug("Completion round trip finished")

	return text, nil
}

// collectText joins the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
