package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"dreamdoc-backend/internal/analyzer"
)

const maxTokens = 2048

// Client calls the OpenAI chat completions API to analyze document text.
type Client struct {
	api   *openai.Client
	model string
}

var _ analyzer.Client = (*Client)(nil)

// NewClient builds a client for the given API key and model. baseURL
// overrides the API endpoint when non-empty, which tests use to point at
// a local server.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Analyze(ctx context.Context, text string, opts analyzer.Options) (analyzer.Result, error) {
	model := c.model
	if model == "" {
		model = "gpt-4o"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(opts)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}
	// Reasoning models reject the legacy MaxTokens field.
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return analyzer.Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return analyzer.Result{}, fmt.Errorf("chat completion: empty choices")
	}
	return parseResponse(resp.Choices[0].Message.Content)
}
