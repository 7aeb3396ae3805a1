package enrich

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGroqBaseURL is the OpenAI-compatible endpoint root.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient calls Groq's OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	client *openai.Client
	model  string
}

// NewGroqClient builds a client. A nil httpClient uses http.DefaultClient and
// an empty baseURL uses DefaultGroqBaseURL.
func NewGroqClient(httpClient *http.Client, baseURL, apiKey, model string) *GroqClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = httpClient
	return &GroqClient{client: openai.NewClientWithConfig(cfg), model: model}
}

// Complete sends the prompt and returns the first choice's content, trimmed.
// A reply without choices yields an empty string.
func (c *GroqClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: requestTemperature(prompt.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// requestTemperature keeps an explicit zero on the wire. The request field is
// omitempty, and an omitted temperature means the provider default of 1.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
