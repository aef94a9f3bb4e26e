package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lexcodex/gitagent/framework"
)

// DefaultSystemPrompt frames every chat completion.
const DefaultSystemPrompt = "Assistant is a large language model expert in coding."

// OpenAIClient implements framework.LanguageModel against any
// OpenAI-compatible chat completions endpoint, e.g. a hosted llama3.
type OpenAIClient struct {
	Model        string
	SystemPrompt string
	client       *openai.Client
}

// NewOpenAIClient builds a client for baseURL. A zero timeout leaves calls
// unbounded.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		Model:        model,
		SystemPrompt: DefaultSystemPrompt,
		client:       openai.NewClientWithConfig(cfg),
	}
}

// Generate sends prompt as the single user turn.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	system := c.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	req := openai.ChatCompletionRequest{
		Model: c.model(options),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if options != nil {
		req.Temperature = float32(options.Temperature)
		req.MaxTokens = options.MaxTokens
		req.Stop = options.Stop
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	choice := resp.Choices[0]
	return &framework.LLMResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	return c.Model
}
