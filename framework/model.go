package framework

import "context"

// LLMOptions configures a single model call.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// LLMResponse is the normalised model output.
type LLMResponse struct {
	Text         string         `json:"text,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// LanguageModel is the inference backend used by every pipeline stage.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)
}

// LanguageModelFunc adapts a function to LanguageModel.
type LanguageModelFunc func(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)

func (f LanguageModelFunc) Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error) {
	return f(ctx, prompt, options)
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage issuing model calls.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage recorded by WithStage, or "unknown".
func StageFrom(ctx context.Context) string {
	if stage, ok := ctx.Value(stageKey{}).(string); ok && stage != "" {
		return stage
	}
	return "unknown"
}
