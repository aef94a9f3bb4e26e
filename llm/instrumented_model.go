package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/internal/metrics"
)

// InstrumentedModel wraps a LanguageModel with request pacing, structured
// logging of prompts and responses, and call metrics.
type InstrumentedModel struct {
	Inner   framework.LanguageModel
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Debug   bool
	limiter *rate.Limiter
}

// NewInstrumentedModel wraps inner. requestsPerSecond <= 0 disables pacing.
func NewInstrumentedModel(inner framework.LanguageModel, logger *zap.Logger, m *metrics.Metrics, requestsPerSecond float64) *InstrumentedModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &InstrumentedModel{Inner: inner, Logger: logger, Metrics: m}
	if requestsPerSecond > 0 {
		im.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return im
}

func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	stage := framework.StageFrom(ctx)
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	fields := []zap.Field{
		zap.String("agent", stage),
		zap.Int("prompt_chars", len(prompt)),
	}
	if options != nil {
		fields = append(fields, zap.Int("max_tokens", options.MaxTokens), zap.Float64("temperature", options.Temperature))
	}
	if m.Debug {
		fields = append(fields, zap.String("prompt", clip(prompt, 8192)))
	}
	m.Logger.Debug("llm prompt", fields...)

	start := time.Now()
	resp, err := m.Inner.Generate(ctx, prompt, options)
	took := time.Since(start)
	ok := err == nil && resp != nil && strings.TrimSpace(resp.Text) != ""
	m.Metrics.ModelCall(stage, ok, took)

	if err != nil {
		m.Logger.Warn("llm call failed", zap.String("agent", stage), zap.Duration("took", took), zap.Error(err))
		return nil, err
	}
	respFields := []zap.Field{zap.String("agent", stage), zap.Duration("took", took)}
	if resp != nil {
		respFields = append(respFields,
			zap.String("finish_reason", resp.FinishReason),
			zap.String("text_preview", clip(resp.Text, 1024)),
		)
	}
	m.Logger.Debug("llm response", respFields...)
	return resp, nil
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
