package pattern

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// RepairOptions are the model settings used for the correction call.
var RepairOptions = framework.LLMOptions{Temperature: 0.2, MaxTokens: 500}

// RepairPrompt asks the model to restate malformed output as valid JSON.
func RepairPrompt(raw string) string {
	return fmt.Sprintf(`You are a JSON parsing assistant. The following string is intended to be JSON but contains errors.
Correct the JSON syntax and reproduce exactly the same content.

Raw String:
%s

Return only the corrected JSON without any additional text, explanations or code fences.
`, raw)
}

// Repairer recovers structured data from malformed model output with a
// single extra model call.
type Repairer struct {
	Model  framework.LanguageModel
	Logger *zap.Logger
	// Observe, when set, is told whether each repair attempt succeeded.
	Observe func(ok bool)
}

// Repair issues exactly one correction call and re-extracts its output.
func (r *Repairer) Repair(ctx context.Context, raw string) (any, bool) {
	log := r.logger()
	if r.Model == nil {
		return nil, false
	}
	opts := RepairOptions
	resp, err := r.Model.Generate(ctx, RepairPrompt(raw), &opts)
	if err != nil || resp == nil || strings.TrimSpace(resp.Text) == "" {
		log.Warn("json repair returned no response", zap.Error(err))
		r.observe(false)
		return nil, false
	}
	v, ok := Extract(resp.Text)
	if !ok {
		log.Warn("json repair output still malformed", zap.Int("chars", len(resp.Text)))
	} else {
		log.Info("json repaired")
	}
	r.observe(ok)
	return v, ok
}

// Parse extracts structured data from raw, falling back to one repair call.
func (r *Repairer) Parse(ctx context.Context, raw string) (any, bool) {
	if v, ok := Extract(raw); ok {
		return v, true
	}
	r.logger().Warn("model output is not valid JSON, attempting repair")
	return r.Repair(ctx, raw)
}

// ParseObject is Parse restricted to JSON objects.
func (r *Repairer) ParseObject(ctx context.Context, raw string) (map[string]any, bool) {
	v, ok := r.Parse(ctx, raw)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

func (r *Repairer) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Repairer) observe(ok bool) {
	if r.Observe != nil {
		r.Observe(ok)
	}
}
