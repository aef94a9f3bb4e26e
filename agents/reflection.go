package agents

import (
	"context"

	"github.com/lexcodex/gitagent/framework"
)

// SelfReflector reviews applied changes. Its output is advisory.
type SelfReflector struct{ stage }

func NewSelfReflector(rt *Runtime) *SelfReflector {
	return &SelfReflector{stage{name: SelfReflectionAgent, rt: rt}}
}

func (r *SelfReflector) Run(ctx context.Context, applied []framework.CodeChange) string {
	if len(applied) == 0 {
		return ""
	}
	raw := r.generate(ctx, reflectionPrompt(applied), reflectionOptions)
	if raw == "" {
		return ""
	}
	obj, ok := r.parseObject(ctx, raw)
	if !ok {
		return ""
	}
	reflection, _ := obj["reflection"].(string)
	if reflection == "" {
		return ""
	}
	r.remember("reflection", reflection)
	r.rt.report().Show("Self-reflection", reflection)
	return reflection
}
