package agents

import (
	"context"

	"go.uber.org/zap"
)

// IntermediateProcessor asks the model what else code generation needs to
// know for an objective.
type IntermediateProcessor struct{ stage }

func NewIntermediateProcessor(rt *Runtime) *IntermediateProcessor {
	return &IntermediateProcessor{stage{name: IntermediateProcessingAgent, rt: rt}}
}

func (p *IntermediateProcessor) Run(ctx context.Context, objective string, relevant, retrieved []string) []string {
	raw := p.generate(ctx, intermediatePrompt(objective, relevant, retrieved, p.repoPath()), intermediateOptions)
	if raw == "" {
		return nil
	}
	obj, ok := p.parseObject(ctx, raw)
	if !ok {
		return nil
	}
	additional := stringList(obj, "additional_context")
	p.remember("additional_context_"+objective, additional)
	p.rt.log(p.name).Info("additional context prepared",
		zap.String("objective", objective), zap.Int("items", len(additional)))
	return additional
}

func (s stage) repoPath() string {
	if s.rt.Workspace == nil {
		return "."
	}
	return s.rt.Workspace.Root
}
