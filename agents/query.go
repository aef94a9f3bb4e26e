package agents

import (
	"context"

	"go.uber.org/zap"
)

// QueryUnderstanding breaks a free-text requirement into objectives.
type QueryUnderstanding struct{ stage }

func NewQueryUnderstanding(rt *Runtime) *QueryUnderstanding {
	return &QueryUnderstanding{stage{name: QueryUnderstandingAgent, rt: rt}}
}

// Run stores and returns the objectives. An empty result means the stage
// failed and has already been reported.
func (q *QueryUnderstanding) Run(ctx context.Context, requirement string) []string {
	raw := q.generate(ctx, queryPrompt(requirement), queryOptions)
	if raw == "" {
		return nil
	}
	v, ok := q.parse(ctx, raw)
	if !ok {
		return nil
	}
	var objectives []string
	switch data := v.(type) {
	case map[string]any:
		objectives = stringList(data, "objectives")
	case []any:
		objectives = stringList(map[string]any{"objectives": data}, "objectives")
	}
	q.remember("objectives", objectives)
	q.rt.log(q.name).Info("objectives parsed", zap.Int("count", len(objectives)))
	return objectives
}
