package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// Planner turns objectives into an ordered plan.
type Planner struct{ stage }

func NewPlanner(rt *Runtime) *Planner {
	return &Planner{stage{name: PlanAgent, rt: rt}}
}

// Run stores and returns the plan. Entries the model produced without an
// objective are kept with an empty Objective so the coordinator can report
// and skip them.
func (p *Planner) Run(ctx context.Context, objectives []string) []framework.PlanEntry {
	raw := p.generate(ctx, planPrompt(objectives), planOptions)
	if raw == "" {
		return nil
	}
	v, ok := p.parse(ctx, raw)
	if !ok {
		return nil
	}
	var items []any
	switch data := v.(type) {
	case map[string]any:
		items, _ = data["plan"].([]any)
	case []any:
		items = data
	}
	plan := make([]framework.PlanEntry, 0, len(items))
	for _, item := range items {
		plan = append(plan, planEntry(item))
	}
	p.remember("plan", plan)
	p.rt.log(p.name).Info("plan created", zap.Int("entries", len(plan)))
	return plan
}

// planEntry accepts either "tasks" or "steps" for the task list.
func planEntry(item any) framework.PlanEntry {
	obj, ok := item.(map[string]any)
	if !ok {
		return framework.PlanEntry{}
	}
	entry := framework.PlanEntry{}
	if s, ok := obj["objective"].(string); ok {
		entry.Objective = strings.TrimSpace(s)
	}
	entry.Tasks = stringList(obj, "tasks")
	if len(entry.Tasks) == 0 {
		entry.Tasks = stringList(obj, "steps")
	}
	return entry
}
