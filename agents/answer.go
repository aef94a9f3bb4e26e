package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// AnswerGenerator drafts the code changes for one objective.
type AnswerGenerator struct{ stage }

func NewAnswerGenerator(rt *Runtime) *AnswerGenerator {
	return &AnswerGenerator{stage{name: AnswerGenerationAgent, rt: rt}}
}

// Run returns the proposed changes as the model wrote them. Action
// spellings and missing fields are dealt with by the code writer.
func (a *AnswerGenerator) Run(ctx context.Context, objective string, relevant, additional []string) []framework.CodeChange {
	raw := a.generate(ctx, answerPrompt(objective, relevant, additional, a.repoPath()), answerOptions)
	if raw == "" {
		return nil
	}
	v, ok := a.parse(ctx, raw)
	if !ok {
		return nil
	}
	var items []any
	switch data := v.(type) {
	case map[string]any:
		if list, ok := data["code_changes"].([]any); ok {
			items = list
		} else if _, single := data["code"]; single {
			items = []any{data}
		}
	case []any:
		items = data
	}
	changes := make([]framework.CodeChange, 0, len(items))
	for _, item := range items {
		if change, ok := codeChange(item); ok {
			changes = append(changes, change)
		}
	}
	a.remember("code_changes_"+objective, changes)
	a.rt.log(a.name).Info("code changes generated",
		zap.String("objective", objective), zap.Int("count", len(changes)))
	return changes
}

// codeChange reads one {action, file, code} object.
func codeChange(item any) (framework.CodeChange, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return framework.CodeChange{}, false
	}
	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}
	return framework.CodeChange{
		Action: strings.TrimSpace(str("action")),
		File:   strings.TrimSpace(str("file")),
		Code:   str("code"),
	}, true
}
