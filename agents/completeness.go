package agents

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
)

const placeholderSuggestion = "The function body is only a placeholder; implement it."

// CompletenessChecker combines the structural placeholder check with the
// model's own verdict. Either one saying Incomplete wins.
type CompletenessChecker struct {
	stage
	// UseModel enables the model verdict for structurally complete
	// functions.
	UseModel bool
}

func NewCompletenessChecker(rt *Runtime) *CompletenessChecker {
	return &CompletenessChecker{stage: stage{name: CodeValidationAgent, rt: rt}, UseModel: true}
}

// IsComplete is the structural verdict: a body holding more than a
// docstring and no-op placeholders.
func IsComplete(fn ast.Function) bool { return fn.Complete() }

// Analyze judges fn from file. A placeholder body is Incomplete without
// consulting the model; otherwise a model answer of Incomplete overrides
// the structural verdict and an unusable answer leaves it standing.
func (c *CompletenessChecker) Analyze(ctx context.Context, file, language string, fn ast.Function) framework.FunctionRecord {
	rec := framework.FunctionRecord{File: file, Function: fn.Name, IsComplete: IsComplete(fn)}
	if !rec.IsComplete {
		rec.Suggestions = placeholderSuggestion
		return rec
	}
	if !c.UseModel || c.rt.Model == nil {
		return rec
	}
	raw := c.generate(ctx, completenessPrompt(language, fn.Source), completenessOptions)
	if raw == "" {
		return rec
	}
	obj, ok := c.parseObject(ctx, raw)
	if !ok {
		return rec
	}
	status, _ := obj["status"].(string)
	if status == "" {
		return rec
	}
	if !strings.EqualFold(strings.TrimSpace(status), "complete") {
		rec.IsComplete = false
		rec.Suggestions, _ = obj["suggestions"].(string)
		c.rt.log(c.name).Info("model judged function incomplete",
			zap.String("file", file), zap.String("function", fn.Name))
	}
	return rec
}

// structuralIncomplete lists the placeholder functions of a parsed file.
func structuralIncomplete(file string, fns []ast.Function) []framework.FunctionRecord {
	var out []framework.FunctionRecord
	for _, fn := range fns {
		if !IsComplete(fn) {
			out = append(out, framework.FunctionRecord{
				File:        file,
				Function:    fn.Name,
				Suggestions: placeholderSuggestion,
			})
		}
	}
	return out
}
