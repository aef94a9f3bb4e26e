package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/tools"
)

// CodeCompleter replaces a placeholder function with a model-written
// implementation after the user confirms it.
type CodeCompleter struct{ stage }

func NewCodeCompleter(rt *Runtime) *CodeCompleter {
	return &CodeCompleter{stage{name: CodeCompleterAgent, rt: rt}}
}

// Complete reports whether rec's function was rewritten. Refusals and model
// failures are reported and return false without an error; only a failed
// write is an error.
func (c *CodeCompleter) Complete(ctx context.Context, rec framework.FunctionRecord) (bool, error) {
	log := c.rt.log(c.name).With(zap.String("file", rec.File), zap.String("function", rec.Function))
	content, exists, err := c.rt.Workspace.Read(rec.File)
	if err != nil || !exists {
		log.Warn("cannot read file to complete", zap.Error(err))
		return false, nil
	}
	parser, ok := c.rt.parsers().ForFile(rec.File)
	if !ok {
		log.Warn("no parser for file")
		return false, nil
	}
	fns, err := parser.Functions([]byte(content))
	if err != nil {
		log.Warn("file does not parse", zap.Error(err))
		return false, nil
	}
	fn, ok := ast.FindFunction(fns, rec.Function)
	if !ok {
		log.Warn("function to complete not found", zap.Error(framework.ErrFunctionNotFound))
		return false, nil
	}

	c.rt.report().Status(fmt.Sprintf("Generating completion for function '%s' in '%s'.", rec.Function, rec.File))
	raw := c.generate(ctx, completionPrompt(parser.Language(), rec, fn.Source, content), completionOptions)
	if raw == "" {
		return false, nil
	}
	obj, ok := c.parseObject(ctx, raw)
	if !ok {
		return false, nil
	}
	code, _ := obj["code"].(string)
	if strings.TrimSpace(code) == "" {
		log.Warn("completion has no code")
		return false, nil
	}
	if err := parser.Validate(code); err != nil {
		log.Warn("completion has invalid syntax", zap.Error(err))
		c.rt.report().Warn("Completion for '"+rec.Function+"' has invalid syntax", err)
		return false, nil
	}
	if name, ok := ast.FirstFunctionName(parser, code); !ok || name != rec.Function {
		log.Warn("completion defines a different function", zap.String("got", name))
		return false, nil
	}

	updated, err := tools.ReplaceLines(content, fn.StartLine, fn.EndLine, code)
	if err != nil {
		return false, err
	}
	if err := parser.Validate(updated); err != nil {
		log.Warn("file would no longer parse", zap.Error(err))
		return false, nil
	}
	c.rt.report().Show("Proposed completion", formatChange(framework.CodeChange{
		Action: string(framework.ActionUpdate), File: rec.File, Code: code,
	}))
	ok, err = framework.Confirm(ctx, c.rt.Prompter, "Do you want to apply this completion?")
	if err != nil {
		return false, err
	}
	if !ok {
		c.rt.Metrics.Change(string(framework.ActionUpdate), "declined")
		log.Info("completion declined")
		return false, nil
	}
	if err := c.rt.commitWrite(c.name, string(framework.ActionUpdate), rec.File, content, updated); err != nil {
		return false, err
	}
	c.appendMemory("completed_functions", framework.FunctionRecord{File: rec.File, Function: rec.Function, IsComplete: true})
	c.rt.Metrics.Change(string(framework.ActionUpdate), "completed")
	log.Info("function completed")
	c.rt.report().Status(fmt.Sprintf("Completed function '%s' in '%s'.", rec.Function, rec.File))
	return true, nil
}
