// Package agents holds every pipeline stage and the coordinator that
// sequences them over a target repository.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/agents/pattern"
	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/internal/metrics"
	"github.com/lexcodex/gitagent/tools"
)

// Stage names double as memory namespaces and as the "agent" log field.
const (
	QueryUnderstandingAgent     = "QueryUnderstandingAgent"
	PlanAgent                   = "PlanAgent"
	ContextRetrievalAgent       = "ContextRetrievalAgent"
	IntermediateProcessingAgent = "IntermediateProcessingAgent"
	AnswerGenerationAgent       = "AnswerGenerationAgent"
	CodeWritingAgent            = "CodeWritingAgent"
	CodeValidationAgent         = "CodeValidationAgent"
	CodeCompleterAgent          = "CodeCompleterAgent"
	SelfReflectionAgent         = "SelfReflectionAgent"
	RepositoryMappingAgent      = "RepositoryMappingAgent"
	DirectoryStructuringAgent   = "DirectoryStructuringAgent"
	DocumentationAgent          = "DocumentationAgent"
	UndoAgent                   = "UndoAgent"
)

// Runtime is the set of collaborators shared by every stage of one
// coordinator.
type Runtime struct {
	Model  framework.LanguageModel
	Memory *framework.MemoryStore
	// Changes is required: every write goes through it.
	Changes    *framework.ChangeTracker
	Plans      *framework.PlanTracker
	Parsers    *ast.ParserRegistry
	ParseCache *ast.SQLiteStore
	Workspace  *tools.Workspace
	Prompter   framework.Prompter
	Reporter   framework.Reporter
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	// SkipDirs are absolute directories the repository walk never enters,
	// such as the tool's state directory when it lives inside the target.
	SkipDirs []string
}

func (rt *Runtime) log(agent string) *zap.Logger {
	if rt.Logger == nil {
		return zap.NewNop()
	}
	return rt.Logger.With(zap.String("agent", agent))
}

func (rt *Runtime) report() framework.Reporter {
	if rt.Reporter == nil {
		return framework.NopReporter{}
	}
	return rt.Reporter
}

func (rt *Runtime) parsers() *ast.ParserRegistry {
	if rt.Parsers == nil {
		rt.Parsers = ast.DefaultRegistry()
	}
	return rt.Parsers
}

// commitWrite writes after to file and then records the change. When the
// change log cannot be persisted the file is put back as it was, so the log
// never holds an entry for a write that did not happen.
func (rt *Runtime) commitWrite(agent, action, file, before, after string) error {
	existed := rt.Workspace.Exists(file)
	if err := rt.Workspace.Write(file, after); err != nil {
		return err
	}
	if err := rt.Changes.LogChange(agent, action, file, before, after); err != nil {
		rt.rollback(agent, file, before, existed)
		return fmt.Errorf("record change: %w", err)
	}
	return nil
}

func (rt *Runtime) rollback(agent, file, before string, existed bool) {
	var err error
	if existed {
		err = rt.Workspace.Write(file, before)
	} else {
		err = rt.Workspace.Remove(file)
	}
	if err != nil {
		rt.log(agent).Error("rollback failed", zap.String("file", file), zap.Error(err))
	}
}

// stage carries the helpers every model-backed stage uses.
type stage struct {
	name string
	rt   *Runtime
}

// generate returns the model's text, or "" when the backend failed or had
// nothing to say. Callers treat "" as "no response".
func (s stage) generate(ctx context.Context, prompt string, opts framework.LLMOptions) string {
	ctx = framework.WithStage(ctx, s.name)
	resp, err := s.rt.Model.Generate(ctx, prompt, &opts)
	if err != nil {
		s.rt.log(s.name).Warn("model call failed", zap.Error(err))
		s.rt.report().Warn(s.name+": no response from the model", err)
		return ""
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		s.rt.log(s.name).Warn("empty model response")
		s.rt.report().Warn(s.name+": empty response from the model", nil)
		return ""
	}
	return resp.Text
}

func (s stage) repairer() *pattern.Repairer {
	return &pattern.Repairer{
		Model:   s.rt.Model,
		Logger:  s.rt.log(s.name),
		Observe: s.rt.Metrics.Repair,
	}
}

// parseObject extracts a JSON object from raw with at most one repair call.
func (s stage) parseObject(ctx context.Context, raw string) (map[string]any, bool) {
	obj, ok := s.repairer().ParseObject(framework.WithStage(ctx, s.name), raw)
	if !ok {
		s.rt.log(s.name).Warn("could not parse model response", zap.Int("chars", len(raw)))
		s.rt.report().Warn(s.name+": could not parse the model response", nil)
	}
	return obj, ok
}

// parse is parseObject for stages that also accept a bare JSON array.
func (s stage) parse(ctx context.Context, raw string) (any, bool) {
	v, ok := s.repairer().Parse(framework.WithStage(ctx, s.name), raw)
	if !ok {
		s.rt.log(s.name).Warn("could not parse model response", zap.Int("chars", len(raw)))
		s.rt.report().Warn(s.name+": could not parse the model response", nil)
	}
	return v, ok
}

func (s stage) remember(key string, value any) {
	if s.rt.Memory == nil {
		return
	}
	if err := s.rt.Memory.Set(s.name, key, value); err != nil {
		s.rt.log(s.name).Error("memory write failed", zap.String("key", key), zap.Error(err))
	}
}

// appendMemory adds item to the list stored under key.
func (s stage) appendMemory(key string, item any) {
	if s.rt.Memory == nil {
		return
	}
	var list []any
	s.rt.Memory.Decode(s.name, key, &list)
	s.remember(key, append(list, item))
}

// stringList pulls a list of strings out of obj[key], tolerating a single
// string and dropping non-string items.
func stringList(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
