package agents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/tools"
)

// maxPathAttempts bounds how many replacement paths the user may offer for
// one change.
const maxPathAttempts = 3

var changeValidate = validator.New()

var goPackageClause = regexp.MustCompile(`(?m)^\s*package\s+\w+\s*;?\s*$`)

// WriteResult summarises one batch of changes.
type WriteResult struct {
	Applied []framework.CodeChange
	Skipped int
}

// CodeWriter applies proposed changes to the repository behind a human
// confirmation gate.
type CodeWriter struct {
	stage
	Completer *CodeCompleter
}

func NewCodeWriter(rt *Runtime, completer *CodeCompleter) *CodeWriter {
	return &CodeWriter{stage: stage{name: CodeWritingAgent, rt: rt}, Completer: completer}
}

// Apply runs every change through the write protocol in order. Rejected
// changes are reported and skipped; the error is reserved for a failing
// prompter or a cancelled context.
func (w *CodeWriter) Apply(ctx context.Context, changes []framework.CodeChange) (WriteResult, error) {
	var res WriteResult
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		applied, ok, err := w.applyOne(ctx, change)
		if err != nil {
			return res, err
		}
		if ok {
			res.Applied = append(res.Applied, applied)
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func (w *CodeWriter) applyOne(ctx context.Context, change framework.CodeChange) (framework.CodeChange, bool, error) {
	action, ok := framework.NormalizeAction(change.Action)
	if !ok {
		return change, false, w.skip(change, "unsupported action", fmt.Errorf("%w: %q", framework.ErrUnsupportedAction, change.Action))
	}
	change.Action = string(action)
	if err := changeValidate.Struct(change); err != nil || strings.TrimSpace(change.Code) == "" {
		return change, false, w.skip(change, "missing file or code", err)
	}

	var (
		parser   ast.Parser
		isSource bool
	)
	for attempt := 0; ; attempt++ {
		if attempt >= maxPathAttempts {
			return change, false, w.skip(change, "too many alternative paths", nil)
		}
		if _, err := w.rt.Workspace.Resolve(change.File); err != nil {
			return change, false, w.skip(change, "rejected path", err)
		}
		parser, isSource = w.rt.parsers().ForFile(change.File)
		if isSource {
			if err := parser.Validate(change.Code); err != nil {
				return change, false, w.skip(change, "invalid syntax", err)
			}
		}
		w.rt.report().Show("Proposed change", formatChange(change))
		reply, err := w.rt.Prompter.Ask(ctx, "Do you want to apply this change? (yes/no): ")
		if err != nil {
			return change, false, err
		}
		answer := framework.ParseAnswer(reply)
		if answer == framework.AnswerYes {
			break
		}
		if answer != framework.AnswerNo {
			return change, false, w.skip(change, "unrecognised answer", nil)
		}
		next, err := w.rt.Prompter.Ask(ctx, "Enter a new file path to apply this change, or press Enter to skip: ")
		if err != nil {
			return change, false, err
		}
		next = strings.TrimSpace(next)
		if next == "" {
			return change, false, w.skip(change, "declined", nil)
		}
		w.rt.log(w.name).Info("retrying change against new path",
			zap.String("file", change.File), zap.String("new_file", next))
		change.File = next
	}

	ready, err := w.completeTarget(ctx, change, parser, isSource)
	if err != nil {
		return change, false, err
	}
	if !ready {
		return change, false, w.skip(change, "target still has incomplete functions", nil)
	}

	hints, err := w.rt.Prompter.Ask(ctx, "Any hints or instructions for this change? (press Enter to skip): ")
	if err != nil {
		return change, false, err
	}
	if hints = strings.TrimSpace(hints); hints != "" {
		change.Code = withHints(change.Code, hints, commentPrefix(parser))
		if isSource {
			if err := parser.Validate(change.Code); err != nil {
				return change, false, w.skip(change, "invalid syntax after hints", err)
			}
		}
		w.rt.report().Show("Updated change", formatChange(change))
		ok, err := framework.Confirm(ctx, w.rt.Prompter, "Do you want to apply the updated code?")
		if err != nil {
			return change, false, err
		}
		if !ok {
			return change, false, w.skip(change, "declined", nil)
		}
	}

	if err := w.write(change, action, parser, isSource); err != nil {
		return change, false, w.skip(change, "write failed", err)
	}
	w.appendMemory("applied_changes", change)
	w.rt.Metrics.Change(change.Action, "applied")
	w.rt.log(w.name).Info("change applied", zap.String("file", change.File), zap.String("action", change.Action))
	w.rt.report().Status(fmt.Sprintf("Applied %s to '%s'.", change.Action, change.File))
	return change, true, nil
}

// completeTarget runs a completion sub-plan for placeholder functions in an
// existing source file and reports whether none remain. The function an
// update is about to replace does not count.
func (w *CodeWriter) completeTarget(ctx context.Context, change framework.CodeChange, parser ast.Parser, isSource bool) (bool, error) {
	if !isSource {
		return true, nil
	}
	pending := w.pendingPlaceholders(change, parser)
	if len(pending) == 0 {
		return true, nil
	}
	if w.Completer == nil {
		return false, nil
	}
	planName := "Complete Functions in " + change.File
	goals := make([]string, 0, len(pending))
	for _, rec := range pending {
		goals = append(goals, rec.Objective())
	}
	w.rt.report().Status(fmt.Sprintf("'%s' has %d incomplete functions; completing them first.", change.File, len(pending)))
	if w.rt.Plans != nil {
		if err := w.rt.Plans.AddPlan(planName, goals); err != nil {
			w.rt.log(w.name).Error("plan tracker write failed", zap.Error(err))
		}
	}
	for _, rec := range pending {
		done, err := w.Completer.Complete(ctx, rec)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			w.rt.log(w.name).Warn("completion failed", zap.String("function", rec.Function), zap.Error(err))
			continue
		}
		if done && w.rt.Plans != nil {
			if err := w.rt.Plans.MarkSubPlanCompleted(planName, rec.Objective()); err != nil {
				w.rt.log(w.name).Error("plan tracker write failed", zap.Error(err))
			}
		}
	}
	return len(w.pendingPlaceholders(change, parser)) == 0, nil
}

func (w *CodeWriter) pendingPlaceholders(change framework.CodeChange, parser ast.Parser) []framework.FunctionRecord {
	content, exists, err := w.rt.Workspace.Read(change.File)
	if err != nil || !exists {
		return nil
	}
	fns, err := parser.Functions([]byte(content))
	if err != nil {
		return nil
	}
	target := ""
	if change.Action == string(framework.ActionUpdate) {
		target, _ = ast.FirstFunctionName(parser, change.Code)
	}
	var out []framework.FunctionRecord
	for _, rec := range structuralIncomplete(change.File, fns) {
		if rec.Function != target {
			out = append(out, rec)
		}
	}
	return out
}

// write computes the new file content and commits it through the change
// tracker.
func (w *CodeWriter) write(change framework.CodeChange, action framework.Action, parser ast.Parser, isSource bool) error {
	before, exists, err := w.rt.Workspace.Read(change.File)
	if err != nil {
		return err
	}
	code := change.Code
	if !exists {
		after := newFileContent(change.File, code, parser)
		if isSource {
			if err := parser.Validate(after); err != nil {
				return err
			}
		}
		return w.rt.commitWrite(w.name, "create", change.File, "", after)
	}
	if !isSource {
		return w.rt.commitWrite(w.name, string(action), change.File, before, tools.AppendContent(before, code))
	}

	fns, err := parser.Functions([]byte(before))
	if err != nil {
		return fmt.Errorf("existing file does not parse: %w", err)
	}
	if parser.Language() == "go" {
		code = strings.TrimSpace(goPackageClause.ReplaceAllString(code, ""))
	}
	name, hasName := ast.FirstFunctionName(parser, code)
	var after string
	switch action {
	case framework.ActionAdd:
		if hasName {
			if _, found := ast.FindFunction(fns, name); found {
				return fmt.Errorf("%w: %s", framework.ErrFunctionExists, name)
			}
		}
		after = tools.AppendContent(before, code)
	case framework.ActionUpdate:
		if !hasName {
			return framework.ErrNoFunctionName
		}
		fn, found := ast.FindFunction(fns, name)
		if !found {
			w.rt.log(w.name).Info("function to update not found, appending",
				zap.String("file", change.File), zap.String("function", name))
			after = tools.AppendContent(before, code)
			break
		}
		after, err = tools.ReplaceLines(before, fn.StartLine, fn.EndLine, code)
		if err != nil {
			return err
		}
	}
	if err := parser.Validate(after); err != nil {
		return fmt.Errorf("file would no longer parse: %w", err)
	}
	return w.rt.commitWrite(w.name, string(action), change.File, before, after)
}

func (w *CodeWriter) skip(change framework.CodeChange, reason string, cause error) error {
	w.rt.log(w.name).Warn("change skipped",
		zap.String("reason", reason),
		zap.String("file", change.File),
		zap.String("action", change.Action),
		zap.Error(cause))
	w.rt.report().Warn(fmt.Sprintf("Skipping change to '%s': %s", change.File, reason), cause)
	w.rt.Metrics.Change(change.Action, "skipped")
	return nil
}

// newFileContent is the full content of a file created by a change. Go
// snippets get a package clause named after their directory.
func newFileContent(file, code string, parser ast.Parser) string {
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	if parser == nil || parser.Language() != "go" || goPackageClause.MatchString(code) {
		return code
	}
	return "package " + goPackageName(file) + "\n\n" + code
}

func goPackageName(file string) string {
	dir := path.Base(path.Dir(file))
	if dir == "." || dir == "/" {
		return "main"
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, dir)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return "main"
	}
	return name
}

func commentPrefix(parser ast.Parser) string {
	if parser != nil && parser.Language() == "go" {
		return "//"
	}
	return "#"
}

// withHints appends the user's hints to code as a comment block.
func withHints(code, hints, prefix string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(code, "\n"))
	b.WriteString("\n\n")
	b.WriteString(prefix + " User Hints/Instructions:\n")
	for _, line := range strings.Split(hints, "\n") {
		b.WriteString(prefix + " " + strings.TrimSpace(line) + "\n")
	}
	return b.String()
}
