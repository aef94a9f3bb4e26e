package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexcodex/gitagent/framework"
)

// Model settings per stage.
var (
	queryOptions        = framework.LLMOptions{MaxTokens: 500, Temperature: 0.3}
	planOptions         = framework.LLMOptions{MaxTokens: 1000, Temperature: 0.2}
	contextOptions      = framework.LLMOptions{MaxTokens: 700, Temperature: 0.3}
	intermediateOptions = framework.LLMOptions{MaxTokens: 700, Temperature: 0.3}
	answerOptions       = framework.LLMOptions{MaxTokens: 1000, Temperature: 0.3}
	reflectionOptions   = framework.LLMOptions{MaxTokens: 500, Temperature: 0.3}
	completenessOptions = framework.LLMOptions{MaxTokens: 150, Temperature: 0.2}
	completionOptions   = framework.LLMOptions{MaxTokens: 300, Temperature: 0.7}
	restructureOptions  = framework.LLMOptions{MaxTokens: 1000, Temperature: 0.2}
)

func bullets(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func queryPrompt(requirement string) string {
	return fmt.Sprintf(`You are a helpful assistant. The user has provided the following requirement:

%q

Break this requirement down into clear, actionable objectives that can be used to plan the implementation.
Respond strictly with JSON in the following format and nothing else:

{
    "objectives": [
        "Objective 1",
        "Objective 2"
    ]
}
`, requirement)
}

func planPrompt(objectives []string) string {
	return fmt.Sprintf(`You are a planning assistant. Create a plan listing the steps required to achieve each of the following objectives. Keep the plan clear, actionable and logically ordered.

Objectives:
%s

Respond strictly with JSON in the following format and nothing else:

{
    "plan": [
        {
            "objective": "Objective 1",
            "steps": ["Step 1", "Step 2"]
        }
    ]
}
`, bullets(objectives))
}

func contextPrompt(objective string, relevant []string) string {
	return fmt.Sprintf(`You are a context retrieval assistant. Provide information, code snippets and references that help accomplish the following sub-objective:

%q

Functions already present in the repository that look related:
%s

Only include context that directly helps the implementation.
Respond strictly with JSON in the following format and nothing else:

{
    "context": [
        "Context 1",
        "Context 2"
    ]
}
`, objective, bullets(relevant))
}

func intermediatePrompt(objective string, relevant, retrieved []string, repoPath string) string {
	return fmt.Sprintf(`You are an intermediate processing assistant preparing for code generation.

Sub-Objective:
%q

Relevant Functions:
%s

Retrieved Context:
%s

Repository Path:
%q

Describe any additional context or preparation needed to accomplish the sub-objective.
Respond strictly with JSON in the following format and nothing else:

{
    "additional_context": [
        "Additional Context 1",
        "Additional Context 2"
    ]
}
`, objective, bullets(relevant), bullets(retrieved), repoPath)
}

func answerPrompt(objective string, relevant, additional []string, repoPath string) string {
	return fmt.Sprintf(`You are a code generation assistant. Generate the code changes needed to accomplish the sub-objective below.

Sub-Objective:
%q

Relevant Functions:
%s

Additional Context:
%s

Repository Path:
%q

Rules:
- "action" is "add" for a new function or "update" to replace an existing function of the same name.
- "file" is a path relative to the repository root.
- "code" is the complete source of one function.

Respond strictly with JSON in the following format and nothing else:

{
    "code_changes": [
        {
            "action": "add",
            "file": "relative/path/to/file.py",
            "code": "def new_function():\n    return 1\n"
        }
    ]
}
`, objective, bullets(relevant), bullets(additional), repoPath)
}

func reflectionPrompt(changes []framework.CodeChange) string {
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("%s code in file '%s'.", capitalize(c.Action), c.File))
	}
	return fmt.Sprintf(`You have made the following changes to the codebase:

%s

Reflect on these changes and suggest improvements or best practices that would raise code quality and maintainability.
Respond strictly with JSON in the following format and nothing else:

{
    "reflection": "Your reflection and suggestions here."
}
`, bullets(lines))
}

func completenessPrompt(language, source string) string {
	return fmt.Sprintf(`You are a code analysis assistant. Decide whether the following %s function is complete and free of errors. If it is incomplete or wrong, suggest how to complete or fix it.

Function Code:
%s

Respond strictly with JSON in the following format and nothing else:

{
    "status": "Complete" or "Incomplete",
    "suggestions": "Your suggestions here if incomplete."
}
`, language, source)
}

func completionPrompt(language string, rec framework.FunctionRecord, source, fileContent string) string {
	hint := ""
	if rec.Suggestions != "" {
		hint = "\nReviewer suggestions:\n" + rec.Suggestions + "\n"
	}
	return fmt.Sprintf(`You are a helpful coding assistant. The %s function '%s' in the file %s is incomplete:

%s
%s
Full file for context:

%s

Provide a complete implementation of '%s' that fits the rest of the file. Keep its name and signature.
Respond strictly with JSON in the following format and nothing else:

{
    "action": "update",
    "file": %q,
    "code": "the complete function source"
}
`, language, rec.Function, rec.File, source, hint, fileContent, rec.Function, rec.File)
}

func restructurePrompt(instructions string, files []string) string {
	return fmt.Sprintf(`You are a repository organisation assistant. Propose a directory layout for the files below following the user's instructions.

Instructions:
%q

Current files:
%s

Map each target directory (relative to the repository root, "." for the root) to the current paths of the files that belong in it. Only use files from the list above.
Respond strictly with JSON in the following format and nothing else:

{
    "structure": {
        "pkg/utils": ["utils.py", "helpers.py"]
    }
}
`, instructions, bullets(files))
}

// formatChange renders a proposed change for confirmation.
func formatChange(c framework.CodeChange) string {
	return fmt.Sprintf("Action: %s\nFile: %s\n\n%s", c.Action, c.File, strings.TrimRight(c.Code, "\n"))
}

// formatStructure renders a restructuring proposal in directory order.
func formatStructure(structure map[string][]string) string {
	dirs := make([]string, 0, len(structure))
	for dir := range structure {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	var b strings.Builder
	for _, dir := range dirs {
		fmt.Fprintf(&b, "%s/\n", dir)
		for _, f := range structure[dir] {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
