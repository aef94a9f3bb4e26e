package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
)

// RunSummary is what the documentation block records about a run.
type RunSummary struct {
	RunID       string
	Requirement string
	Objectives  []string
	Applied     []framework.CodeChange
	At          time.Time
}

// DocsUpdater appends a summary block to the repository README.
type DocsUpdater struct {
	stage
	File string
}

func NewDocsUpdater(rt *Runtime, file string) *DocsUpdater {
	if file == "" {
		file = "README.md"
	}
	return &DocsUpdater{stage: stage{name: DocumentationAgent, rt: rt}, File: file}
}

// Run appends the block, creating the file when needed. The write goes
// through the change log like any other.
func (d *DocsUpdater) Run(_ context.Context, summary RunSummary) error {
	before, exists, err := d.rt.Workspace.Read(d.File)
	if err != nil {
		return err
	}
	block := readmeBlock(summary)
	action, after := actionCreate, block
	if exists {
		action = "append"
		after = before
		if after != "" && !strings.HasSuffix(after, "\n") {
			after += "\n"
		}
		after += "\n" + block
	}
	if err := d.rt.commitWrite(d.name, action, d.File, before, after); err != nil {
		return err
	}
	d.rt.log(d.name).Info("readme updated", zap.String("file", d.File))
	d.rt.report().Status(fmt.Sprintf("%s updated.", d.File))
	return nil
}

func readmeBlock(s RunSummary) string {
	var b strings.Builder
	b.WriteString("# Agentic RAG System Updates\n\n")
	b.WriteString("## Recent Enhancements\n\n")
	fmt.Fprintf(&b, "- Requirement: %s\n", s.Requirement)
	objectives := "none"
	if len(s.Objectives) > 0 {
		objectives = strings.Join(s.Objectives, "; ")
	}
	fmt.Fprintf(&b, "- Objectives: %s\n", objectives)
	applied := "none"
	if len(s.Applied) > 0 {
		parts := make([]string, 0, len(s.Applied))
		for _, c := range s.Applied {
			parts = append(parts, c.Action+" "+c.File)
		}
		applied = strings.Join(parts, ", ")
	}
	fmt.Fprintf(&b, "- Applied changes: %s\n", applied)
	fmt.Fprintf(&b, "- Run: %s at %s\n", s.RunID, s.At.UTC().Format(time.RFC3339))
	return b.String()
}
