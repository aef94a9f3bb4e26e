package cmd

import (
	"fmt"
	"strings"

	"github.com/lexcodex/gitagent/agents"
	"github.com/lexcodex/gitagent/app/console"
)

func printRunReport(out *console.Reporter, r *agents.RunReport) {
	if r.Undo != nil {
		printUndoReport(out, r.Undo)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run:        %s\n", r.RunID)
	fmt.Fprintf(&b, "Objectives: %d\n", len(r.Objectives))
	for _, o := range r.Objectives {
		fmt.Fprintf(&b, "  - %s\n", o)
	}
	fmt.Fprintf(&b, "Applied:    %d\n", len(r.Applied))
	for _, c := range r.Applied {
		fmt.Fprintf(&b, "  - %s %s\n", c.Action, c.File)
	}
	fmt.Fprintf(&b, "Skipped:    %d\n", r.Skipped)
	fmt.Fprintf(&b, "Retries:    %d\n", r.Retries)
	if len(r.Incomplete) > 0 {
		fmt.Fprintf(&b, "Incomplete: %d\n", len(r.Incomplete))
		for _, f := range r.Incomplete {
			fmt.Fprintf(&b, "  - %s:%s\n", f.File, f.Function)
		}
	}
	if r.Published {
		fmt.Fprintf(&b, "Pull request: %s\n", r.PullRequestURL)
	}
	out.Show("Run report", b.String())
}

func printUndoReport(out *console.Reporter, r *agents.UndoReport) {
	if len(r.Restored) == 0 && len(r.Skipped) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Restored: %d\n", len(r.Restored))
	for _, f := range r.Skipped {
		fmt.Fprintf(&b, "Skipped:  %s\n", f)
	}
	out.Show("Undo report", b.String())
}

func printRestructureReport(out *console.Reporter, r *agents.RestructureReport) {
	if r == nil || (len(r.Moved) == 0 && len(r.Skipped) == 0) {
		return
	}
	var b strings.Builder
	for _, m := range r.Moved {
		fmt.Fprintf(&b, "%s -> %s\n", m.From, m.To)
	}
	for _, f := range r.Skipped {
		fmt.Fprintf(&b, "skipped %s\n", f)
	}
	out.Show("Restructure report", b.String())
}
