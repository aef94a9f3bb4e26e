package cmd

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/gitagent/agents"
	"github.com/lexcodex/gitagent/app/console"
	"github.com/lexcodex/gitagent/framework"
)

const replHelp = `Commands:
  help                                   show this list
  exit                                   quit
  undo changes                           revert every logged change
  restructure directories <instructions> reorganise the repository layout
Anything else is processed as a requirement.
`

const restructureCommand = "restructure directories"

// pipeline is what the prompt loop drives.
type pipeline interface {
	Run(ctx context.Context, requirement string) (*agents.RunReport, error)
	Restructure(ctx context.Context, instructions string) (*agents.RestructureReport, error)
}

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read requirements interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPLCommand(cmd)
		},
	}
}

func runREPLCommand(cmd *cobra.Command) error {
	s, err := newSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()
	s.reporter.Status("Welcome to the Agentic RAG System! Type 'help' for commands.")
	return repl(cmd.Context(), s.rt.Prompter, s.reporter, s.coord)
}

// repl reads commands until exit, end of input or cancellation. Pipeline
// failures are reported and the loop continues.
func repl(ctx context.Context, prompter framework.Prompter, out *console.Reporter, p pipeline) error {
	for {
		line, err := prompter.Ask(ctx, "Enter your requirement (or type 'help' for commands): ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, console.ErrInterrupted) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		lower := strings.ToLower(input)
		switch {
		case input == "":
			continue
		case lower == "exit" || lower == "quit":
			out.Status("Goodbye.")
			return nil
		case lower == "help":
			out.Printf("%s", replHelp)
		case lower == restructureCommand || strings.HasPrefix(lower, restructureCommand+" "):
			instructions := strings.TrimSpace(input[len(restructureCommand):])
			report, err := p.Restructure(ctx, instructions)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				out.Warn("Restructuring failed", err)
				continue
			}
			printRestructureReport(out, report)
		default:
			report, err := p.Run(ctx, input)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				out.Warn("Requirement processing failed", err)
				continue
			}
			printRunReport(out, report)
		}
	}
}
