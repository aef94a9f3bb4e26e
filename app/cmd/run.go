package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [requirement...]",
		Short: "Process one requirement and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			report, err := s.coord.Run(cmd.Context(), strings.Join(args, " "))
			if report != nil {
				printRunReport(s.reporter, report)
			}
			return err
		},
	}
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert every logged change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			report, err := s.coord.Undo(cmd.Context())
			if report != nil {
				printUndoReport(s.reporter, report)
			}
			return err
		},
	}
}

func newRestructureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restructure [instructions...]",
		Short: "Ask the model for a new directory layout and apply it",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()
			report, err := s.coord.Restructure(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printRestructureReport(s.reporter, report)
			return nil
		},
	}
}
