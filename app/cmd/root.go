package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lexcodex/gitagent/internal/config"
)

var (
	cfgFile    string
	repoDir    string
	quiet      bool
	structural bool
	publish    bool
)

// Execute is the entry point for the CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree. Without a subcommand it starts the
// interactive prompt.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gitagent",
		Short:         "Turn natural-language change requests into reviewed repository edits",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if repoDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				repoDir = wd
			}
			if cfgFile == "" {
				base, err := os.Getwd()
				if err != nil {
					return err
				}
				cfgFile = config.DefaultPath(base)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPLCommand(cmd)
		},
	}
	root.PersistentFlags().StringVar(&repoDir, "repo", "", "Target repository directory (default: current directory)")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the gitagent config file")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "Do not mirror warnings and errors to stderr")
	root.PersistentFlags().BoolVar(&structural, "structural-only", false, "Judge completeness without asking the model")
	root.PersistentFlags().BoolVar(&publish, "publish", false, "Publish the run to GitHub even when github.enabled is false")

	root.AddCommand(
		newREPLCmd(),
		newRunCmd(),
		newUndoCmd(),
		newRestructureCmd(),
		newPlansCmd(),
		newChangesCmd(),
		newConfigCmd(),
	)
	return root
}
