package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

func newPlansCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List tracked plans and their sub-goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			if pending {
				for _, p := range s.rt.Plans.PendingSubPlans() {
					s.reporter.Printf("%s: %s\n", p.PlanName, p.SubPlanName)
				}
				return nil
			}
			plans := s.rt.Plans.Plans()
			if len(plans) == 0 {
				s.reporter.Printf("No plans tracked.\n")
				return nil
			}
			for _, p := range plans {
				s.reporter.Printf("%s  %s\n", p.CreatedAt.Local().Format(time.DateTime), p.PlanName)
				for _, sp := range p.SubPlans {
					s.reporter.Printf("  [%s] %s\n", sp.Status, sp.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "Only list pending sub-goals")
	return cmd
}

func newChangesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changes",
		Short: "List the change log consumed by undo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()
			entries := s.rt.Changes.Changes()
			if len(entries) == 0 {
				s.reporter.Printf("No changes logged.\n")
				return nil
			}
			for _, e := range entries {
				s.reporter.Printf("%s  %-8s %-26s %s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Action, e.Agent, e.File)
			}
			return nil
		},
	}
}
