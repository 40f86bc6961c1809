package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/placeprep/placeprep/internal/report"
	"github.com/placeprep/placeprep/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent attempts",
	Long: "Show the most recent attempts, one per question. With --all, show the " +
		"full stored event log including replaced answers and resets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		return withSession(cmd, func(s *session) error {
			out := cmd.OutOrStdout()
			if !all {
				_, err := lipgloss.Fprintln(out, report.History(s.tracker.Snapshot().History))
				return err
			}
			if s.store == nil {
				return fmt.Errorf("history --all: %w", errEphemeral)
			}
			records, err := s.store.EventRepo().QueryEvents(cmd.Context(), store.QueryOpts{Limit: limit})
			if err != nil {
				return err
			}
			_, err = lipgloss.Fprintln(out, report.Events(records))
			return err
		})
	},
}

func init() {
	historyCmd.Flags().Bool("all", false, "Show the full event log from the database")
	historyCmd.Flags().Int("limit", 50, "Maximum events to show with --all (0 = unlimited)")
}
