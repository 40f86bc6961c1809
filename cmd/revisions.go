package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/placeprep/placeprep/internal/report"
	"github.com/placeprep/placeprep/internal/store"
)

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "List or prune stored revisions of the progress data",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		prune, _ := cmd.Flags().GetInt("prune")

		return withSession(cmd, func(s *session) error {
			if s.kv == nil {
				return fmt.Errorf("revisions: %w", errEphemeral)
			}
			ctx := cmd.Context()
			key := s.cfg.Progress.Key
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("prune") {
				if err := s.kv.Prune(ctx, key, prune); err != nil {
					return err
				}
				fmt.Fprintf(out, "Kept the %d most recent revision(s).\n", prune)
			}

			revs, err := s.kv.Revisions(ctx, key, store.QueryOpts{Limit: limit})
			if err != nil {
				return err
			}
			_, err = lipgloss.Fprintln(out, report.Revisions(revs))
			return err
		})
	},
}

func init() {
	revisionsCmd.Flags().Int("limit", 20, "Maximum revisions to list (0 = unlimited)")
	revisionsCmd.Flags().Int("prune", 0, "Delete all but the N most recent revisions")
}
