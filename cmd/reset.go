package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset all quiz progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("reset: this clears all attempts and history; pass --yes to confirm")
		}
		return withSession(cmd, func(s *session) error {
			s.tracker.Reset(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
