package cmd

import (
	"github.com/spf13/cobra"

	"github.com/placeprep/placeprep/internal/config"
	"github.com/placeprep/placeprep/internal/store"
)

// reportWidth is the width used for bars in rendered reports.
const reportWidth = 60

var rootCmd = &cobra.Command{
	Use:   "placeprep",
	Short: "Placement-prep quiz progress tracker",
	Long: "placeprep records quiz attempts for placement preparation and reports " +
		"accuracy by category, difficulty and quiz.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PLACEPREP_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./config/config.yaml)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep progress in memory only; nothing is written")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path (config file or PLACEPREP_DB), then the default
// XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}
