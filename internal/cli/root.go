package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boardq",
	Short: "Kanban boards with explicit ordering on a SQLite backend",
	Long: `boardq manages kanban boards, columns and cards. Presentation order lives
in explicit order lists; drags and edits are applied optimistically and
reconciled with the store, rolling back on failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides BOARDQ_DB_PATH)")
	rootCmd.PersistentFlags().String("board", "", "Board to operate on (overrides BOARDQ_BOARD)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json, ndjson, yaml, tsv")
	rootCmd.PersistentFlags().Bool("porcelain", false, "Stable machine-readable table output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}
