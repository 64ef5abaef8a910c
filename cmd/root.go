package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "docquiz",
	Short: "Timed quizzes generated from your documents",
	Long: "DocQuiz turns a PDF into a timed multiple-choice quiz with an LLM, " +
		"scores the attempt and writes a study report. Run it as an HTTP " +
		"service (docquiz serve) or in the terminal (docquiz take).",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DOCQUIZ_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then DOCQUIZ_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
