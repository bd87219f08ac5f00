package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "supertutor",
	Short: "Adaptive course builder and tutor",
	Long: `Supertutor turns a subject into a playful, adaptive course: multiple choice checks,
reflective prompts and hands-on projects, generated by an LLM when one is configured
and by a built-in curriculum when not.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./supertutor.yaml if present)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides store.dsn and SUPERTUTOR_DB)")
	rootCmd.PersistentFlags().String("user", "local", "Learner id for CLI sessions; empty keeps the session in memory only")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}
