package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "tflow",
	Short: "taskflow - a task graph kept in plain text files",
	Long: `taskflow (tflow) keeps a project's tasks as one markdown file each and
turns free-form notes dropped in the thought inbox into proposed tasks.

Tasks form a dependency graph; "tflow task next" picks the most urgent task
whose dependencies are done. Notes are analyzed line by line for actionable
intent, checked against existing tasks for duplicates, and archived with a
log entry once processed.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tflow %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
