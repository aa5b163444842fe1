package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskflow/internal/core"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a taskflow workspace",
	Long: `Initialize a new or existing directory as a taskflow workspace: the
.taskflow.yaml config, the task and thought directories, and starter
roadmap and decisions documents.

Safe to run on existing projects -- files and directories that already
exist are skipped and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectInit == nil {
			return fmt.Errorf("project initializer not initialized")
		}

		basePath := "."
		if len(args) > 0 {
			basePath = args[0]
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		name, _ := cmd.Flags().GetString("name")
		project, _ := cmd.Flags().GetString("project")
		if name == "" {
			name = filepath.Base(absPath)
		}

		result, err := ProjectInit.Init(core.InitConfig{
			BasePath: absPath,
			Name:     name,
			Project:  project,
		})
		if err != nil {
			return fmt.Errorf("initializing project: %w", err)
		}

		printPaths("Created:", absPath, result.Created)
		printPaths("Skipped (already exist):", absPath, result.Skipped)

		fmt.Printf("\nWorkspace %q initialized at %s\n", name, absPath)
		return nil
	},
}

func printPaths(title, base string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Println(title)
	for _, p := range paths {
		rel, err := filepath.Rel(base, p)
		if err != nil {
			rel = p
		}
		fmt.Printf("  %s\n", rel)
	}
}

func init() {
	initCmd.Flags().String("name", "", "Workspace name (defaults to directory basename)")
	initCmd.Flags().String("project", "", "Default project prefix written to defaults.project")
	rootCmd.AddCommand(initCmd)
}
