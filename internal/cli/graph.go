package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/observability"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Check the task graph for problems",
	Long: `Report on the dependency graph of the active tasks: actionable tasks in
pick order, dependencies on ids that are not active, dependency cycles, and
any alerts for tasks blocked or in progress for too long.

Exits with an error when a dangling dependency or a cycle is found, so the
command can be used as a pre-commit check.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		g, res, err := TaskSvc.Graph()
		if err != nil {
			return err
		}

		actionable := g.Actionable(core.NextTaskFilter{})
		fmt.Println(headerStyle.Render(fmt.Sprintf("%d active task(s), %d actionable", len(g.Tasks()), len(actionable))))
		for _, t := range actionable {
			fmt.Printf("  %s %s %s\n", t.ID, priorityBadge(t.Priority), t.Title)
		}

		dangling := g.DanglingDependencies()
		if len(dangling) > 0 {
			fmt.Println("\nDangling dependencies:")
			ids := make([]string, 0, len(dangling))
			for id := range dangling {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("  %s -> %s\n", id, strings.Join(dangling[id], ", "))
			}
		}

		cycles := g.Cycles()
		if len(cycles) > 0 {
			fmt.Println("\nDependency cycles:")
			for _, c := range cycles {
				fmt.Printf("  %s\n", strings.Join(c, " -> "))
			}
		}

		if AlertEngine != nil {
			var timed []string
			for _, a := range AlertEngine.Evaluate(res.Tasks) {
				// Dangling and cycle alerts are already listed above.
				if a.Condition == observability.ConditionBlockedTooLong || a.Condition == observability.ConditionStaleInProgress {
					timed = append(timed, fmt.Sprintf("  [%s] %s", severityLabel(a.Severity), a.Message))
				}
			}
			if len(timed) > 0 {
				fmt.Println("\nAlerts:")
				fmt.Println(strings.Join(timed, "\n"))
			}
		}

		printMalformed(res.Malformed)

		if len(dangling) > 0 || len(cycles) > 0 {
			return fmt.Errorf("task graph has %d dangling dependency set(s) and %d cycle(s)", len(dangling), len(cycles))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
