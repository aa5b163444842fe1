package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/internal/observability"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, update, archive, list, show, next)",
	Long: `Task management commands.

Each task is a markdown file under the tasks directory with a YAML header
holding its id, priority, status, owner and dependencies. Ids are allocated
per project prefix and never reused, even after archiving.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Long: `Create a new task with the given title.

The project prefix comes from --project or defaults.project in the config.
Dependencies given with --depends-on must name tasks that exist.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		project, _ := cmd.Flags().GetString("project")
		priority, _ := cmd.Flags().GetString("priority")
		owner, _ := cmd.Flags().GetString("owner")
		dependsOn, _ := cmd.Flags().GetStringSlice("depends-on")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		estimate, _ := cmd.Flags().GetString("estimate")
		description, _ := cmd.Flags().GetString("description")

		if project == "" {
			project = DefaultProject
		}

		task, err := TaskSvc.CreateTask(models.TaskInput{
			Title:       strings.Join(args, " "),
			Project:     project,
			Priority:    models.Priority(strings.ToUpper(priority)),
			Owner:       owner,
			DependsOn:   dependsOn,
			Tags:        tags,
			Estimate:    estimate,
			Description: description,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created task %s %s\n", task.ID, priorityBadge(task.Priority))
		fmt.Printf("  Title:   %s\n", task.Title)
		fmt.Printf("  Owner:   %s\n", task.Owner)
		if len(task.DependsOn) > 0 {
			fmt.Printf("  Depends: %s\n", strings.Join(task.DependsOn, ", "))
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update fields of a task",
	Long: `Update one or more fields of a task. Only flags that are given are
changed. The id, project and created date cannot be changed.

List flags (--depends-on, --blocked-by, --tags) replace the stored list.
Use --clear-blocked-by to remove every manual block.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		upd, err := taskUpdateFromFlags(cmd)
		if err != nil {
			return err
		}
		task, err := TaskSvc.UpdateTask(args[0], upd)
		if err != nil {
			return err
		}

		fmt.Printf("Updated task %s %s %s\n", task.ID, priorityBadge(task.Priority), statusLabel(task.Status))
		return nil
	},
}

func taskUpdateFromFlags(cmd *cobra.Command) (models.TaskUpdate, error) {
	flags := cmd.Flags()
	var upd models.TaskUpdate
	changed := 0

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		upd.Title = &v
		changed++
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		s := models.TaskStatus(strings.ToLower(v))
		upd.Status = &s
		changed++
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		p := models.Priority(strings.ToUpper(v))
		upd.Priority = &p
		changed++
	}
	if flags.Changed("owner") {
		v, _ := flags.GetString("owner")
		upd.Owner = &v
		changed++
	}
	if flags.Changed("estimate") {
		v, _ := flags.GetString("estimate")
		upd.Estimate = &v
		changed++
	}
	if flags.Changed("depends-on") {
		v, _ := flags.GetStringSlice("depends-on")
		upd.DependsOn = append([]string{}, v...)
		changed++
	}
	if flags.Changed("blocked-by") {
		v, _ := flags.GetStringSlice("blocked-by")
		upd.BlockedBy = append([]string{}, v...)
		changed++
	}
	if flags.Changed("tags") {
		v, _ := flags.GetStringSlice("tags")
		upd.Tags = append([]string{}, v...)
		changed++
	}
	if v, _ := flags.GetBool("clear-blocked-by"); v {
		upd.ClearBlockedBy = true
		changed++
	}

	if changed == 0 {
		return upd, fmt.Errorf("nothing to update: pass at least one field flag")
	}
	return upd, nil
}

var taskArchiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Move a task to the archive",
	Long: `Move a task file to the archive directory. Archived ids stay retired,
and tasks that still depend on an archived task are reported as having a
dangling dependency by "tflow graph".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}
		if err := TaskSvc.ArchiveTask(args[0]); err != nil {
			return err
		}
		fmt.Printf("Archived task %s\n", args[0])
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List active tasks in id order, or archived ones with --archived.

Task files that cannot be parsed are listed after the tasks so that a
single broken file never hides the rest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		archived, _ := cmd.Flags().GetBool("archived")
		status, _ := cmd.Flags().GetString("status")
		project, _ := cmd.Flags().GetString("project")
		asJSON, _ := cmd.Flags().GetBool("json")

		load := TaskSvc.LoadAllTasks
		if archived {
			load = TaskSvc.LoadArchivedTasks
		}
		res, err := load()
		if err != nil {
			return err
		}

		var tasks []*models.Task
		for _, t := range core.NewTaskGraph(res.Tasks).Tasks() {
			if status != "" && string(t.Status) != status {
				continue
			}
			if project != "" && !strings.EqualFold(project, t.Project) {
				continue
			}
			tasks = append(tasks, t)
		}

		if asJSON {
			data, err := json.MarshalIndent(tasks, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting tasks as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
		}
		for _, t := range tasks {
			fmt.Printf("%-10s %s %-12s %s\n", t.ID, priorityBadge(t.Priority), statusLabel(t.Status), t.Title)
		}
		printMalformed(res.Malformed)
		return nil
	},
}

func printMalformed(malformed []*models.MalformedRecordError) {
	if len(malformed) == 0 {
		return
	}
	fmt.Printf("\n%d task file(s) could not be read:\n", len(malformed))
	for _, m := range malformed {
		fmt.Printf("  %s\n", dimStyle.Render(m.Error()))
	}
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task with its dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		task, err := TaskSvc.GetTask(args[0])
		if err != nil {
			return err
		}
		g, _, err := TaskSvc.Graph()
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(task.ID + "  " + task.Title))
		fmt.Printf("  Project:  %s\n", task.Project)
		fmt.Printf("  Priority: %s\n", priorityBadge(task.Priority))
		fmt.Printf("  Status:   %s\n", statusLabel(task.Status))
		fmt.Printf("  Owner:    %s\n", task.Owner)
		if task.Estimate != "" {
			fmt.Printf("  Estimate: %s\n", task.Estimate)
		}
		if len(task.Tags) > 0 {
			fmt.Printf("  Tags:     %s\n", strings.Join(task.Tags, ", "))
		}
		fmt.Printf("  Created:  %s\n", task.Created.Format(time.DateOnly))
		fmt.Printf("  Updated:  %s\n", task.Updated.Format(time.RFC3339))

		if len(task.DependsOn) > 0 {
			fmt.Printf("  Depends:  %s\n", strings.Join(task.DependsOn, ", "))
		}
		if deps := g.Dependents(task.ID); len(deps) > 0 {
			fmt.Printf("  Needed by: %s\n", strings.Join(deps, ", "))
		}
		if reasons := g.BlockingReasons(task.ID); len(reasons) > 0 && task.Status != models.StatusDone {
			fmt.Println("  Not actionable:")
			for _, r := range reasons {
				fmt.Printf("    - %s\n", r)
			}
		}

		if task.Description != "" {
			fmt.Printf("\n%s\n", strings.TrimRight(task.Description, "\n"))
		}
		if len(task.Subtasks) > 0 {
			fmt.Println()
			for _, st := range task.Subtasks {
				mark := " "
				if st.Done {
					mark = "x"
				}
				fmt.Printf("  [%s] %s\n", mark, st.Text)
			}
		}
		printHistory(task.ID)
		return nil
	},
}

// historyLimit caps the events shown by task show.
const historyLimit = 10

func printHistory(id string) {
	if EventLog == nil {
		return
	}
	events, err := EventLog.Read(observability.EventFilter{TaskID: id, Limit: historyLimit})
	if err != nil || len(events) == 0 {
		return
	}
	fmt.Println("\nHistory:")
	for _, e := range events {
		line := fmt.Sprintf("  %s  %s", e.Time.Local().Format("2006-01-02 15:04"), e.Type)
		if s, ok := e.Data["new_status"].(string); ok {
			line += " -> " + s
		}
		fmt.Println(dimStyle.Render(line))
	}
}

var taskNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next actionable task",
	Long: `Show the most urgent todo task whose dependencies are all done and
which has no manual block. Ties on priority go to the oldest task.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		project, _ := cmd.Flags().GetString("project")
		owner, _ := cmd.Flags().GetString("owner")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		task, ok, err := TaskSvc.GetNextTask(core.NextTaskFilter{Project: project, Owner: owner, Tags: tags})
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No actionable task.")
			return nil
		}
		fmt.Printf("%s %s %s\n", task.ID, priorityBadge(task.Priority), task.Title)
		return nil
	},
}

func init() {
	taskCreateCmd.Flags().String("project", "", "Project prefix (defaults to defaults.project)")
	taskCreateCmd.Flags().String("priority", "", "Priority P0-P3 (default P2)")
	taskCreateCmd.Flags().String("owner", "", "Task owner")
	taskCreateCmd.Flags().StringSlice("depends-on", nil, "Ids of tasks this task waits for")
	taskCreateCmd.Flags().StringSlice("tags", nil, "Tags")
	taskCreateCmd.Flags().String("estimate", "", "Free-form estimate, e.g. 2d")
	taskCreateCmd.Flags().String("description", "", "Task description")

	taskUpdateCmd.Flags().String("title", "", "New title")
	taskUpdateCmd.Flags().String("status", "", "New status (todo, in_progress, blocked, done, ...)")
	taskUpdateCmd.Flags().String("priority", "", "New priority P0-P3")
	taskUpdateCmd.Flags().String("owner", "", "New owner")
	taskUpdateCmd.Flags().String("estimate", "", "New estimate")
	taskUpdateCmd.Flags().StringSlice("depends-on", nil, "Replace dependencies")
	taskUpdateCmd.Flags().StringSlice("blocked-by", nil, "Replace manual blocks")
	taskUpdateCmd.Flags().Bool("clear-blocked-by", false, "Remove every manual block")
	taskUpdateCmd.Flags().StringSlice("tags", nil, "Replace tags")

	taskListCmd.Flags().Bool("archived", false, "List archived tasks")
	taskListCmd.Flags().String("status", "", "Only tasks with this status")
	taskListCmd.Flags().String("project", "", "Only tasks of this project")
	taskListCmd.Flags().Bool("json", false, "Output as JSON")

	taskNextCmd.Flags().String("project", "", "Only tasks of this project")
	taskNextCmd.Flags().String("owner", "", "Only tasks with this owner")
	taskNextCmd.Flags().StringSlice("tags", nil, "Only tasks carrying every tag")

	taskCmd.AddCommand(taskCreateCmd, taskUpdateCmd, taskArchiveCmd, taskListCmd, taskShowCmd, taskNextCmd)
	rootCmd.AddCommand(taskCmd)
}
