package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskflow/internal/core"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

var thoughtCmd = &cobra.Command{
	Use:   "thought",
	Short: "Work the thought inbox (list, show, extract, process, archive, log)",
	Long: `Thought inbox commands.

Notes are plain text or markdown files dropped in the inbox directory.
"tflow thought process" finds the actionable lines in a note, scores them,
and proposes tasks; with --accept the tasks are created and the note is
moved to the archive with an entry in the archive log.`,
}

var thoughtListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes in the inbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		names, err := ThoughtSvc.ListThoughts()
		if err != nil {
			return err
		}
		printNames(names, "Inbox is empty.")
		return nil
	},
}

var thoughtArchivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List archived notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		names, err := ThoughtSvc.ListArchived()
		if err != nil {
			return err
		}
		printNames(names, "No archived notes.")
		return nil
	},
}

func printNames(names []string, empty string) {
	if len(names) == 0 {
		fmt.Println(empty)
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

var thoughtShowCmd = &cobra.Command{
	Use:   "show <note>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		archived, _ := cmd.Flags().GetBool("archived")
		read := ThoughtSvc.ReadThought
		if archived {
			read = ThoughtSvc.ReadArchivedThought
		}
		note, err := read(args[0])
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s (%d lines)", note.Name, note.LineCount)))
		fmt.Print(note.Body)
		if !strings.HasSuffix(note.Body, "\n") {
			fmt.Println()
		}
		return nil
	},
}

var thoughtExtractCmd = &cobra.Command{
	Use:   "extract <note>",
	Short: "List the candidate lines of a note without scoring them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		candidates, err := ThoughtSvc.Extract(args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(candidates)
		}
		if len(candidates) == 0 {
			fmt.Println("No candidates found.")
			return nil
		}
		for _, c := range candidates {
			kind := "intent"
			switch {
			case c.IsExplicitChecklistItem && c.Checked:
				kind = "done"
			case c.IsExplicitChecklistItem:
				kind = "checklist"
			}
			fmt.Printf("%4d  %-9s %s\n", c.LineNumber, kind, c.Text)
		}
		return nil
	},
}

var thoughtProcessCmd = &cobra.Command{
	Use:   "process <note>",
	Short: "Propose tasks from a note, optionally creating them",
	Long: `Analyze a note and propose one task per actionable line.

Each proposal shows its derived title, priority, confidence and any existing
tasks with overlapping titles. Nothing is written unless --accept is given.
With --accept, proposals that overlap existing tasks are skipped unless
--force is also given, and the note is archived unless --keep is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}

		minConf, _ := cmd.Flags().GetInt("min-confidence")
		includeChecked, _ := cmd.Flags().GetBool("include-checked")
		includeArchived, _ := cmd.Flags().GetBool("include-archived")
		accept, _ := cmd.Flags().GetBool("accept")
		force, _ := cmd.Flags().GetBool("force")
		keep, _ := cmd.Flags().GetBool("keep")
		project, _ := cmd.Flags().GetString("project")
		owner, _ := cmd.Flags().GetString("owner")
		notes, _ := cmd.Flags().GetString("notes")
		asJSON, _ := cmd.Flags().GetBool("json")

		res, err := ThoughtSvc.Process(args[0], core.ProcessOptions{
			MinConfidence:   minConf,
			IncludeChecked:  includeChecked,
			IncludeArchived: includeArchived,
		})
		if err != nil {
			return err
		}

		if !accept {
			if asJSON {
				return printJSON(res)
			}
			printProposals(res)
			return nil
		}

		if project == "" {
			project = DefaultProject
		}
		accepted, err := ThoughtSvc.AcceptProposals(args[0], res.Proposals, core.AcceptOptions{
			Project:  project,
			Owner:    owner,
			Force:    force,
			KeepNote: keep,
			Notes:    notes,
		})
		if accepted != nil {
			if asJSON && err == nil {
				return printJSON(accepted)
			}
			printAccepted(accepted)
		}
		return err
	},
}

func printProposals(res *core.ProcessResult) {
	fmt.Printf("%s: %d candidate(s), %d proposal(s), %d filtered\n",
		res.Note.Name, res.Candidates, len(res.Proposals), res.Filtered)
	for i, p := range res.Proposals {
		fmt.Printf("\n%d. %s %s\n", i+1, priorityBadge(p.Analysis.Priority), p.Title)
		fmt.Printf("   line %d, confidence %d", p.Candidate.LineNumber, p.Analysis.Confidence)
		if p.Candidate.Section != "" {
			fmt.Printf(", section %q", p.Candidate.Section)
		}
		fmt.Println()
		if len(p.Analysis.Tags) > 0 {
			fmt.Printf("   tags: %s\n", strings.Join(p.Analysis.Tags, ", "))
		}
		if r := p.Analysis.ShadowRationale; r != nil {
			fmt.Printf("   why: %s\n", dimStyle.Render(*r))
		}
		if n := p.Analysis.PracticalNote; n != nil {
			fmt.Printf("   %s\n", dimStyle.Render(*n))
		}
		for _, rel := range p.Related {
			fmt.Printf("   possible duplicate: %s %s (%.0f%%)\n", rel.ID, rel.Title, rel.MatchRatio*100)
		}
		for _, ref := range p.References {
			fmt.Printf("   see %s: %s\n", ref.Doc, ref.Heading)
		}
	}
}

func printAccepted(res *core.AcceptResult) {
	for _, t := range res.Created {
		fmt.Printf("Created task %s %s %s\n", t.ID, priorityBadge(t.Priority), t.Title)
	}
	for _, p := range res.Skipped {
		ids := make([]string, len(p.Related))
		for i, r := range p.Related {
			ids[i] = r.ID
		}
		fmt.Printf("Skipped %q (overlaps %s; use --force)\n", p.Title, strings.Join(ids, ", "))
	}
	if res.Entry != nil {
		fmt.Printf("Archived %s\n", res.Entry.Filename)
	}
}

var thoughtArchiveCmd = &cobra.Command{
	Use:   "archive <note>",
	Short: "Archive a note without creating tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		taskIDs, _ := cmd.Flags().GetStringSlice("task-ids")
		notes, _ := cmd.Flags().GetString("notes")

		entry, err := ThoughtSvc.ArchiveThought(args[0], taskIDs, notes)
		if err != nil {
			return err
		}
		fmt.Printf("Archived %s (%d lines)\n", entry.Filename, entry.LineCount)
		return nil
	},
}

var thoughtLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the thought archive log, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ThoughtSvc == nil {
			return fmt.Errorf("thought processor not initialized")
		}
		entries, err := ThoughtSvc.ArchiveLog()
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("Archive log is empty.")
			return nil
		}
		for _, e := range entries {
			printArchiveEntry(e)
		}
		return nil
	},
}

func printArchiveEntry(e models.ArchiveEntry) {
	tasks := "none"
	if len(e.TaskIDs) > 0 {
		tasks = strings.Join(e.TaskIDs, ", ")
	}
	fmt.Printf("%s  %s  %d lines  tasks: %s\n", e.ArchivedAt.Format(time.RFC3339), e.Filename, e.LineCount, tasks)
	if e.Notes != "" {
		fmt.Printf("    %s\n", dimStyle.Render(e.Notes))
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	thoughtShowCmd.Flags().Bool("archived", false, "Read from the archive")
	thoughtExtractCmd.Flags().Bool("json", false, "Output as JSON")

	thoughtProcessCmd.Flags().Int("min-confidence", 0, "Drop proposals below this confidence (default from config)")
	thoughtProcessCmd.Flags().Bool("include-checked", false, "Also propose checked checklist items")
	thoughtProcessCmd.Flags().Bool("include-archived", false, "Also compare against archived tasks")
	thoughtProcessCmd.Flags().Bool("accept", false, "Create the proposed tasks and archive the note")
	thoughtProcessCmd.Flags().Bool("force", false, "With --accept, also create proposals that overlap existing tasks")
	thoughtProcessCmd.Flags().Bool("keep", false, "With --accept, leave the note in the inbox")
	thoughtProcessCmd.Flags().String("project", "", "Project prefix for created tasks (defaults to defaults.project)")
	thoughtProcessCmd.Flags().String("owner", "", "Owner for created tasks")
	thoughtProcessCmd.Flags().String("notes", "", "Notes for the archive log entry")
	thoughtProcessCmd.Flags().Bool("json", false, "Output as JSON")

	thoughtArchiveCmd.Flags().StringSlice("task-ids", nil, "Ids of tasks created from the note")
	thoughtArchiveCmd.Flags().String("notes", "", "Notes for the archive log entry")

	thoughtLogCmd.Flags().Bool("json", false, "Output as JSON")

	thoughtCmd.AddCommand(thoughtListCmd, thoughtArchivedCmd, thoughtShowCmd, thoughtExtractCmd,
		thoughtProcessCmd, thoughtArchiveCmd, thoughtLogCmd)
	rootCmd.AddCommand(thoughtCmd)
}
