package storage

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valter-silva-au/taskflow/pkg/models"
	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// subtasksHeading introduces the checklist section of a task body.
const subtasksHeading = "## Subtasks"

var checklistLine = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.*)$`)

// taskHeader is the on-disk header. Field order here is the order keys are
// written in. Dates are RFC3339 strings so a hand edit with a bare date still
// parses.
type taskHeader struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Project   string   `yaml:"project"`
	Priority  string   `yaml:"priority"`
	Status    string   `yaml:"status"`
	Owner     string   `yaml:"owner"`
	DependsOn []string `yaml:"depends_on"`
	BlockedBy []string `yaml:"blocked_by"`
	Tags      []string `yaml:"tags"`
	Created   string   `yaml:"created"`
	Updated   string   `yaml:"updated"`
	Estimate  string   `yaml:"estimate,omitempty"`
}

// SplitFrontMatter separates a leading "---" fenced YAML block from the rest
// of the document. ok is false when the document has no front matter.
func SplitFrontMatter(doc string) (header string, body string, ok bool) {
	doc = strings.TrimPrefix(doc, "\ufeff")
	if !strings.HasPrefix(doc, frontMatterFence+"\n") && !strings.HasPrefix(doc, frontMatterFence+"\r\n") {
		return "", doc, false
	}
	rest := doc[strings.Index(doc, "\n")+1:]

	lines := strings.SplitAfter(rest, "\n")
	offset := 0
	for _, line := range lines {
		if strings.TrimRight(line, "\r\n") == frontMatterFence {
			return rest[:offset], rest[offset+len(line):], true
		}
		offset += len(line)
	}
	return "", doc, false
}

// EncodeTask renders a task as a markdown document with a YAML header.
func EncodeTask(t *models.Task) (string, error) {
	h := taskHeader{
		ID:        t.ID,
		Title:     t.Title,
		Project:   t.Project,
		Priority:  string(t.Priority),
		Status:    string(t.Status),
		Owner:     t.Owner,
		DependsOn: nonNil(t.DependsOn),
		BlockedBy: nonNil(t.BlockedBy),
		Tags:      nonNil(t.Tags),
		Created:   t.Created.UTC().Format(time.RFC3339),
		Updated:   t.Updated.UTC().Format(time.RFC3339),
		Estimate:  t.Estimate,
	}

	var hdr bytes.Buffer
	enc := yaml.NewEncoder(&hdr)
	enc.SetIndent(2)
	if err := enc.Encode(&h); err != nil {
		return "", fmt.Errorf("encoding task header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding task header: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontMatterFence + "\n")
	b.Write(hdr.Bytes())
	b.WriteString(frontMatterFence + "\n\n")
	b.WriteString("# " + t.Title + "\n")
	if desc := strings.TrimSpace(t.Description); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}
	if len(t.Subtasks) > 0 {
		b.WriteString("\n" + subtasksHeading + "\n\n")
		for _, st := range t.Subtasks {
			box := " "
			if st.Done {
				box = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", box, st.Text)
		}
	}
	return b.String(), nil
}

// DecodeTask parses a task document. Any failure is returned as a plain
// error; the store wraps it in MalformedRecordError with the file path.
func DecodeTask(doc string) (*models.Task, error) {
	header, body, ok := SplitFrontMatter(doc)
	if !ok {
		return nil, fmt.Errorf("missing header block")
	}

	var h taskHeader
	if err := yaml.Unmarshal([]byte(header), &h); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if h.ID == "" {
		return nil, fmt.Errorf("header has no id")
	}

	created, err := parseDate(h.Created)
	if err != nil {
		return nil, fmt.Errorf("parsing created: %w", err)
	}
	updated, err := parseDate(h.Updated)
	if err != nil {
		return nil, fmt.Errorf("parsing updated: %w", err)
	}

	desc, subtasks := parseBody(body, h.Title)

	return &models.Task{
		ID:          h.ID,
		Title:       h.Title,
		Project:     h.Project,
		Priority:    models.Priority(h.Priority),
		Status:      models.TaskStatus(h.Status),
		Owner:       h.Owner,
		DependsOn:   h.DependsOn,
		BlockedBy:   h.BlockedBy,
		Tags:        h.Tags,
		Created:     created,
		Updated:     updated,
		Estimate:    h.Estimate,
		Description: desc,
		Subtasks:    subtasks,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseBody splits a task body into its description and checklist. The
// leading "# <title>" line written by EncodeTask is dropped.
func parseBody(body, title string) (string, []models.Subtask) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	var desc []string
	var subtasks []models.Subtask
	inSubtasks := false
	titleSeen := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !titleSeen && trimmed == "# "+title {
			titleSeen = true
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			inSubtasks = trimmed == subtasksHeading
			if inSubtasks {
				continue
			}
		}
		if inSubtasks {
			if m := checklistLine.FindStringSubmatch(line); m != nil {
				subtasks = append(subtasks, models.Subtask{
					Text: strings.TrimSpace(m[2]),
					Done: m[1] != " ",
				})
			}
			continue
		}
		desc = append(desc, line)
	}

	return strings.TrimSpace(strings.Join(desc, "\n")), subtasks
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
