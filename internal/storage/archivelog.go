package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

const archiveLogHeader = "# Thought Archive Log"

// ArchiveLog is the append-only record of which notes produced which tasks.
// Entries are kept newest first.
type ArchiveLog interface {
	Prepend(entry models.ArchiveEntry) error
	Entries() ([]models.ArchiveEntry, error)
}

type markdownArchiveLog struct {
	text TextStore
	name string
}

// NewArchiveLog creates an ArchiveLog stored as a markdown file at name.
func NewArchiveLog(text TextStore, name string) ArchiveLog {
	return &markdownArchiveLog{text: text, name: name}
}

// Prepend inserts entry above every existing entry. A missing or empty log is
// initialized; existing content below the header is kept byte for byte.
func (l *markdownArchiveLog) Prepend(entry models.ArchiveEntry) error {
	existing, err := l.text.Read(l.name)
	if err != nil {
		if !isNotExist(err) {
			return fmt.Errorf("reading archive log: %w", err)
		}
		existing = ""
	}

	var b strings.Builder
	b.WriteString(archiveLogHeader + "\n\n")
	b.WriteString(renderArchiveEntry(entry))

	rest := existing
	if strings.HasPrefix(strings.TrimLeft(existing, "\n"), archiveLogHeader) {
		rest = strings.TrimLeft(existing, "\n")
		rest = strings.TrimPrefix(rest, archiveLogHeader)
		rest = strings.TrimLeft(rest, "\n")
	}
	if strings.TrimSpace(rest) != "" {
		b.WriteString("\n")
		b.WriteString(rest)
	}

	if err := l.text.Write(l.name, b.String()); err != nil {
		return fmt.Errorf("writing archive log: %w", err)
	}
	return nil
}

func renderArchiveEntry(e models.ArchiveEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", e.Filename)
	fmt.Fprintf(&b, "- id: %s\n", e.ID)
	fmt.Fprintf(&b, "- archived: %s\n", e.ArchivedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- lines: %d\n", e.LineCount)
	tasks := strings.Join(e.TaskIDs, ", ")
	if tasks == "" {
		tasks = "none"
	}
	fmt.Fprintf(&b, "- tasks: %s\n", tasks)
	if notes := strings.Join(strings.Fields(e.Notes), " "); notes != "" {
		fmt.Fprintf(&b, "- notes: %s\n", notes)
	}
	return b.String()
}

// Entries parses the log back into entries, newest first. Lines that are not
// part of an entry are ignored.
func (l *markdownArchiveLog) Entries() ([]models.ArchiveEntry, error) {
	content, err := l.text.Read(l.name)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive log: %w", err)
	}

	var entries []models.ArchiveEntry
	var cur *models.ArchiveEntry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if name, ok := strings.CutPrefix(line, "## "); ok {
			if cur != nil {
				entries = append(entries, *cur)
			}
			cur = &models.ArchiveEntry{Filename: strings.TrimSpace(name)}
			continue
		}
		if cur == nil {
			continue
		}
		item, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(item, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "id":
			cur.ID = value
		case "archived":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				cur.ArchivedAt = t
			}
		case "lines":
			cur.LineCount, _ = strconv.Atoi(value)
		case "tasks":
			if value != "none" {
				for _, id := range strings.Split(value, ",") {
					if id = strings.TrimSpace(id); id != "" {
						cur.TaskIDs = append(cur.TaskIDs, id)
					}
				}
			}
		case "notes":
			cur.Notes = value
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, nil
}
