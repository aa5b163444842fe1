package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskflow/pkg/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var noteExtensions = []string{".md", ".txt"}

// ThoughtInbox manages thought notes: the active inbox, the archive, and the
// archive log that attributes tasks to notes.
type ThoughtInbox interface {
	List() ([]string, error)
	ListArchived() ([]string, error)
	Read(name string) (*models.ThoughtNote, error)
	ReadArchived(name string) (*models.ThoughtNote, error)
	Archive(name string, taskIDs []string, notes string) (*models.ArchiveEntry, error)
	Log() ArchiveLog
}

// ThoughtInboxConfig locates notes inside the TextStore.
type ThoughtInboxConfig struct {
	InboxDir   string
	ArchiveDir string
	LogPath    string
}

type fileThoughtInbox struct {
	text   TextStore
	cfg    ThoughtInboxConfig
	log    ArchiveLog
	lock   WriteLock
	logger *zap.Logger
	now    func() time.Time
}

// NewThoughtInbox creates a ThoughtInbox over the given TextStore.
func NewThoughtInbox(text TextStore, cfg ThoughtInboxConfig, lock WriteLock, logger *zap.Logger) ThoughtInbox {
	if lock == nil {
		lock = NewNoopWriteLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fileThoughtInbox{
		text:   text,
		cfg:    cfg,
		log:    NewArchiveLog(text, cfg.LogPath),
		lock:   lock,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (t *fileThoughtInbox) Log() ArchiveLog { return t.log }

func (t *fileThoughtInbox) List() ([]string, error) {
	return t.listNotes(t.cfg.InboxDir)
}

func (t *fileThoughtInbox) ListArchived() ([]string, error) {
	return t.listNotes(t.cfg.ArchiveDir)
}

func (t *fileThoughtInbox) listNotes(dir string) ([]string, error) {
	names, err := t.text.List(dir, "")
	if err != nil {
		return nil, fmt.Errorf("listing notes in %s: %w", dir, err)
	}
	var out []string
	for _, name := range names {
		if isNoteFile(name) {
			out = append(out, baseName(name))
		}
	}
	return out, nil
}

func isNoteFile(name string) bool {
	for _, ext := range noteExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func checkNoteName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return &models.ValidationError{Field: "file", Reason: fmt.Sprintf("%q is not a plain note file name", name)}
	}
	return nil
}

func (t *fileThoughtInbox) Read(name string) (*models.ThoughtNote, error) {
	return t.readNote(t.cfg.InboxDir, name)
}

func (t *fileThoughtInbox) ReadArchived(name string) (*models.ThoughtNote, error) {
	return t.readNote(t.cfg.ArchiveDir, name)
}

func (t *fileThoughtInbox) readNote(dir, name string) (*models.ThoughtNote, error) {
	if err := checkNoteName(name); err != nil {
		return nil, err
	}
	content, err := t.text.Read(path.Join(dir, name))
	if err != nil {
		if isNotExist(err) {
			return nil, &models.NotFoundError{Kind: "thought", ID: name}
		}
		return nil, err
	}
	return ParseNote(name, content), nil
}

// ParseNote splits a note into its optional preamble and body. A preamble
// that is not a YAML mapping is left in the body untouched.
func ParseNote(name, content string) *models.ThoughtNote {
	note := &models.ThoughtNote{
		Name:      name,
		Body:      content,
		LineCount: countLines(content),
	}
	header, body, ok := SplitFrontMatter(content)
	if !ok {
		return note
	}
	var preamble map[string]any
	if err := yaml.Unmarshal([]byte(header), &preamble); err != nil {
		return note
	}
	note.Preamble = preamble
	note.Body = body
	return note
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// Archive moves a note out of the inbox and records the tasks attributed to
// it. If the log cannot be written the move is undone, so the note ends up
// in exactly one place.
func (t *fileThoughtInbox) Archive(name string, taskIDs []string, notes string) (*models.ArchiveEntry, error) {
	if err := checkNoteName(name); err != nil {
		return nil, err
	}

	unlock, err := t.lock.Lock()
	if err != nil {
		return nil, &models.StorageIOError{Op: "lock", Path: t.cfg.InboxDir, Err: err}
	}
	defer func() { _ = unlock() }()

	src := path.Join(t.cfg.InboxDir, name)
	content, err := t.text.Read(src)
	if err != nil {
		if isNotExist(err) {
			return nil, &models.NotFoundError{Kind: "thought", ID: name}
		}
		return nil, err
	}

	archivedAs, err := t.archiveName(name)
	if err != nil {
		return nil, err
	}
	dst := path.Join(t.cfg.ArchiveDir, archivedAs)

	if err := t.text.Move(src, dst); err != nil {
		return nil, fmt.Errorf("archiving thought %s: %w", name, err)
	}

	entry := models.ArchiveEntry{
		ID:         uuid.NewString(),
		Filename:   archivedAs,
		ArchivedAt: t.now(),
		LineCount:  countLines(content),
		TaskIDs:    append([]string(nil), taskIDs...),
		Notes:      notes,
	}
	if err := t.log.Prepend(entry); err != nil {
		if rbErr := t.text.Move(dst, src); rbErr != nil {
			t.logger.Error("rolling back thought archive failed",
				zap.String("file", name), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("archiving thought %s: %w", name, err)
	}

	t.logger.Debug("thought archived",
		zap.String("file", name),
		zap.String("archived_as", archivedAs),
		zap.Strings("task_ids", taskIDs),
	)
	return &entry, nil
}

// archiveName returns the name a note is stored under in the archive: its
// own name if free, otherwise one carrying a timestamp and, if needed, a
// counter.
func (t *fileThoughtInbox) archiveName(name string) (string, error) {
	candidate := name
	for i := 1; ; i++ {
		ok, err := t.text.Exists(path.Join(t.cfg.ArchiveDir, candidate))
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
		candidate = uniqueArchiveName(name, t.now(), i)
	}
}

// uniqueArchiveName inserts a timestamp before the extension, plus a counter
// after the first collision within the same second.
func uniqueArchiveName(name string, now time.Time, attempt int) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext) + "-" + now.Format("20060102T150405")
	if attempt > 1 {
		stem += fmt.Sprintf("-%d", attempt)
	}
	return stem + ext
}
