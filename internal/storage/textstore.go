package storage

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/valter-silva-au/taskflow/pkg/models"
)

// TextStore is the byte-exact key/value surface the rest of the system stores
// text blobs through. Names are slash-separated paths relative to the root.
type TextStore interface {
	Read(name string) (string, error)
	Write(name string, content string) error
	Move(from, to string) error
	Remove(name string) error
	List(dir string, ext string) ([]string, error)
	Exists(name string) (bool, error)
}

type aferoTextStore struct {
	fs   afero.Fs
	root string
}

// NewTextStore creates a TextStore rooted at root on the given filesystem.
// Production code passes afero.NewOsFs(); tests pass afero.NewMemMapFs().
func NewTextStore(fsys afero.Fs, root string) TextStore {
	return &aferoTextStore{fs: fsys, root: root}
}

func (s *aferoTextStore) abs(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func ioErr(op, name string, err error) error {
	return &models.StorageIOError{Op: op, Path: name, Err: err}
}

// Read returns the content of name. A missing file is reported as a
// StorageIOError wrapping fs.ErrNotExist; callers translate that into
// NotFoundError where the name has domain meaning.
func (s *aferoTextStore) Read(name string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.abs(name))
	if err != nil {
		return "", ioErr("read", name, err)
	}
	return string(data), nil
}

// Write replaces name with content. The new content is written to a sibling
// temp file and renamed over the target so readers never see a partial file.
func (s *aferoTextStore) Write(name string, content string) error {
	target := s.abs(name)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return ioErr("mkdir", name, err)
	}
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(content), 0o600); err != nil {
		return ioErr("write", name, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return ioErr("write", name, err)
	}
	return nil
}

// Move renames from to to. It refuses to overwrite an existing destination,
// and on failure the source is left where it was.
func (s *aferoTextStore) Move(from, to string) error {
	src, dst := s.abs(from), s.abs(to)
	if _, err := s.fs.Stat(src); err != nil {
		return ioErr("move", from, err)
	}
	if _, err := s.fs.Stat(dst); err == nil {
		return ioErr("move", to, fs.ErrExist)
	}
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return ioErr("mkdir", to, err)
	}
	if err := s.fs.Rename(src, dst); err != nil {
		return ioErr("move", from, err)
	}
	return nil
}

func (s *aferoTextStore) Remove(name string) error {
	if err := s.fs.Remove(s.abs(name)); err != nil {
		return ioErr("remove", name, err)
	}
	return nil
}

// List returns the names of regular files directly under dir whose name ends
// in ext, sorted. A missing directory yields an empty list.
func (s *aferoTextStore) List(dir string, ext string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.abs(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, ioErr("list", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if ext != "" && !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, path.Join(dir, e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

func (s *aferoTextStore) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.abs(name))
	if err != nil {
		return false, ioErr("stat", name, err)
	}
	return ok, nil
}

// isNotExist reports whether err is a storage error for a missing file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// baseName strips the directory part of a store name.
func baseName(name string) string {
	return path.Base(name)
}
