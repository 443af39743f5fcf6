package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rickgao/quote-collector/internal/model"
)

// Local stores files under a directory on the local file system.
type Local struct {
	root string
}

// NewLocal creates a Local rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

func (l *Local) abs(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Location implements FS.
func (l *Local) Location(path string) string {
	return l.abs(path)
}

// MkdirAll implements FS.
func (l *Local) MkdirAll(_ context.Context, dir string) error {
	if err := os.MkdirAll(l.abs(dir), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", model.ErrTransientIO, dir, err)
	}
	return nil
}

// Create implements FS. Data goes to a hidden temp file in the target
// directory and is renamed into place on Close.
func (l *Local) Create(ctx context.Context, path string) (FileWriter, error) {
	target := l.abs(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %w", model.ErrTransientIO, dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(target)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", model.ErrTransientIO, path, err)
	}
	return &localFile{f: f, tmp: tmp, target: target}, nil
}

type localFile struct {
	f      *os.File
	tmp    string
	target string
	done   bool
}

func (w *localFile) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %w", model.ErrTransientIO, w.target, err)
	}
	return n, nil
}

func (w *localFile) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(w.tmp)
		return fmt.Errorf("%w: sync %s: %w", model.ErrTransientIO, w.target, err)
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("%w: close %s: %w", model.ErrTransientIO, w.target, err)
	}
	if err := os.Rename(w.tmp, w.target); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("%w: rename %s: %w", model.ErrTransientIO, w.target, err)
	}
	return nil
}

func (w *localFile) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.f.Close()
	if err := os.Remove(w.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

// Open implements FS.
func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(l.abs(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// List implements FS. Hidden entries, including in-progress temp files, are
// skipped.
func (l *Local) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(l.abs(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", model.ErrTransientIO, dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Remove implements FS.
func (l *Local) Remove(_ context.Context, path string) error {
	if err := os.Remove(l.abs(path)); err != nil {
		return fmt.Errorf("%w: remove %s: %w", model.ErrTransientIO, path, err)
	}
	return nil
}

var _ FS = (*Local)(nil)
