// Package fsutil holds the file operations used by scan actions. Every path is
// checked against the configured isolation limits before it is touched.
package fsutil

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	"github.com/rendis/oscaptool/internal/isolation"
	"github.com/rendis/oscaptool/pkg/schema"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Helper performs limit-checked file I/O.
type Helper struct {
	Limits isolation.ResourceLimits
}

// New creates a Helper enforcing limits.
func New(limits isolation.ResourceLimits) *Helper {
	return &Helper{Limits: limits}
}

// ReadText returns the whole file as a string.
func (h *Helper) ReadText(path string) (string, error) {
	abs, err := h.check(path, isolation.PathAccessRead)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeExecution, "read %s", abs).WithCause(err)
	}
	return string(data), nil
}

// WriteLines writes each line followed by a newline, creating parent
// directories as needed. An existing file is truncated.
func (h *Helper) WriteLines(path string, lines []string) error {
	abs, err := h.check(path, isolation.PathAccessWrite)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirMode); err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution, "create directories for %s", abs).WithCause(err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution, "open %s", abs).WithCause(err)
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			return schema.NewErrorf(schema.ErrCodeExecution, "write %s", abs).WithCause(err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return schema.NewErrorf(schema.ErrCodeExecution, "write %s", abs).WithCause(err)
	}
	if err := f.Close(); err != nil {
		return schema.NewErrorf(schema.ErrCodeExecution, "close %s", abs).WithCause(err)
	}
	return nil
}

// ListFiles returns the sorted names of the regular files directly inside dir.
// The cause of a failed listing is preserved so callers can test for fs.ErrNotExist.
func (h *Helper) ListFiles(dir string) ([]string, error) {
	abs, err := h.check(dir, isolation.PathAccessRead)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "list %s", abs).WithCause(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (h *Helper) check(path string, mode isolation.PathAccessMode) (string, error) {
	if path == "" {
		return "", schema.NewError(schema.ErrCodeValidation, "empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeValidation, "invalid path %q", path).WithCause(err)
	}
	if err := h.Limits.ValidatePath(abs, mode); err != nil {
		return "", err
	}
	return abs, nil
}
