package isolation

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rendis/oscaptool/pkg/schema"
)

// ResourceLimits constrains what file and command actions may touch.
type ResourceLimits struct {
	Timeout       time.Duration `json:"timeout,omitempty"`
	ReadOnlyPaths []string      `json:"read_only_paths,omitempty"`
	WritablePaths []string      `json:"writable_paths,omitempty"`
	DenyPaths     []string      `json:"deny_paths,omitempty"`
}

// PathAccessMode indicates the type of filesystem access being requested.
type PathAccessMode int

const (
	PathAccessRead PathAccessMode = iota
	PathAccessWrite
)

func (m PathAccessMode) String() string {
	if m == PathAccessWrite {
		return "write"
	}
	return "read"
}

// ValidatePath checks whether the given path is permitted under these limits.
// Empty allow lists mean unrestricted access. DenyPaths always takes precedence,
// and an unresolvable deny rule denies.
func (r ResourceLimits) ValidatePath(path string, mode PathAccessMode) error {
	clean, err := resolveCleanPath(path)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodePathDenied, "invalid path %q", path).WithCause(err)
	}

	for _, deny := range r.DenyPaths {
		base, err := resolveCleanPath(deny)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodePathDenied,
				"path %q denied: invalid deny rule %q", path, deny).WithCause(err)
		}
		if isUnderPath(clean, base) {
			return schema.NewErrorf(schema.ErrCodePathDenied, "path %q is denied", path)
		}
	}

	if len(r.ReadOnlyPaths) == 0 && len(r.WritablePaths) == 0 {
		return nil
	}

	allowed := r.WritablePaths
	if mode == PathAccessRead {
		allowed = append(append([]string{}, r.ReadOnlyPaths...), r.WritablePaths...)
	}
	for _, a := range allowed {
		base, err := resolveCleanPath(a)
		if err != nil {
			continue // an invalid allow entry cannot grant access
		}
		if isUnderPath(clean, base) {
			return nil
		}
	}
	return schema.NewErrorf(schema.ErrCodePathDenied, "%s access to %q denied: not under any allowed path", mode, path)
}

// resolveCleanPath cleans a path, makes it absolute and resolves symlinks on the
// longest existing prefix so non-existent files resolve consistently.
func resolveCleanPath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains null byte")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return resolveAncestor(abs), nil
}

func resolveAncestor(path string) string {
	dir := path
	for range 256 {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, path)
			if err != nil {
				return path
			}
			return filepath.Join(resolved, rel)
		}
		dir = parent
	}
	return path
}

// isUnderPath reports whether path is base or below it (/tmp vs /tmpevil safe).
func isUnderPath(path, base string) bool {
	if path == base {
		return true
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
