package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rendis/oscaptool/internal/isolation"
	"github.com/rendis/oscaptool/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results", "nested", "1700000000_xccdf_eval.txt")

	h := New(isolation.ResourceLimits{})
	require.NoError(t, h.WriteLines(path, []string{"pass", "fail"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pass\nfail\n", string(data))

	text, err := h.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "pass\nfail\n", text)
}

func TestWriteLines_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	h := New(isolation.ResourceLimits{})

	require.NoError(t, h.WriteLines(path, []string{"a", "b", "c"}))
	require.NoError(t, h.WriteLines(path, []string{"z"}))

	text, err := h.ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "z\n", text)
}

func TestReadText_Missing(t *testing.T) {
	h := New(isolation.ResourceLimits{})
	_, err := h.ReadText(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeExecution))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestListFiles_OnlyRegularSorted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	names, err := New(isolation.ResourceLimits{}).ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := New(isolation.ResourceLimits{}).ListFiles(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestHelper_EnforcesLimits(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	h := New(isolation.ResourceLimits{WritablePaths: []string{allowed}})

	require.NoError(t, h.WriteLines(filepath.Join(allowed, "ok.txt"), []string{"x"}))

	err := h.WriteLines(filepath.Join(other, "no.txt"), []string{"x"})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodePathDenied))

	_, err = h.ReadText("")
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}
