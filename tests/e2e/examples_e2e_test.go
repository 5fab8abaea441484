package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/oscaptool/internal/actions"
	"github.com/rendis/oscaptool/internal/engine"
	"github.com/rendis/oscaptool/internal/isolation"
	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/internal/registry"
	"github.com/rendis/oscaptool/pkg/schema"
)

// --- Example test harness ---

type exampleHarness struct {
	engine     *engine.Engine
	registry   *registry.Registry
	recorder   *engine.Recorder
	stdout     *bytes.Buffer
	resultsDir string
}

func newExampleHarness(t *testing.T, document string) *exampleHarness {
	t.Helper()

	resultsDir := t.TempDir()
	stdout := &bytes.Buffer{}

	f, err := actions.NewBuiltinFactory(actions.Deps{
		Limits: isolation.ResourceLimits{
			WritablePaths: []string{resultsDir},
			ReadOnlyPaths: []string{resultsDir, examplesDir()},
		},
		Stdout: stdout,
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	reg, err := registry.LoadFile(filepath.Join(examplesDir(), document), f)
	require.NoError(t, err)

	rec := &engine.Recorder{}
	return &exampleHarness{
		engine:     engine.New(reg, f, engine.Config{Logger: logging.Discard(), Observer: rec}),
		registry:   reg,
		recorder:   rec,
		stdout:     stdout,
		resultsDir: resultsDir,
	}
}

func examplesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "examples")
}

func (h *exampleHarness) writeResult(t *testing.T, scanID, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.resultsDir, scanID+".txt"), []byte(content), 0o600))
}

func TestExample_CustomWorkflowsLoad(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.json")

	assert.Equal(t, []string{"count-scan-history", "require-clean-scan", "scan-xccdf-eval", "show-scan-failures"}, h.registry.IDs())
	assert.Empty(t, h.registry.Warnings())
}

func TestExample_ShowScanFailures(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.json")
	h.writeResult(t, "1700000000_xccdf_eval", "rule_a pass\nrule_b fail\nrule_c notapplicable\nrule_d fail\n")

	bag, err := h.engine.RunWorkflow(context.Background(), "show-scan-failures", map[string]any{
		"results_dir": h.resultsDir,
		"scan_id":     "1700000000_xccdf_eval",
	})
	require.NoError(t, err)
	next, ok := bag.NextAction()
	assert.True(t, ok)
	assert.Empty(t, next)
	assert.Equal(t, "rule_b fail\nrule_d fail\n", h.stdout.String())
	assert.Equal(t, []string{"fetch_result", "only_failures", "print"}, h.recorder.Actions())
}

func TestExample_CountScanHistory(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.json")
	h.writeResult(t, "1", "pass\n")
	h.writeResult(t, "2", "fail\n")

	_, err := h.engine.RunWorkflow(context.Background(), "count-scan-history", map[string]any{
		"results_dir": h.resultsDir,
	})
	require.NoError(t, err)
	assert.Equal(t, "2 stored scans\n", h.stdout.String())
}

func TestExample_CountScanHistoryMissingDir(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.json")

	_, err := h.engine.RunWorkflow(context.Background(), "count-scan-history", map[string]any{
		"results_dir": filepath.Join(h.resultsDir, "absent"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0 stored scans\n", h.stdout.String())
}

func TestExample_YAMLDocumentCountFailures(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.yaml")
	assert.Equal(t, []string{"count-failures"}, h.registry.IDs())
	h.writeResult(t, "1700000000_xccdf_eval", "rule_a pass\nrule_b fail\nrule_c fail\n")

	_, err := h.engine.RunWorkflow(context.Background(), "count-failures", map[string]any{
		"results_dir": h.resultsDir,
		"scan_id":     "1700000000_xccdf_eval",
	})
	require.NoError(t, err)
	assert.Equal(t, "2 failed rules\n", h.stdout.String())
	assert.Equal(t, []string{"fetch_result", "count", "print"}, h.recorder.Actions())
}

func TestExample_RequireCleanScan(t *testing.T) {
	h := newExampleHarness(t, "custom-workflows/workflows.json")
	h.writeResult(t, "clean", "rule_a pass\nrule_b notapplicable\n")
	h.writeResult(t, "dirty", "rule_a pass\nrule_b fail\n")

	_, err := h.engine.RunWorkflow(context.Background(), "require-clean-scan", map[string]any{
		"results_dir": h.resultsDir,
		"scan_id":     "clean",
	})
	require.NoError(t, err)
	assert.Equal(t, "no failing rules in clean\n", h.stdout.String())

	h.stdout.Reset()
	_, err = h.engine.RunWorkflow(context.Background(), "require-clean-scan", map[string]any{
		"results_dir": h.resultsDir,
		"scan_id":     "dirty",
	})
	var wfErr *schema.WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, schema.ErrCodeActionExecution, wfErr.Code)
	assert.Equal(t, "no_failures", wfErr.Action)
	assert.Contains(t, err.Error(), "scan has failing rules")
	assert.Empty(t, h.stdout.String())
}
