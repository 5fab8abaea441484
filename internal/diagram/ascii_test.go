package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/oscaptool/pkg/schema"
)

func TestRenderASCIILinear(t *testing.T) {
	output := RenderASCII(Build(linearWorkflow(), nil))

	assert.True(t, strings.HasPrefix(output, "=== show-scan-result"))
	assert.Contains(t, output, "│ fetch_result      │")
	assert.Contains(t, output, "│ scan.fetch_result │")
	assert.Contains(t, output, "▼")
	assert.NotContains(t, output, "↳")
	assert.NotContains(t, output, "unreachable")

	// Boxes appear in chain order.
	assert.Less(t, strings.Index(output, "fetch_result"), strings.Index(output, "output.print"))
	assert.Less(t, strings.Index(output, "output.print"), strings.Index(output, "End"))
}

func TestRenderASCIICycleAndUnreachable(t *testing.T) {
	output := RenderASCII(Build(cyclicWorkflow(), nil))

	assert.Contains(t, output, "↳ a")
	assert.Contains(t, output, "--- unreachable ---")
	assert.Contains(t, output, "orphan (output.print) → __end__")
}

func TestRenderASCIIStatusTags(t *testing.T) {
	trace := []schema.Event{
		{Type: schema.EventActionStarted, Action: "fetch_result", Step: 1},
		{Type: schema.EventActionCompleted, Action: "fetch_result", Step: 1},
		{Type: schema.EventActionStarted, Action: "print", Step: 2},
		{Type: schema.EventActionFailed, Action: "print", Step: 2},
	}
	output := RenderASCII(Build(linearWorkflow(), trace))

	assert.Contains(t, output, "[OK]")
	assert.Contains(t, output, "[FAIL]")
}

func TestStatusTag(t *testing.T) {
	assert.Equal(t, "[OK]", statusTag("completed"))
	assert.Equal(t, "[RUN]", statusTag("running"))
	assert.Equal(t, "", statusTag("unknown"))
}
