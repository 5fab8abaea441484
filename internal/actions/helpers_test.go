package actions

import (
	"bytes"
	"testing"
	"time"

	"github.com/rendis/oscaptool/internal/logging"
	"github.com/rendis/oscaptool/pkg/schema"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1700000000, 0)

func newTestFactory(t *testing.T) (*Factory, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	f, err := NewBuiltinFactory(Deps{
		Stdout: &out,
		Now:    func() time.Time { return fixedNow },
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	return f, &out
}

func mustCreate(t *testing.T, f *Factory, selector string, config map[string]any) Action {
	t.Helper()
	a, err := f.Create(selector, config)
	require.NoError(t, err)
	return a
}

func nextAction(t *testing.T, bag schema.DataBag) string {
	t.Helper()
	next, ok := bag.NextAction()
	require.True(t, ok, "next_action must be set")
	return next
}
