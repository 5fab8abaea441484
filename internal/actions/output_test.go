package actions

import (
	"context"
	"testing"

	"github.com/rendis/oscaptool/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "Scan 1 - pass: 2", "Scan 1 - pass: 2\n"},
		{"string list", []string{"a.txt", "b.txt"}, "a.txt\nb.txt\n"},
		{"decoded list", []any{"a.txt", "b.txt"}, "a.txt\nb.txt\n"},
		{"empty list", []string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out := newTestFactory(t)
			a := mustCreate(t, f, "output.print", map[string]any{"next_action": ""})

			bag, err := a.Execute(context.Background(), schema.DataBag{KeyStdoutInput: tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
			assert.Equal(t, "", nextAction(t, bag))
		})
	}
}

func TestPrint_InvalidInput(t *testing.T) {
	f, out := newTestFactory(t)
	a := mustCreate(t, f, "output.print", map[string]any{"input_key_name": "value", "next_action": ""})

	for _, v := range []any{42, map[string]any{"a": 1}, []any{"ok", 3}, nil} {
		_, err := a.Execute(context.Background(), schema.DataBag{"value": v})
		require.Error(t, err, "%v", v)
		assert.True(t, schema.HasCode(err, schema.ErrCodeInvalidInput))
	}
	assert.Empty(t, out.String())

	_, err := a.Execute(context.Background(), schema.DataBag{})
	assert.True(t, schema.HasCode(err, schema.ErrCodeMissingInput))
}
