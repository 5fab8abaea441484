package expressions

import (
	"context"
	"testing"

	"github.com/rendis/oscaptool/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolator_Render(t *testing.T) {
	interp := NewInterpolator(nil)
	data := map[string]any{
		"results_dir": "/var/lib/oscaptool",
		"scanid":      "1700000000_xccdf_eval",
		"count":       3,
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no placeholders", "/tmp/results", "/tmp/results"},
		{"single", "${{ results_dir }}/history", "/var/lib/oscaptool/history"},
		{"multiple", "${{results_dir}}/${{ scanid }}.txt", "/var/lib/oscaptool/1700000000_xccdf_eval.txt"},
		{"expression", `${{ results_dir + "/" + scanid }}`, "/var/lib/oscaptool/1700000000_xccdf_eval"},
		{"non-string value", "n=${{ count + 1 }}", "n=4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := interp.Render(context.Background(), tc.template, data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInterpolator_Render_MissingVariable(t *testing.T) {
	interp := NewInterpolator(NewExprEngine())

	_, err := interp.Render(context.Background(), "${{ results_dir }}/x", map[string]any{})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeMissingInput))
}

func TestInterpolator_SyntaxErrors(t *testing.T) {
	interp := NewInterpolator(nil)

	tests := []struct {
		name     string
		template string
	}{
		{"unclosed", "${{ results_dir"},
		{"empty", "${{   }}"},
		{"nested", "${{ ${{ a }} }}"},
		{"bad expression", "${{ a + }}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := interp.Validate(tc.template)
			require.Error(t, err)
			assert.True(t, schema.HasCode(err, schema.ErrCodeInterpolation))
		})
	}

	assert.NoError(t, interp.Validate("${{ results_dir }}/${{ scanid }}.txt"))
	assert.NoError(t, interp.Validate("plain"))
}
