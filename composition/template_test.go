package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandArgs(t *testing.T) {
	ec := NewContext()
	ec.Bind("name", successResult("world"))
	ec.Bind("path", successResult("/tmp/out.txt"))
	ec.BindLast(successResult("previous output"))

	t.Run("whole-string placeholder", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{"value": "${name}"})
		require.NoError(t, err)
		assert.Equal(t, "world", got["value"])
	})

	t.Run("embedded placeholder", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{"greeting": "hello ${name}!"})
		require.NoError(t, err)
		assert.Equal(t, "hello world!", got["greeting"])
	})

	t.Run("multiple placeholders in one string", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{"line": "${name} -> ${path}"})
		require.NoError(t, err)
		assert.Equal(t, "world -> /tmp/out.txt", got["line"])
	})

	t.Run("reserved last binding", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{"text": "${_last}"})
		require.NoError(t, err)
		assert.Equal(t, "previous output", got["text"])
	})

	t.Run("nested objects and arrays", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{
			"config": map[string]any{"target": "${path}"},
			"lines":  []any{"a ${name}", 42, true},
		})
		require.NoError(t, err)
		nested := got["config"].(map[string]any)
		assert.Equal(t, "/tmp/out.txt", nested["target"])
		lines := got["lines"].([]any)
		assert.Equal(t, "a world", lines[0])
		assert.Equal(t, 42, lines[1])
		assert.Equal(t, true, lines[2])
	})

	t.Run("no placeholders pass through", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{"plain": "just text", "n": 7})
		require.NoError(t, err)
		assert.Equal(t, "just text", got["plain"])
		assert.Equal(t, 7, got["n"])
	})

	t.Run("nil args yield empty map", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unbound variable fails with tool and var", func(t *testing.T) {
		_, err := ExpandArgs(ec, "write_file", map[string]any{"content": "${missing}"})
		var tmplErr *ArgTemplateError
		require.ErrorAs(t, err, &tmplErr)
		assert.Equal(t, "write_file", tmplErr.Tool)
		assert.Equal(t, "missing", tmplErr.Var)
	})

	t.Run("unbound variable nested deep", func(t *testing.T) {
		_, err := ExpandArgs(ec, "echo", map[string]any{
			"outer": map[string]any{"inner": []any{"${ghost}"}},
		})
		var tmplErr *ArgTemplateError
		require.ErrorAs(t, err, &tmplErr)
		assert.Equal(t, "ghost", tmplErr.Var)
	})

	t.Run("input map is not mutated", func(t *testing.T) {
		args := map[string]any{
			"value":  "${name}",
			"nested": map[string]any{"v": "${name}"},
		}
		_, err := ExpandArgs(ec, "echo", args)
		require.NoError(t, err)
		assert.Equal(t, "${name}", args["value"])
		assert.Equal(t, "${name}", args["nested"].(map[string]any)["v"])
	})

	t.Run("malformed placeholder syntax is left alone", func(t *testing.T) {
		got, err := ExpandArgs(ec, "echo", map[string]any{
			"a": "$name",
			"b": "${ name }",
			"c": "${1bad}",
		})
		require.NoError(t, err)
		assert.Equal(t, "$name", got["a"])
		assert.Equal(t, "${ name }", got["b"])
		assert.Equal(t, "${1bad}", got["c"])
	})
}
