package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithLast(t *testing.T, output string, ok bool) *Context {
	t.Helper()
	ec := NewContext()
	ec.BindLast(Result{Success: ok, Output: output})
	return ec
}

func TestSuccessCondition(t *testing.T) {
	t.Run("true for successful result", func(t *testing.T) {
		ec := contextWithLast(t, "{}", true)
		got, err := Success{}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("false for failed result", func(t *testing.T) {
		ec := contextWithLast(t, "{}", false)
		got, err := Success{}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("unbound _last defaults to success", func(t *testing.T) {
		got, err := Success{}.Eval(NewContext())
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("named subject", func(t *testing.T) {
		ec := NewContext()
		ec.Bind("probe", failureResult("down"))
		got, err := Success{Var: "probe"}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("unbound named subject is an evaluation error", func(t *testing.T) {
		_, err := Success{Var: "nope"}.Eval(NewContext())
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
		var unbound *UnboundVariableError
		require.ErrorAs(t, err, &unbound)
		assert.Equal(t, "nope", unbound.Name)
	})
}

func TestContainsCondition(t *testing.T) {
	payload := `{"status": "completed", "data": {"name": "test"}, "items": ["alpha", "beta"]}`

	tests := []struct {
		name string
		cond Contains
		want bool
	}{
		{"top-level substring", Contains{Path: "status", Value: "complete"}, true},
		{"nested path", Contains{Path: "data.name", Value: "test"}, true},
		{"array index", Contains{Path: "items.1", Value: "beta"}, true},
		{"value absent", Contains{Path: "status", Value: "failed"}, false},
		{"missing key is false", Contains{Path: "nope", Value: "x"}, false},
		{"missing nested key is false", Contains{Path: "data.nope", Value: "x"}, false},
		{"index out of range is false", Contains{Path: "items.9", Value: "x"}, false},
		{"path through scalar is false", Contains{Path: "status.deeper", Value: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := contextWithLast(t, payload, true)
			got, err := tt.cond.Eval(ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty path uses raw output", func(t *testing.T) {
		ec := contextWithLast(t, "plain text output", true)
		got, err := Contains{Value: "text"}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("non-JSON output with a path is an error", func(t *testing.T) {
		ec := contextWithLast(t, "plain text output", true)
		_, err := Contains{Path: "status", Value: "x"}.Eval(ec)
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
		assert.Equal(t, "contains", condErr.Cond)
	})

	t.Run("non-string values render as JSON", func(t *testing.T) {
		ec := contextWithLast(t, `{"code": 200}`, true)
		got, err := Contains{Path: "code", Value: "200"}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestMatchesCondition(t *testing.T) {
	ec := contextWithLast(t, `{"email": "user@example.com"}`, true)

	t.Run("pattern matches", func(t *testing.T) {
		got, err := Matches{Path: "email", Pattern: `^\S+@\S+\.\S+$`}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("pattern does not match", func(t *testing.T) {
		got, err := Matches{Path: "email", Pattern: `^admin@`}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("missing path is false", func(t *testing.T) {
		got, err := Matches{Path: "phone", Pattern: `\d+`}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("invalid pattern is an error not a guess", func(t *testing.T) {
		_, err := Matches{Path: "email", Pattern: `([unclosed`}.Eval(ec)
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
		assert.Equal(t, "matches", condErr.Cond)
	})
}

func TestAndOrConditions(t *testing.T) {
	ec := contextWithLast(t, `{"status": "ok", "code": 200}`, true)

	t.Run("and is true when all hold", func(t *testing.T) {
		got, err := And{All: []Condition{
			Success{},
			Contains{Path: "status", Value: "ok"},
		}}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("and is false when one fails", func(t *testing.T) {
		got, err := And{All: []Condition{
			Success{},
			Contains{Path: "status", Value: "error"},
		}}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("or is true when any holds", func(t *testing.T) {
		got, err := Or{Any: []Condition{
			Contains{Path: "status", Value: "error"},
			Contains{Path: "status", Value: "ok"},
		}}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("or is false when none hold", func(t *testing.T) {
		got, err := Or{Any: []Condition{
			Contains{Path: "status", Value: "error"},
			Contains{Path: "status", Value: "warn"},
		}}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("empty and is vacuously true", func(t *testing.T) {
		got, err := And{}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("empty or is false", func(t *testing.T) {
		got, err := Or{}.Eval(ec)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("child errors propagate", func(t *testing.T) {
		_, err := And{All: []Condition{
			Success{},
			Matches{Path: "status", Pattern: `([bad`},
		}}.Eval(ec)
		var condErr *ConditionError
		require.ErrorAs(t, err, &condErr)
	})

	t.Run("nested combinators", func(t *testing.T) {
		got, err := And{All: []Condition{
			Success{},
			Or{Any: []Condition{
				Contains{Path: "status", Value: "ok"},
				Matches{Path: "code", Pattern: `^5\d\d$`},
			}},
		}}.Eval(ec)
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestExtractPath(t *testing.T) {
	payload := `{"user": {"tags": ["admin", "ops"], "age": 41}, "active": true}`

	tests := []struct {
		name      string
		path      string
		want      string
		wantFound bool
	}{
		{"empty path returns payload", "", payload, true},
		{"object key", "active", "true", true},
		{"nested number", "user.age", "41", true},
		{"array element", "user.tags.0", "admin", true},
		{"nested object renders as JSON", "user", `{"age":41,"tags":["admin","ops"]}`, true},
		{"missing key", "user.name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := extractPath(payload, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid JSON with path errors", func(t *testing.T) {
		_, _, err := extractPath("not json", "a.b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid JSON")
	})
}
