package composition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigduu/conductor/retry"
)

func TestUnmarshalExpr_Call(t *testing.T) {
	t.Run("full fields", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "call",
			"tool": "read_file",
			"args": {"path": "/tmp/test.txt"},
			"timeout_ms": 2500
		}`))
		require.NoError(t, err)

		call, ok := expr.(*Call)
		require.True(t, ok)
		assert.Equal(t, "read_file", call.Tool)
		assert.Equal(t, "/tmp/test.txt", call.Args["path"])
		assert.Equal(t, 2500*time.Millisecond, call.Timeout)
	})

	t.Run("missing tool name", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type": "call", "args": {}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool name")
	})
}

func TestUnmarshalExpr_Sequence(t *testing.T) {
	t.Run("fail_fast defaults to true", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "sequence",
			"steps": [
				{"type": "call", "tool": "step1", "args": {}},
				{"type": "call", "tool": "step2", "args": {}}
			]
		}`))
		require.NoError(t, err)

		seq, ok := expr.(*Sequence)
		require.True(t, ok)
		assert.Len(t, seq.Steps, 2)
		assert.True(t, seq.FailFast)
		assert.False(t, seq.RequireAll)
	})

	t.Run("explicit fail_fast false with require_all", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "sequence",
			"steps": [{"type": "call", "tool": "step1"}],
			"fail_fast": false,
			"require_all": true
		}`))
		require.NoError(t, err)

		seq := expr.(*Sequence)
		assert.False(t, seq.FailFast)
		assert.True(t, seq.RequireAll)
	})
}

func TestUnmarshalExpr_Parallel(t *testing.T) {
	branches := `[{"type": "call", "tool": "a"}, {"type": "call", "tool": "b"}]`

	tests := []struct {
		name string
		json string
		want Wait
	}{
		{"missing wait means all", `{"type":"parallel","branches":` + branches + `}`, WaitForAll()},
		{"wait all", `{"type":"parallel","branches":` + branches + `,"wait":"all"}`, WaitForAll()},
		{"wait any", `{"type":"parallel","branches":` + branches + `,"wait":"any"}`, WaitForAny()},
		{"wait n", `{"type":"parallel","branches":` + branches + `,"wait":{"n":2}}`, WaitForN(2)},
		{
			"wait n keeps stragglers",
			`{"type":"parallel","branches":` + branches + `,"wait":{"n":2,"cancel_remaining":false}}`,
			Wait{Mode: WaitN, N: 2, CancelRemaining: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := UnmarshalExpr([]byte(tt.json))
			require.NoError(t, err)
			par, ok := expr.(*Parallel)
			require.True(t, ok)
			assert.Len(t, par.Branches, 2)
			assert.Equal(t, tt.want, par.Wait)
		})
	}

	t.Run("unknown wait mode", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"parallel","branches":` + branches + `,"wait":"most"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown wait mode")
	})

	t.Run("n below one", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"parallel","branches":` + branches + `,"wait":{"n":0}}`))
		require.Error(t, err)
	})
}

func TestUnmarshalExpr_Choice(t *testing.T) {
	t.Run("condition and both branches", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "choice",
			"condition": {"type": "contains", "path": "status", "value": "ready"},
			"then_branch": {"type": "call", "tool": "go"},
			"else_branch": {"type": "call", "tool": "stop"}
		}`))
		require.NoError(t, err)

		choice, ok := expr.(*Choice)
		require.True(t, ok)
		assert.Equal(t, Contains{Path: "status", Value: "ready"}, choice.Condition)
		assert.NotNil(t, choice.Then)
		assert.NotNil(t, choice.Else)
	})

	t.Run("else is optional", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "choice",
			"condition": {"type": "success"},
			"then_branch": {"type": "call", "tool": "go"}
		}`))
		require.NoError(t, err)
		assert.Nil(t, expr.(*Choice).Else)
	})

	t.Run("missing condition", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"choice","then_branch":{"type":"call","tool":"go"}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "condition")
	})
}

func TestUnmarshalExpr_Retry(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "retry",
			"expr": {"type": "call", "tool": "flaky"}
		}`))
		require.NoError(t, err)

		r, ok := expr.(*Retry)
		require.True(t, ok)
		assert.Equal(t, 3, r.MaxAttempts)
		assert.Equal(t, retry.Fixed(3, time.Second), r.Backoff)
	})

	t.Run("explicit fixed delay", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "retry",
			"expr": {"type": "call", "tool": "flaky"},
			"max_attempts": 5,
			"delay_ms": 250
		}`))
		require.NoError(t, err)

		r := expr.(*Retry)
		assert.Equal(t, 5, r.MaxAttempts)
		assert.Equal(t, 250*time.Millisecond, r.Backoff.InitialDelay)
		assert.Equal(t, 250*time.Millisecond, r.Backoff.Delay(3))
	})

	t.Run("exponential backoff", func(t *testing.T) {
		expr, err := UnmarshalExpr([]byte(`{
			"type": "retry",
			"expr": {"type": "call", "tool": "flaky"},
			"max_attempts": 4,
			"delay_ms": 100,
			"multiplier": 2.0,
			"max_delay_ms": 300
		}`))
		require.NoError(t, err)

		r := expr.(*Retry)
		assert.Equal(t, 100*time.Millisecond, r.Backoff.Delay(0))
		assert.Equal(t, 200*time.Millisecond, r.Backoff.Delay(1))
		assert.Equal(t, 300*time.Millisecond, r.Backoff.Delay(2), "capped at max_delay_ms")
	})

	t.Run("missing expr", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"retry","max_attempts":2}`))
		require.Error(t, err)
	})
}

func TestUnmarshalExpr_LetAndVar(t *testing.T) {
	expr, err := UnmarshalExpr([]byte(`{
		"type": "let",
		"var": "page",
		"expr": {"type": "call", "tool": "http_fetch", "args": {"url": "https://example.com"}},
		"body": {"type": "var", "name": "page"}
	}`))
	require.NoError(t, err)

	let, ok := expr.(*Let)
	require.True(t, ok)
	assert.Equal(t, "page", let.Var)
	assert.IsType(t, &Call{}, let.Value)
	assert.Equal(t, &Var{Name: "page"}, let.Body)

	t.Run("let requires var", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"let","expr":{"type":"var","name":"a"},"body":{"type":"var","name":"a"}}`))
		require.Error(t, err)
	})

	t.Run("var requires name", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"var"}`))
		require.Error(t, err)
	})
}

func TestUnmarshalExpr_Invalid(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type": "loop", "steps": []}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown expression type "loop"`)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"tool": "read_file"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing "type"`)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{`))
		require.Error(t, err)
	})

	t.Run("nested decode error surfaces", func(t *testing.T) {
		_, err := UnmarshalExpr([]byte(`{"type":"sequence","steps":[{"type":"widget"}]}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown expression type "widget"`)
	})
}

func TestExprRoundtrip(t *testing.T) {
	expr := NewSequence(
		NewLet("page",
			NewCall("http_fetch", map[string]any{"url": "https://example.com"}),
			NewRetry(
				NewCall("write_file", map[string]any{"path": "out.html", "content": "${page}"}),
				3,
			),
		),
		NewParallel(
			NewCall("lint", map[string]any{"target": "out.html"}),
			NewCall("format_check", map[string]any{"target": "out.html"}),
		),
		NewChoice(
			And{All: []Condition{
				Success{},
				Or{Any: []Condition{
					Contains{Path: "status", Value: "ok"},
					Matches{Var: "page", Path: "email", Pattern: `.+@example\.com`},
				}},
			}},
			NewCall("publish", map[string]any{"path": "out.html"}),
		).WithElse(NewVar("page")),
	)

	data, err := MarshalExpr(expr)
	require.NoError(t, err)

	decoded, err := UnmarshalExpr(data)
	require.NoError(t, err)
	assert.Equal(t, expr, decoded)
}

func TestExprRoundtrip_WaitVariants(t *testing.T) {
	for _, wait := range []Wait{
		WaitForAll(),
		WaitForAny(),
		WaitForN(2),
		{Mode: WaitN, N: 2, CancelRemaining: false},
	} {
		expr := NewParallel(
			NewCall("a", nil),
			NewCall("b", nil),
			NewCall("c", nil),
		).WithWait(wait)

		data, err := MarshalExpr(expr)
		require.NoError(t, err)
		decoded, err := UnmarshalExpr(data)
		require.NoError(t, err)
		assert.Equal(t, wait, decoded.(*Parallel).Wait)
	}
}

func TestConditionRoundtrip(t *testing.T) {
	conditions := []Condition{
		Success{},
		Success{Var: "probe"},
		Contains{Path: "status", Value: "ok"},
		Contains{Var: "probe", Path: "data.items.0", Value: "x"},
		Matches{Path: "email", Pattern: `^\S+@\S+$`},
		And{All: []Condition{Success{}, Contains{Path: "a", Value: "b"}}},
		Or{Any: []Condition{Success{}}},
	}

	for _, original := range conditions {
		data, err := MarshalCondition(original)
		require.NoError(t, err)

		decoded, err := UnmarshalCondition(data)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	}

	t.Run("unknown condition type", func(t *testing.T) {
		_, err := UnmarshalCondition([]byte(`{"type": "equals", "path": "a"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown condition type "equals"`)
	})
}

func TestMarshalExpr_RejectsCustomCondition(t *testing.T) {
	expr := NewChoice(customCondition{}, NewCall("go", nil))
	_, err := MarshalExpr(expr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot encode condition type")
}

type customCondition struct{}

func (customCondition) Eval(*Context) (bool, error) { return true, nil }
