package composition

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bigduu/conductor/retry"
)

// The wire format is a tagged union: every node is an object with a
// "type" discriminator ("call", "sequence", "parallel", "choice",
// "retry", "let", "var") and type-specific fields. Conditions use the
// same scheme ("success", "contains", "matches", "and", "or"). Decoding
// applies defaults: sequences fail fast, retries make 3 attempts with a
// 1000ms delay, parallel nodes wait for all branches.

// MarshalExpr encodes an expression tree to its JSON wire form.
func MarshalExpr(e Expr) ([]byte, error) {
	encoded, err := encodeExpr(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

// UnmarshalExpr decodes an expression tree from its JSON wire form.
func UnmarshalExpr(data []byte) (Expr, error) {
	return decodeExpr(data)
}

// MarshalCondition encodes a condition to its JSON wire form. Only the
// built-in condition kinds can be encoded.
func MarshalCondition(c Condition) ([]byte, error) {
	encoded, err := encodeCondition(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

// UnmarshalCondition decodes a condition from its JSON wire form.
func UnmarshalCondition(data []byte) (Condition, error) {
	return decodeCondition(data)
}

type wireExpr struct {
	Type string `json:"type"`

	// call
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	TimeoutMS int64          `json:"timeout_ms,omitempty"`

	// sequence
	Steps      []json.RawMessage `json:"steps,omitempty"`
	FailFast   *bool             `json:"fail_fast,omitempty"`
	RequireAll bool              `json:"require_all,omitempty"`

	// parallel
	Branches []json.RawMessage `json:"branches,omitempty"`
	Wait     json.RawMessage   `json:"wait,omitempty"`

	// choice
	Condition  json.RawMessage `json:"condition,omitempty"`
	ThenBranch json.RawMessage `json:"then_branch,omitempty"`
	ElseBranch json.RawMessage `json:"else_branch,omitempty"`

	// retry and let share "expr"
	Expr        json.RawMessage `json:"expr,omitempty"`
	MaxAttempts int             `json:"max_attempts,omitempty"`
	DelayMS     *int64          `json:"delay_ms,omitempty"`
	MaxDelayMS  int64           `json:"max_delay_ms,omitempty"`
	Multiplier  float64         `json:"multiplier,omitempty"`

	// let
	Var  string          `json:"var,omitempty"`
	Body json.RawMessage `json:"body,omitempty"`

	// var
	Name string `json:"name,omitempty"`
}

type wireCondition struct {
	Type       string            `json:"type"`
	Var        string            `json:"var,omitempty"`
	Path       string            `json:"path,omitempty"`
	Value      string            `json:"value,omitempty"`
	Pattern    string            `json:"pattern,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

type wireWaitN struct {
	N               int   `json:"n"`
	CancelRemaining *bool `json:"cancel_remaining,omitempty"`
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	var w wireExpr
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("composition: decoding expression: %w", err)
	}

	switch w.Type {
	case "":
		return nil, errors.New(`composition: expression is missing "type"`)

	case "call":
		if w.Tool == "" {
			return nil, errors.New("composition: call requires a tool name")
		}
		call := &Call{Tool: w.Tool, Args: w.Args}
		if w.TimeoutMS > 0 {
			call.Timeout = time.Duration(w.TimeoutMS) * time.Millisecond
		}
		return call, nil

	case "sequence":
		steps, err := decodeExprList(w.Steps)
		if err != nil {
			return nil, err
		}
		failFast := true
		if w.FailFast != nil {
			failFast = *w.FailFast
		}
		return &Sequence{Steps: steps, FailFast: failFast, RequireAll: w.RequireAll}, nil

	case "parallel":
		branches, err := decodeExprList(w.Branches)
		if err != nil {
			return nil, err
		}
		wait, err := decodeWait(w.Wait)
		if err != nil {
			return nil, err
		}
		return &Parallel{Branches: branches, Wait: wait}, nil

	case "choice":
		if len(w.Condition) == 0 {
			return nil, errors.New("composition: choice requires a condition")
		}
		cond, err := decodeCondition(w.Condition)
		if err != nil {
			return nil, err
		}
		if len(w.ThenBranch) == 0 {
			return nil, errors.New("composition: choice requires a then_branch")
		}
		then, err := decodeExpr(w.ThenBranch)
		if err != nil {
			return nil, err
		}
		choice := &Choice{Condition: cond, Then: then}
		if len(w.ElseBranch) > 0 {
			elseBranch, err := decodeExpr(w.ElseBranch)
			if err != nil {
				return nil, err
			}
			choice.Else = elseBranch
		}
		return choice, nil

	case "retry":
		if len(w.Expr) == 0 {
			return nil, errors.New("composition: retry requires an expr")
		}
		inner, err := decodeExpr(w.Expr)
		if err != nil {
			return nil, err
		}
		attempts := w.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delayMS := int64(1000)
		if w.DelayMS != nil {
			delayMS = *w.DelayMS
		}
		backoff := retry.Fixed(attempts, time.Duration(delayMS)*time.Millisecond)
		if w.Multiplier > 1 {
			backoff.Multiplier = w.Multiplier
			backoff.MaxDelay = retry.DefaultConfig().MaxDelay
			if w.MaxDelayMS > 0 {
				backoff.MaxDelay = time.Duration(w.MaxDelayMS) * time.Millisecond
			}
		}
		return &Retry{Expr: inner, MaxAttempts: attempts, Backoff: backoff}, nil

	case "let":
		if w.Var == "" {
			return nil, errors.New("composition: let requires a var name")
		}
		if len(w.Expr) == 0 || len(w.Body) == 0 {
			return nil, errors.New("composition: let requires expr and body")
		}
		value, err := decodeExpr(w.Expr)
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(w.Body)
		if err != nil {
			return nil, err
		}
		return &Let{Var: w.Var, Value: value, Body: body}, nil

	case "var":
		if w.Name == "" {
			return nil, errors.New("composition: var requires a name")
		}
		return &Var{Name: w.Name}, nil

	default:
		return nil, fmt.Errorf("composition: unknown expression type %q", w.Type)
	}
}

func decodeExprList(raws []json.RawMessage) ([]Expr, error) {
	exprs := make([]Expr, 0, len(raws))
	for _, raw := range raws {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

// decodeWait accepts "all", "any", or an object {"n": k} with an
// optional "cancel_remaining" flag (default true). A missing wait means
// all.
func decodeWait(raw json.RawMessage) (Wait, error) {
	if len(raw) == 0 {
		return WaitForAll(), nil
	}

	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case string(WaitAll):
			return WaitForAll(), nil
		case string(WaitAny):
			return WaitForAny(), nil
		default:
			return Wait{}, fmt.Errorf("composition: unknown wait mode %q", mode)
		}
	}

	var n wireWaitN
	if err := json.Unmarshal(raw, &n); err != nil {
		return Wait{}, fmt.Errorf("composition: decoding wait: %w", err)
	}
	if n.N < 1 {
		return Wait{}, errors.New("composition: wait n must be at least 1")
	}
	wait := WaitForN(n.N)
	if n.CancelRemaining != nil {
		wait.CancelRemaining = *n.CancelRemaining
	}
	return wait, nil
}

func decodeCondition(raw json.RawMessage) (Condition, error) {
	var w wireCondition
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("composition: decoding condition: %w", err)
	}

	switch w.Type {
	case "success":
		return Success{Var: w.Var}, nil
	case "contains":
		return Contains{Var: w.Var, Path: w.Path, Value: w.Value}, nil
	case "matches":
		return Matches{Var: w.Var, Path: w.Path, Pattern: w.Pattern}, nil
	case "and":
		inner, err := decodeConditionList(w.Conditions)
		if err != nil {
			return nil, err
		}
		return And{All: inner}, nil
	case "or":
		inner, err := decodeConditionList(w.Conditions)
		if err != nil {
			return nil, err
		}
		return Or{Any: inner}, nil
	case "":
		return nil, errors.New(`composition: condition is missing "type"`)
	default:
		return nil, fmt.Errorf("composition: unknown condition type %q", w.Type)
	}
}

func decodeConditionList(raws []json.RawMessage) ([]Condition, error) {
	conds := make([]Condition, 0, len(raws))
	for _, raw := range raws {
		c, err := decodeCondition(raw)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func encodeExpr(e Expr) (any, error) {
	switch n := e.(type) {
	case *Call:
		out := map[string]any{"type": "call", "tool": n.Tool}
		if n.Args != nil {
			out["args"] = n.Args
		}
		if n.Timeout > 0 {
			out["timeout_ms"] = n.Timeout.Milliseconds()
		}
		return out, nil

	case *Sequence:
		steps, err := encodeExprList(n.Steps)
		if err != nil {
			return nil, err
		}
		out := map[string]any{"type": "sequence", "steps": steps, "fail_fast": n.FailFast}
		if n.RequireAll {
			out["require_all"] = true
		}
		return out, nil

	case *Parallel:
		branches, err := encodeExprList(n.Branches)
		if err != nil {
			return nil, err
		}
		wait, err := encodeWait(n.Wait)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "parallel", "branches": branches, "wait": wait}, nil

	case *Choice:
		cond, err := encodeCondition(n.Condition)
		if err != nil {
			return nil, err
		}
		then, err := encodeExpr(n.Then)
		if err != nil {
			return nil, err
		}
		out := map[string]any{"type": "choice", "condition": cond, "then_branch": then}
		if n.Else != nil {
			elseBranch, err := encodeExpr(n.Else)
			if err != nil {
				return nil, err
			}
			out["else_branch"] = elseBranch
		}
		return out, nil

	case *Retry:
		inner, err := encodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"type":         "retry",
			"expr":         inner,
			"max_attempts": n.MaxAttempts,
			"delay_ms":     n.Backoff.InitialDelay.Milliseconds(),
		}
		if n.Backoff.Multiplier > 1 {
			out["multiplier"] = n.Backoff.Multiplier
			if n.Backoff.MaxDelay > n.Backoff.InitialDelay {
				out["max_delay_ms"] = n.Backoff.MaxDelay.Milliseconds()
			}
		}
		return out, nil

	case *Let:
		value, err := encodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		body, err := encodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "let", "var": n.Var, "expr": value, "body": body}, nil

	case *Var:
		return map[string]any{"type": "var", "name": n.Name}, nil

	case nil:
		return nil, errors.New("composition: cannot encode nil expression")

	default:
		return nil, fmt.Errorf("composition: cannot encode expression type %T", e)
	}
}

func encodeExprList(exprs []Expr) ([]any, error) {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		encoded, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

// encodeWait emits "all", "any", or {"n": k}. The wire form of "any"
// always cancels remaining branches; WaitN carries cancel_remaining only
// when disabled.
func encodeWait(w Wait) (any, error) {
	switch w.Mode {
	case WaitAll, "":
		return string(WaitAll), nil
	case WaitAny:
		return string(WaitAny), nil
	case WaitN:
		out := map[string]any{"n": w.N}
		if !w.CancelRemaining {
			out["cancel_remaining"] = false
		}
		return out, nil
	default:
		return nil, fmt.Errorf("composition: unknown wait mode %q", w.Mode)
	}
}

func encodeCondition(c Condition) (any, error) {
	switch cond := c.(type) {
	case Success:
		out := map[string]any{"type": "success"}
		if cond.Var != "" {
			out["var"] = cond.Var
		}
		return out, nil
	case Contains:
		out := map[string]any{"type": "contains", "path": cond.Path, "value": cond.Value}
		if cond.Var != "" {
			out["var"] = cond.Var
		}
		return out, nil
	case Matches:
		out := map[string]any{"type": "matches", "path": cond.Path, "pattern": cond.Pattern}
		if cond.Var != "" {
			out["var"] = cond.Var
		}
		return out, nil
	case And:
		inner, err := encodeConditionList(cond.All)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "and", "conditions": inner}, nil
	case Or:
		inner, err := encodeConditionList(cond.Any)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "or", "conditions": inner}, nil
	case nil:
		return nil, errors.New("composition: cannot encode nil condition")
	default:
		return nil, fmt.Errorf("composition: cannot encode condition type %T", c)
	}
}

func encodeConditionList(conds []Condition) ([]any, error) {
	out := make([]any, 0, len(conds))
	for _, c := range conds {
		encoded, err := encodeCondition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}
