// Package policy evaluates request admission rules with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query  rego.PreparedEvalQuery
	limits Limits
}

// Limits are exposed to the policy as input.limits. Zero disables a limit.
type Limits struct {
	MaxPromptChars int
	MaxHTMLBytes   int
}

// Input describes one incoming request.
type Input struct {
	Operation    string
	PromptLength int
	HTMLLength   int
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow  bool
	Field  string
	Reason string
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string, limits Limits) (*Engine, error) {
	r := rego.New(
		rego.Query("data.request_policy.decision"),
		rego.Module("request_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, limits: limits}, nil
}

// Evaluate checks the request against the policy.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	input := map[string]interface{}{
		"operation":     in.Operation,
		"prompt_length": in.PromptLength,
		"html_length":   in.HTMLLength,
		"limits": map[string]interface{}{
			"max_prompt_chars": e.limits.MaxPromptChars,
			"max_html_bytes":   e.limits.MaxHTMLBytes,
		},
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// The policy defines a default, so an empty result set means the module is broken.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("policy produced no decision")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}

	d := Decision{}
	d.Allow, _ = obj["allow"].(bool)
	d.Field, _ = obj["field"].(string)
	d.Reason, _ = obj["reason"].(string)
	return d, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package request_policy

default decision := {"allow": true, "reason": ""}

decision := {"allow": false, "field": "prompt", "reason": sprintf("prompt exceeds %d characters", [input.limits.max_prompt_chars])} if {
	input.limits.max_prompt_chars > 0
	input.prompt_length > input.limits.max_prompt_chars
} else := {"allow": false, "field": "htmlContent", "reason": sprintf("document exceeds %d bytes", [input.limits.max_html_bytes])} if {
	input.limits.max_html_bytes > 0
	input.html_length > input.limits.max_html_bytes
}
`
