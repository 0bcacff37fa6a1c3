// Package fmexpr implements the embedded expression language spec §4.4
// describes: a lexer, recursive-descent parser, and tree-walking evaluator
// over pkg/value.Value, with the closed $-prefixed variable set, node
// access, a pluggable function registry, and the closed per-type
// property/method surface.
//
// This grammar ($json, $("Node"), chained property/method access on a
// closed per-type surface) is not expr-lang's grammar, so it is hand-rolled
// here rather than forced through expr-lang's Env/patcher hooks — see
// DESIGN.md. expr-lang itself is retained and used elsewhere in this module
// (internal/router) for boolean edge-condition evaluation, exactly as the
// teacher uses it.
package fmexpr

import (
	"strings"

	"github.com/flowmesh/engine/pkg/value"
)

// Parse strips the expression's outer delimiters — a {{ ... }} template or
// a leading '=' — and parses the inner text into an AST (spec §4.4
// "Textual form").
func Parse(text string) (Node, error) {
	inner := stripDelimiters(text)
	return parseExpression(inner)
}

func stripDelimiters(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") {
		return strings.TrimSpace(trimmed[2 : len(trimmed)-2])
	}
	if strings.HasPrefix(trimmed, "=") {
		return strings.TrimSpace(trimmed[1:])
	}
	return trimmed
}

// Evaluate parses and evaluates text in one call; callers that evaluate the
// same expression repeatedly (e.g. per node-execution) should Parse once
// and call Eval directly to avoid re-parsing.
func Evaluate(text string, env *Env) (value.Value, error) {
	n, err := Parse(text)
	if err != nil {
		return value.Null(), err
	}
	return Eval(n, env)
}

// IsExpression reports whether text uses either recognized expression
// form, as opposed to being a plain literal string parameter value.
func IsExpression(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "{{") || strings.HasPrefix(trimmed, "=")
}
