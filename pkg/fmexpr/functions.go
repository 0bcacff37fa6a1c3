package fmexpr

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/flowmesh/engine/pkg/value"
)

// DefaultFunctions returns the function registry's base set: $max and $min
// as named in spec.md's prose, plus $jsonpath, $uuid, $if, $isEmpty pulled
// from original_source's expression test fixtures (SPEC_FULL §4.4).
func DefaultFunctions() map[string]Function {
	return map[string]Function{
		"$max":      fnMax,
		"$min":      fnMin,
		"$jsonpath": fnJSONPath,
		"$uuid":     fnUUID,
		"$if":       fnIf,
		"$isEmpty":  fnIsEmpty,
	}
}

func fnMax(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), errors.New("requires at least one argument")
	}
	best := args[0]
	for _, a := range args[1:] {
		if a.Kind() != value.KindNumber || best.Kind() != value.KindNumber {
			return value.Null(), errors.New("all arguments must be numbers")
		}
		if a.AsNumber() > best.AsNumber() {
			best = a
		}
	}
	return best, nil
}

func fnMin(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), errors.New("requires at least one argument")
	}
	best := args[0]
	for _, a := range args[1:] {
		if a.Kind() != value.KindNumber || best.Kind() != value.KindNumber {
			return value.Null(), errors.New("all arguments must be numbers")
		}
		if a.AsNumber() < best.AsNumber() {
			best = a
		}
	}
	return best, nil
}

// fnJSONPath implements a minimal dot/bracket path resolver: $jsonpath("a.b[0].c", data).
func fnJSONPath(args []value.Value) (value.Value, error) {
	if len(args) != 2 || args[0].Kind() != value.KindString {
		return value.Null(), errors.New("requires (path string, data)")
	}
	return resolveJSONPath(args[0].AsString(), args[1])
}

func resolveJSONPath(path string, data value.Value) (value.Value, error) {
	path = strings.TrimPrefix(path, "$.")
	path = strings.TrimPrefix(path, "$")
	cur := data
	for _, seg := range splitPathSegments(path) {
		if seg == "" {
			continue
		}
		if idx, ok := parseArrayIndex(seg); ok {
			if cur.Kind() != value.KindArray {
				return value.Null(), nil
			}
			items := cur.AsArray()
			if idx < 0 || idx >= len(items) {
				return value.Null(), nil
			}
			cur = items[idx]
			continue
		}
		if cur.Kind() != value.KindObject {
			return value.Null(), nil
		}
		next, ok := cur.Get(seg)
		if !ok {
			return value.Null(), nil
		}
		cur = next
	}
	return cur, nil
}

// splitPathSegments splits "a.b[0].c" into ["a", "b", "[0]", "c"].
func splitPathSegments(path string) []string {
	var segs []string
	var cur strings.Builder
	for _, r := range path {
		switch r {
		case '.':
			if cur.Len() > 0 {
				segs = append(segs, cur.String())
				cur.Reset()
			}
		case '[':
			if cur.Len() > 0 {
				segs = append(segs, cur.String())
				cur.Reset()
			}
			cur.WriteRune(r)
		case ']':
			cur.WriteRune(r)
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		segs = append(segs, cur.String())
	}
	return segs
}

func parseArrayIndex(seg string) (int, bool) {
	if !strings.HasPrefix(seg, "[") || !strings.HasSuffix(seg, "]") {
		return 0, false
	}
	inner := seg[1 : len(seg)-1]
	n := 0
	for _, r := range inner {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func fnUUID(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Null(), errors.New("takes no arguments")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return value.Null(), err
	}
	return value.String(id.String()), nil
}

func fnIf(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Null(), errors.New("requires (cond, then, else)")
	}
	if args[0].Truthy() {
		return args[1], nil
	}
	return args[2], nil
}

func fnIsEmpty(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null(), errors.New("requires exactly one argument")
	}
	v := args[0]
	switch v.Kind() {
	case value.KindNull:
		return value.Bool(true), nil
	case value.KindString:
		return value.Bool(v.AsString() == ""), nil
	case value.KindArray:
		return value.Bool(len(v.AsArray()) == 0), nil
	case value.KindObject:
		return value.Bool(len(v.Keys()) == 0), nil
	default:
		return value.Bool(false), nil
	}
}
