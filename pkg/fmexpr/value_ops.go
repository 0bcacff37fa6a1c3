package fmexpr

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/flowmesh/engine/pkg/value"
)

// evalProperty implements the closed per-type property surface (no call
// parens): String.length, Array.length, and generic Object field access
// (spec §4.4 "Object: all, first, last, item" plus ordinary $json.field
// access, which this module treats as the common case for object values).
func evalProperty(obj value.Value, name string) (value.Value, error) {
	switch obj.Kind() {
	case value.KindString:
		if name == "length" {
			return value.Number(float64(len([]rune(obj.AsString())))), nil
		}
	case value.KindArray:
		if name == "length" {
			return value.Number(float64(len(obj.AsArray()))), nil
		}
		if v, ok := objectSequenceAccessor(obj.AsArray(), name); ok {
			return v, nil
		}
	case value.KindObject:
		if v, ok := obj.Get(name); ok {
			return v, nil
		}
		if v, ok := objectSequenceAccessor(objectValues(obj), name); ok {
			return v, nil
		}
		return value.Null(), nil // missing field on an object resolves to null, matching JSON-path-style access
	}
	return value.Null(), &PropertyAccessError{Property: name, Message: "not defined for " + obj.Kind().String()}
}

// objectSequenceAccessor implements the "all, first, last" conventional
// accessors shared by Array and Object (per-type surfaces in spec §4.4).
func objectSequenceAccessor(items []value.Value, name string) (value.Value, bool) {
	switch name {
	case "all":
		return value.Array(items...), true
	case "first":
		if len(items) == 0 {
			return value.Null(), true
		}
		return items[0], true
	case "last":
		if len(items) == 0 {
			return value.Null(), true
		}
		return items[len(items)-1], true
	}
	return value.Null(), false
}

func objectValues(obj value.Value) []value.Value {
	keys := obj.Keys()
	out := make([]value.Value, 0, len(keys))
	for _, k := range keys {
		v, _ := obj.Get(k)
		out = append(out, v)
	}
	return out
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
var specialCharsPattern = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// evalMethod implements the closed per-type method surface (spec §4.4).
func evalMethod(obj value.Value, method string, args []value.Value) (value.Value, error) {
	switch obj.Kind() {
	case value.KindString:
		return evalStringMethod(obj.AsString(), method, args)
	case value.KindArray:
		return evalArrayMethod(obj.AsArray(), method, args)
	case value.KindDateTime:
		return evalDateTimeMethod(obj, method, args)
	case value.KindNumber:
		return evalNumberMethod(obj.AsNumber(), method, args)
	case value.KindObject:
		if v, ok := objectSequenceAccessor(objectValues(obj), method); ok {
			return v, nil
		}
		if method == "item" {
			return sequenceItem(objectValues(obj), args)
		}
	}
	return value.Null(), &MethodCallError{Method: method, Message: "not defined for " + obj.Kind().String()}
}

func evalStringMethod(s string, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "toUpperCase":
		return value.String(strings.ToUpper(s)), nil
	case "toLowerCase":
		return value.String(strings.ToLower(s)), nil
	case "trim":
		return value.String(strings.TrimSpace(s)), nil
	case "length":
		return value.Number(float64(len([]rune(s)))), nil
	case "split":
		sep, err := stringArg(args, 0, "split")
		if err != nil {
			return value.Null(), err
		}
		parts := strings.Split(s, sep)
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.String(p)
		}
		return value.Array(items...), nil
	case "replace":
		from, err := stringArg(args, 0, "replace")
		if err != nil {
			return value.Null(), err
		}
		to, err := stringArg(args, 1, "replace")
		if err != nil {
			return value.Null(), err
		}
		return value.String(strings.Replace(s, from, to, 1)), nil
	case "slice":
		runes := []rune(s)
		start, end, err := sliceBounds(args, len(runes), "slice")
		if err != nil {
			return value.Null(), err
		}
		return value.String(string(runes[start:end])), nil
	case "includes":
		sub, err := stringArg(args, 0, "includes")
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(strings.Contains(s, sub)), nil
	case "startsWith":
		sub, err := stringArg(args, 0, "startsWith")
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(strings.HasPrefix(s, sub)), nil
	case "endsWith":
		sub, err := stringArg(args, 0, "endsWith")
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(strings.HasSuffix(s, sub)), nil
	case "extractEmail":
		match := emailPattern.FindString(s)
		return value.String(match), nil
	case "toTitleCase":
		return value.String(strings.Title(strings.ToLower(s))), nil
	case "replaceSpecialChars":
		return value.String(specialCharsPattern.ReplaceAllString(s, "")), nil
	}
	return value.Null(), &MethodCallError{Method: method, Message: "not defined for string"}
}

func evalArrayMethod(items []value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "length":
		return value.Number(float64(len(items))), nil
	case "first":
		if len(items) == 0 {
			return value.Null(), nil
		}
		return items[0], nil
	case "last":
		if len(items) == 0 {
			return value.Null(), nil
		}
		return items[len(items)-1], nil
	case "all":
		return value.Array(items...), nil
	case "item":
		return sequenceItem(items, args)
	case "join":
		sep := ","
		if len(args) > 0 {
			s, err := stringArg(args, 0, "join")
			if err != nil {
				return value.Null(), err
			}
			sep = s
		}
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = stringify(it)
		}
		return value.String(strings.Join(parts, sep)), nil
	case "reverse":
		out := make([]value.Value, len(items))
		for i, it := range items {
			out[len(items)-1-i] = it
		}
		return value.Array(out...), nil
	case "sort":
		out := make([]value.Value, len(items))
		copy(out, items)
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Kind() == value.KindNumber && out[j].Kind() == value.KindNumber {
				return out[i].AsNumber() < out[j].AsNumber()
			}
			return stringify(out[i]) < stringify(out[j])
		})
		return value.Array(out...), nil
	case "filter":
		prop, err := stringArg(args, 0, "filter")
		if err != nil {
			return value.Null(), err
		}
		var out []value.Value
		for _, it := range items {
			if it.Kind() == value.KindObject {
				if v, ok := it.Get(prop); ok && v.Truthy() {
					out = append(out, it)
				}
			}
		}
		return value.Array(out...), nil
	case "map":
		prop, err := stringArg(args, 0, "map")
		if err != nil {
			return value.Null(), err
		}
		out := make([]value.Value, 0, len(items))
		for _, it := range items {
			if it.Kind() == value.KindObject {
				if v, ok := it.Get(prop); ok {
					out = append(out, v)
					continue
				}
			}
			out = append(out, value.Null())
		}
		return value.Array(out...), nil
	}
	return value.Null(), &MethodCallError{Method: method, Message: "not defined for array"}
}

func sequenceItem(items []value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind() != value.KindNumber {
		return value.Null(), &MethodCallError{Method: "item", Message: "requires a numeric index argument"}
	}
	idx := int(args[0].AsNumber())
	if idx < 0 || idx >= len(items) {
		return value.Null(), &IndexAccessError{Index: strconv.Itoa(idx), Message: "out of range"}
	}
	return items[idx], nil
}

func evalNumberMethod(n float64, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "abs":
		return value.Number(math.Abs(n)), nil
	case "ceil":
		return value.Number(math.Ceil(n)), nil
	case "floor":
		return value.Number(math.Floor(n)), nil
	case "round":
		return value.Number(math.Round(n)), nil
	case "toString":
		return value.String(strconv.FormatFloat(n, 'g', -1, 64)), nil
	}
	return value.Null(), &MethodCallError{Method: method, Message: "not defined for number"}
}

func stringArg(args []value.Value, i int, method string) (string, error) {
	if i >= len(args) || args[i].Kind() != value.KindString {
		return "", &MethodCallError{Method: method, Message: "expected a string argument"}
	}
	return args[i].AsString(), nil
}

func sliceBounds(args []value.Value, length int, method string) (int, int, error) {
	start := 0
	end := length
	if len(args) > 0 {
		if args[0].Kind() != value.KindNumber {
			return 0, 0, &MethodCallError{Method: method, Message: "start must be a number"}
		}
		start = clampIndex(int(args[0].AsNumber()), length)
	}
	if len(args) > 1 {
		if args[1].Kind() != value.KindNumber {
			return 0, 0, &MethodCallError{Method: method, Message: "end must be a number"}
		}
		end = clampIndex(int(args[1].AsNumber()), length)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i = length + i
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func evalIndex(obj, idx value.Value) (value.Value, error) {
	switch obj.Kind() {
	case value.KindArray:
		if idx.Kind() != value.KindNumber {
			return value.Null(), &IndexAccessError{Index: stringify(idx), Message: "array index must be a number"}
		}
		i := int(idx.AsNumber())
		items := obj.AsArray()
		if i < 0 || i >= len(items) {
			return value.Null(), &IndexAccessError{Index: strconv.Itoa(i), Message: "out of range"}
		}
		return items[i], nil
	case value.KindObject:
		if idx.Kind() != value.KindString {
			return value.Null(), &IndexAccessError{Index: stringify(idx), Message: "object index must be a string"}
		}
		v, ok := obj.Get(idx.AsString())
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	}
	return value.Null(), &IndexAccessError{Index: stringify(idx), Message: "not indexable: " + obj.Kind().String()}
}
