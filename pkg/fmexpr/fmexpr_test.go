package fmexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/value"
)

func baseEnv() *Env {
	json := value.NewObject().Set("user",
		value.NewObject().Set("name", value.String("Alice")).Set("age", value.Number(25)))
	return &Env{
		JSON:      json,
		Now:       func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		Today:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		Vars:      map[string]value.Value{},
		EnvVars:   map[string]string{},
		Functions: DefaultFunctions(),
	}
}

// S4 — Expression evaluation, verbatim from spec.md §8.
func TestScenarioS4(t *testing.T) {
	env := baseEnv()

	v, err := Evaluate(`$json.user.name.toUpperCase()`, env)
	require.NoError(t, err)
	assert.Equal(t, "ALICE", v.AsString())

	v, err = Evaluate(`$json.user.age + 5`, env)
	require.NoError(t, err)
	assert.Equal(t, float64(30), v.AsNumber())

	v, err = Evaluate(`5 > 3 ? "big" : "small"`, env)
	require.NoError(t, err)
	assert.Equal(t, "big", v.AsString())
}

func TestTemplateDelimiterStripping(t *testing.T) {
	env := baseEnv()
	v, err := Evaluate(`{{ $json.user.age }}`, env)
	require.NoError(t, err)
	assert.Equal(t, float64(25), v.AsNumber())

	v, err = Evaluate(`=$json.user.age`, env)
	require.NoError(t, err)
	assert.Equal(t, float64(25), v.AsNumber())
}

func TestStringConcatenation(t *testing.T) {
	env := baseEnv()
	v, err := Evaluate(`"age: " + $json.user.age`, env)
	require.NoError(t, err)
	assert.Equal(t, "age: 25", v.AsString())
}

func TestDivisionByZeroIsTypeError(t *testing.T) {
	env := baseEnv()
	_, err := Evaluate(`1 / 0`, env)
	require.Error(t, err)
	var te *TypeError
	assert.ErrorAs(t, err, &te)
}

func TestMismatchedComparisonIsFalseNotError(t *testing.T) {
	env := baseEnv()
	v, err := Evaluate(`"5" > 3`, env)
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func TestUnknownFunctionRaisesFunctionError(t *testing.T) {
	env := baseEnv()
	_, err := Evaluate(`$nope(1)`, env)
	require.Error(t, err)
	var fe *FunctionError
	assert.ErrorAs(t, err, &fe)
}

func TestUnknownVariableIsError(t *testing.T) {
	env := baseEnv()
	_, err := Evaluate(`$bogus`, env)
	require.Error(t, err)
}

func TestVarsFallback(t *testing.T) {
	env := baseEnv()
	env.Vars["customThing"] = value.String("hi")
	v, err := Evaluate(`$customThing`, env)
	require.NoError(t, err)
	assert.Equal(t, "hi", v.AsString())
}

func TestNodeAccess(t *testing.T) {
	env := baseEnv()
	env.NodeOutput = func(name string) ([]value.Value, error) {
		if name == "Upstream" {
			return []value.Value{value.Number(1), value.Number(2)}, nil
		}
		return nil, assertNever()
	}
	v, err := Evaluate(`$("Upstream").length`, env)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.AsNumber())
}

func assertNever() error { return &NodeAccessError{Message: "unexpected node"} }

func TestArrayMethods(t *testing.T) {
	env := baseEnv()
	v, err := Evaluate(`[3,1,2].sort().join("-")`, env)
	require.NoError(t, err)
	assert.Equal(t, "1-2-3", v.AsString())
}

func TestDefaultFunctions(t *testing.T) {
	env := baseEnv()
	v, err := Evaluate(`$max(1, 5, 3)`, env)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v.AsNumber())

	v, err = Evaluate(`$isEmpty("")`, env)
	require.NoError(t, err)
	assert.True(t, v.AsBool())

	v, err = Evaluate(`$jsonpath("user.name", $json)`, env)
	require.NoError(t, err)
	assert.Equal(t, "Alice", v.AsString())
}

func TestReferentialTransparency(t *testing.T) {
	env := baseEnv()
	a, err := Evaluate(`$json.user.age * 2`, env)
	require.NoError(t, err)
	b, err := Evaluate(`$json.user.age * 2`, env)
	require.NoError(t, err)
	assert.True(t, value.Equal(a, b))
}
