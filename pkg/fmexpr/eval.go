package fmexpr

import (
	"strconv"

	"github.com/flowmesh/engine/pkg/value"
)

// Eval walks the AST against env. Evaluation fails fast on the first error
// (spec §4.4).
func Eval(n Node, env *Env) (value.Value, error) {
	switch t := n.(type) {
	case NumberLit:
		return value.Number(t.Value), nil
	case StringLit:
		return value.String(t.Value), nil
	case BoolLit:
		return value.Bool(t.Value), nil
	case NullLit:
		return value.Null(), nil
	case ArrayLit:
		items := make([]value.Value, len(t.Elements))
		for i, el := range t.Elements {
			v, err := Eval(el, env)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	case ObjectLit:
		obj := value.NewObject()
		for _, f := range t.Fields {
			v, err := Eval(f.Value, env)
			if err != nil {
				return value.Null(), err
			}
			obj = obj.Set(f.Key, v)
		}
		return obj, nil
	case Variable:
		return evalVariable(t, env)
	case NodeAccess:
		return evalNodeAccess(t, env)
	case FunctionCall:
		return evalFunctionCall(t, env)
	case UnaryExpr:
		return evalUnary(t, env)
	case BinaryExpr:
		return evalBinary(t, env)
	case TernaryExpr:
		cond, err := Eval(t.Cond, env)
		if err != nil {
			return value.Null(), err
		}
		if cond.Truthy() {
			return Eval(t.Then, env)
		}
		return Eval(t.Else, env)
	case PropertyAccess:
		obj, err := Eval(t.Object, env)
		if err != nil {
			return value.Null(), err
		}
		return evalProperty(obj, t.Property)
	case MethodCall:
		obj, err := Eval(t.Object, env)
		if err != nil {
			return value.Null(), err
		}
		args := make([]value.Value, len(t.Args))
		for i, a := range t.Args {
			v, err := Eval(a, env)
			if err != nil {
				return value.Null(), err
			}
			args[i] = v
		}
		return evalMethod(obj, t.Method, args)
	case IndexAccess:
		obj, err := Eval(t.Object, env)
		if err != nil {
			return value.Null(), err
		}
		idx, err := Eval(t.Index, env)
		if err != nil {
			return value.Null(), err
		}
		return evalIndex(obj, idx)
	}
	return value.Null(), &ParseError{Message: "unknown AST node"}
}

func evalVariable(v Variable, env *Env) (value.Value, error) {
	switch v.Name {
	case "$json":
		return env.JSON, nil
	case "$binary":
		return env.Binary, nil
	case "$now":
		return value.DateTime(env.Now()), nil
	case "$today":
		return value.DateTime(env.Today()), nil
	case "$workflow":
		return env.Workflow, nil
	case "$execution":
		return env.Execution, nil
	case "$env":
		obj := value.NewObject()
		for k, val := range env.EnvVars {
			obj = obj.Set(k, value.String(val))
		}
		return obj, nil
	case "$vars":
		obj := value.NewObject()
		for k, val := range env.Vars {
			obj = obj.Set(k, val)
		}
		return obj, nil
	case "$http":
		return env.HTTP, nil
	case "$input":
		return evalInputValue(env), nil
	}
	if val, ok := env.Vars[v.Name]; ok {
		return val, nil
	}
	return value.Null(), &ParseError{Message: "unknown variable " + v.Name}
}

// evalInputValue exposes $input as an array of its items so it can be used as a bare
// value (e.g. passed to $isEmpty($input)) in addition to the
// all()/first()/last()/item() method surface handled in evalMethod.
func evalInputValue(env *Env) value.Value {
	if env.Input == nil {
		return value.Array()
	}
	return value.Array(env.Input.All()...)
}

func evalNodeAccess(n NodeAccess, env *Env) (value.Value, error) {
	nameVal, err := Eval(n.NodeName, env)
	if err != nil {
		return value.Null(), err
	}
	if nameVal.Kind() != value.KindString {
		return value.Null(), &NodeAccessError{Message: "node name must be a string"}
	}
	name := nameVal.AsString()
	if env.NodeOutput == nil {
		return value.Null(), &NodeAccessError{NodeName: name, Message: "node access is not available in this context"}
	}
	items, err := env.NodeOutput(name)
	if err != nil {
		return value.Null(), &NodeAccessError{NodeName: name, Message: err.Error()}
	}
	return value.Array(items...), nil
}

func evalFunctionCall(f FunctionCall, env *Env) (value.Value, error) {
	fn, ok := env.Functions[f.Name]
	if !ok {
		return value.Null(), &FunctionError{Name: f.Name, Message: "unknown function"}
	}
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := Eval(a, env)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}
	v, err := fn(args)
	if err != nil {
		return value.Null(), &FunctionError{Name: f.Name, Message: err.Error()}
	}
	return v, nil
}

func evalUnary(u UnaryExpr, env *Env) (value.Value, error) {
	operand, err := Eval(u.Operand, env)
	if err != nil {
		return value.Null(), err
	}
	switch u.Op {
	case "!":
		return value.Bool(!operand.Truthy()), nil
	case "-":
		if operand.Kind() != value.KindNumber {
			return value.Null(), &TypeError{Message: "unary '-' requires a number"}
		}
		return value.Number(-operand.AsNumber()), nil
	}
	return value.Null(), &ParseError{Message: "unknown unary operator " + u.Op}
}

func evalBinary(b BinaryExpr, env *Env) (value.Value, error) {
	// Short-circuit logical operators.
	if b.Op == "&&" {
		left, err := Eval(b.Left, env)
		if err != nil {
			return value.Null(), err
		}
		if !left.Truthy() {
			return value.Bool(false), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(right.Truthy()), nil
	}
	if b.Op == "||" {
		left, err := Eval(b.Left, env)
		if err != nil {
			return value.Null(), err
		}
		if left.Truthy() {
			return value.Bool(true), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(right.Truthy()), nil
	}

	left, err := Eval(b.Left, env)
	if err != nil {
		return value.Null(), err
	}
	right, err := Eval(b.Right, env)
	if err != nil {
		return value.Null(), err
	}

	switch b.Op {
	case "==":
		return value.Bool(value.Equal(left, right)), nil
	case "!=":
		return value.Bool(!value.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return evalComparison(b.Op, left, right), nil
	case "+":
		if left.Kind() == value.KindString || right.Kind() == value.KindString {
			return value.String(stringify(left) + stringify(right)), nil
		}
		if left.Kind() != value.KindNumber || right.Kind() != value.KindNumber {
			return value.Null(), &TypeError{Message: "'+' requires two numbers or a string operand"}
		}
		return value.Number(left.AsNumber() + right.AsNumber()), nil
	case "-":
		if err := requireNumbers(left, right); err != nil {
			return value.Null(), err
		}
		return value.Number(left.AsNumber() - right.AsNumber()), nil
	case "*":
		if err := requireNumbers(left, right); err != nil {
			return value.Null(), err
		}
		return value.Number(left.AsNumber() * right.AsNumber()), nil
	case "/":
		if err := requireNumbers(left, right); err != nil {
			return value.Null(), err
		}
		if right.AsNumber() == 0 {
			return value.Null(), &TypeError{Message: "division by zero"}
		}
		return value.Number(left.AsNumber() / right.AsNumber()), nil
	case "%":
		if err := requireNumbers(left, right); err != nil {
			return value.Null(), err
		}
		if right.AsNumber() == 0 {
			return value.Null(), &TypeError{Message: "division by zero"}
		}
		return value.Number(float64(int64(left.AsNumber()) % int64(right.AsNumber()))), nil
	}
	return value.Null(), &ParseError{Message: "unknown binary operator " + b.Op}
}

func requireNumbers(a, b value.Value) error {
	if a.Kind() != value.KindNumber || b.Kind() != value.KindNumber {
		return &TypeError{Message: "operator requires two numbers"}
	}
	return nil
}

// evalComparison implements the spec's rule that mismatched-type
// comparisons yield false rather than erroring.
func evalComparison(op string, a, b value.Value) value.Value {
	if a.Kind() != b.Kind() || (a.Kind() != value.KindNumber && a.Kind() != value.KindString) {
		return value.Bool(false)
	}
	var less, equal bool
	if a.Kind() == value.KindNumber {
		less = a.AsNumber() < b.AsNumber()
		equal = a.AsNumber() == b.AsNumber()
	} else {
		less = a.AsString() < b.AsString()
		equal = a.AsString() == b.AsString()
	}
	switch op {
	case "<":
		return value.Bool(less)
	case "<=":
		return value.Bool(less || equal)
	case ">":
		return value.Bool(!less && !equal)
	case ">=":
		return value.Bool(!less)
	}
	return value.Bool(false)
}

func stringify(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return v.AsString()
	case value.KindNumber:
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNull:
		return ""
	default:
		raw, _ := v.MarshalJSON()
		return string(raw)
	}
}
