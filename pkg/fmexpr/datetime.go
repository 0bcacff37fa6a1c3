package fmexpr

import (
	"strings"
	"time"

	"github.com/flowmesh/engine/pkg/value"
)

// strftimeTokens maps the common strftime directives spec §4.4's
// toFormat(fmt) supports to Go's reference-time layout tokens.
var strftimeTokens = []struct {
	directive string
	layout    string
}{
	{"%Y", "2006"},
	{"%m", "01"},
	{"%d", "02"},
	{"%H", "15"},
	{"%M", "04"},
	{"%S", "05"},
	{"%B", "January"},
	{"%b", "Jan"},
	{"%A", "Monday"},
	{"%a", "Mon"},
	{"%z", "-0700"},
}

func strftimeToGoLayout(fmtStr string) string {
	out := fmtStr
	for _, tok := range strftimeTokens {
		out = strings.ReplaceAll(out, tok.directive, tok.layout)
	}
	return out
}

func evalDateTimeMethod(v value.Value, method string, args []value.Value) (value.Value, error) {
	t := v.AsDateTime()
	switch method {
	case "toFormat":
		fmtStr, err := stringArg(args, 0, "toFormat")
		if err != nil {
			return value.Null(), err
		}
		return value.String(t.Format(strftimeToGoLayout(fmtStr))), nil
	case "plus":
		return applyDuration(t, args, 1)
	case "minus":
		return applyDuration(t, args, -1)
	}
	return value.Null(), &MethodCallError{Method: method, Message: "not defined for datetime"}
}

// applyDuration reads the optional days|hours|minutes|seconds keys from a
// duration object argument and adds sign*that duration to t.
func applyDuration(t time.Time, args []value.Value, sign int) (value.Value, error) {
	if len(args) != 1 || args[0].Kind() != value.KindObject {
		return value.Null(), &MethodCallError{Method: "plus/minus", Message: "requires a duration object argument"}
	}
	dur := args[0]
	get := func(key string) int {
		v, ok := dur.Get(key)
		if !ok || v.Kind() != value.KindNumber {
			return 0
		}
		return int(v.AsNumber())
	}
	days := get("days")
	hours := get("hours")
	minutes := get("minutes")
	seconds := get("seconds")
	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	if sign < 0 {
		total = -total
	}
	return value.DateTime(t.Add(total)), nil
}
