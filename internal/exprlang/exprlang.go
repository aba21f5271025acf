// Package exprlang implements the tiny mini-language named in
// spec.md §9's REDESIGN FLAGS in place of arbitrary expression
// evaluation over input-map JSON: `== != range(a,b) plus(n) minus(n)
// midi_percent`, operating over the fixed MIDI binding record
// {channel, name, arg1, arg2}. Unknown tokens are rejected at
// input-map load time, never at evaluation time.
package exprlang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/midigurdy/core/internal/errs"
)

// Binding is the fixed record expressions evaluate over: the MIDI
// channel-voice message that triggered a mapping rule's cond, or
// whose fields feed an event's expr sub-object.
type Binding struct {
	Channel int
	Name    string
	Arg1    int
	Arg2    int
}

// field reads one of Binding's recognized field names.
func (b Binding) field(name string) (int, error) {
	switch name {
	case "channel":
		return b.Channel, nil
	case "arg1":
		return b.Arg1, nil
	case "arg2":
		return b.Arg2, nil
	}

	return 0, fmt.Errorf("exprlang: unknown field %q", name)
}

// Expr is a parsed, load-time-validated mini-language expression.
// Cond-kind expressions (Eq/Ne/Range) evaluate to a bool via Test;
// value-kind expressions (Plus/Minus/MIDIPercent) evaluate to an int
// via Eval.
type Expr struct {
	kind  kind
	field string
	a, b  int
}

type kind int

const (
	kindEq kind = iota
	kindNe
	kindRange
	kindPlus
	kindMinus
	kindMIDIPercent
)

// Parse compiles one expression string, rejecting anything that is not
// one of the six recognized forms (errs.ConfigError — a load-time
// failure, per spec.md §9).
//
// Recognized forms (field is one of channel/arg1/arg2, n/a/b integers):
//
//	field == n
//	field != n
//	range(field, a, b)
//	plus(field, n)
//	minus(field, n)
//	midi_percent(field)
func Parse(src string) (*Expr, error) {
	src = strings.TrimSpace(src)

	e, ok := tryParseComparison(src)
	if !ok {
		var err error
		if e, ok, err = tryParseCall(src); err != nil {
			return nil, err
		}
	}

	if !ok {
		return nil, configErr(fmt.Sprintf("unrecognized expression %q", src))
	}

	switch e.field {
	case "channel", "arg1", "arg2":
		return e, nil
	}

	return nil, configErr(fmt.Sprintf("unknown field %q", e.field))
}

func configErr(reason string) error {
	return &errs.ConfigError{Path: "expr", Err: fmt.Errorf("%s", reason)}
}

func tryParseComparison(src string) (*Expr, bool) {
	for _, op := range []struct {
		sep string
		k   kind
	}{
		{"==", kindEq},
		{"!=", kindNe},
	} {
		if idx := strings.Index(src, op.sep); idx >= 0 {
			field := strings.TrimSpace(src[:idx])
			rhs := strings.TrimSpace(src[idx+len(op.sep):])

			n, err := strconv.Atoi(rhs)
			if err != nil {
				continue
			}

			return &Expr{kind: op.k, field: field, a: n}, true
		}
	}

	return nil, false
}

func tryParseCall(src string) (*Expr, bool, error) {
	name, args, ok := splitCall(src)
	if !ok {
		return nil, false, nil
	}

	switch name {
	case "range":
		if len(args) != 3 {
			return nil, true, configErr("range() takes (field, a, b)")
		}

		a, errA := strconv.Atoi(args[1])
		b, errB := strconv.Atoi(args[2])

		if errA != nil || errB != nil {
			return nil, true, configErr("range() bounds must be integers")
		}

		return &Expr{kind: kindRange, field: args[0], a: a, b: b}, true, nil
	case "plus":
		if len(args) != 2 {
			return nil, true, configErr("plus() takes (field, n)")
		}

		n, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, true, configErr("plus() n must be an integer")
		}

		return &Expr{kind: kindPlus, field: args[0], a: n}, true, nil
	case "minus":
		if len(args) != 2 {
			return nil, true, configErr("minus() takes (field, n)")
		}

		n, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, true, configErr("minus() n must be an integer")
		}

		return &Expr{kind: kindMinus, field: args[0], a: n}, true, nil
	case "midi_percent":
		if len(args) != 1 {
			return nil, true, configErr("midi_percent() takes (field)")
		}

		return &Expr{kind: kindMIDIPercent, field: args[0]}, true, nil
	}

	return nil, true, configErr(fmt.Sprintf("unknown token %q", name))
}

func splitCall(src string) (name string, args []string, ok bool) {
	open := strings.Index(src, "(")
	if open < 0 || !strings.HasSuffix(src, ")") {
		return "", nil, false
	}

	name = strings.TrimSpace(src[:open])
	inner := src[open+1 : len(src)-1]

	for _, part := range strings.Split(inner, ",") {
		args = append(args, strings.TrimSpace(part))
	}

	return name, args, true
}

// Test evaluates a cond-kind expression (==, !=, range) against b.
func (e *Expr) Test(b Binding) (bool, error) {
	v, err := e.field2(b)
	if err != nil {
		return false, err
	}

	switch e.kind {
	case kindEq:
		return v == e.a, nil
	case kindNe:
		return v != e.a, nil
	case kindRange:
		return v >= e.a && v <= e.b, nil
	}

	return false, fmt.Errorf("exprlang: %v is not a cond expression", e.kind)
}

// Eval evaluates a value-kind expression (plus, minus, midi_percent)
// against b.
func (e *Expr) Eval(b Binding) (int, error) {
	v, err := e.field2(b)
	if err != nil {
		return 0, err
	}

	switch e.kind {
	case kindPlus:
		return v + e.a, nil
	case kindMinus:
		return v - e.a, nil
	case kindMIDIPercent:
		return int(float64(v) * 100 / 127), nil
	}

	return 0, fmt.Errorf("exprlang: %v is not a value expression", e.kind)
}

func (e *Expr) field2(b Binding) (int, error) {
	if e.field == "name" {
		return 0, fmt.Errorf("exprlang: field %q is not numeric", e.field)
	}

	return b.field(e.field)
}
