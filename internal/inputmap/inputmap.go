// Package inputmap loads the input-map JSON file named in spec.md §6
// and compiles it into the mapping tables internal/input's sources
// consult at run time: EvdevMapping bindings for "evdev" sources, and
// MIDIKeyRule/DispatchRule sets for "midi" sources. Any condition or
// value expression is compiled through internal/exprlang, which
// rejects unrecognized tokens immediately (spec.md §9's REDESIGN
// FLAGS: unknown tokens fail at load time, never at evaluation time).
package inputmap

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/midigurdy/core/internal/errs"
	"github.com/midigurdy/core/internal/exprlang"
	"github.com/midigurdy/core/internal/input"
)

// SourceDoc is one entry of the input-map file: a named input source
// (an evdev character device or a MIDI port) plus the mapping rules
// that translate its raw records into logical events.
type SourceDoc struct {
	Name    string        `json:"name"`
	Type    string        `json:"type"` // "evdev" or "midi"
	Debug   bool          `json:"debug"`
	Device  string        `json:"device"`
	Mappings []MappingDoc `json:"mappings"`
}

// MappingDoc pairs one input matcher with the event it produces.
type MappingDoc struct {
	Input InputDoc `json:"input"`
	Event EventDoc `json:"event"`
}

// InputDoc matches a raw record. For an "evdev" source, EvType/EvCode/
// EvValue identify the (type, code, value) triple and Encoder marks a
// relative-axis binding rather than a key. For a "midi" source, Name
// is the required channel-voice message type (e.g. "note_on",
// "control_change"), Channel/Arg1 are optional exact-match filters,
// and Cond is an optional exprlang condition evaluated against the
// message's {channel, arg1, arg2} fields.
type InputDoc struct {
	EvType   *uint16 `json:"ev_type,omitempty"`
	EvCode   *uint16 `json:"ev_code,omitempty"`
	EvValue  *int32  `json:"ev_value,omitempty"`
	Encoder  bool    `json:"encoder,omitempty"`

	Name    string `json:"name,omitempty"`
	Channel *int   `json:"channel,omitempty"`
	Arg1    *int   `json:"arg1,omitempty"`
	Cond    string `json:"cond,omitempty"`
}

// EventDoc is the event a matched input produces. Type selects which
// of Key/Action (KindInput), StateName (KindState), Path (KindState
// Change), or ActionName (KindStateAction) apply; Value carries a
// literal, or Expr names an exprlang expression evaluated against the
// triggering MIDI message to compute it dynamically.
type EventDoc struct {
	Type string `json:"type" validate:"oneof=input state state_change state_action"`

	Key    string `json:"key,omitempty"`
	Action string `json:"action,omitempty"`

	StateName string `json:"state_name,omitempty"`

	Path string `json:"path,omitempty"`

	ActionName string `json:"action_name,omitempty"`

	Value any    `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

// Config is a fully loaded and parsed (but not yet compiled) input
// map.
type Config struct {
	Sources []SourceDoc
}

// Load reads and parses the input-map file at path. Malformed JSON is
// an errs.ConfigError, matching spec.md §9's load-time-failure
// convention for configuration.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &errs.ConfigError{Path: path, Err: err}
	}

	var sources []SourceDoc
	if err := json.Unmarshal(data, &sources); err != nil {
		return Config{}, &errs.ConfigError{Path: path, Err: err}
	}

	return Config{Sources: sources}, nil
}

// ApplyEvdev compiles every "evdev" source's mappings into mapping's
// bind table. It is safe to call once per process with the single
// shared EvdevMapping all EventDevSources reference.
func (c Config) ApplyEvdev(mapping *input.EvdevMapping) error {
	for _, src := range c.Sources {
		if src.Type != "evdev" {
			continue
		}

		for _, m := range src.Mappings {
			if err := bindEvdev(mapping, m); err != nil {
				return &errs.ConfigError{Path: src.Name, Err: err}
			}
		}
	}

	return nil
}

func bindEvdev(mapping *input.EvdevMapping, m MappingDoc) error {
	in := m.Input
	if in.EvType == nil || in.EvCode == nil || in.EvValue == nil {
		return fmt.Errorf("evdev mapping missing ev_type/ev_code/ev_value")
	}

	raw := input.EvdevMapKey{Type: *in.EvType, Code: *in.EvCode, Value: *in.EvValue}

	if in.Encoder {
		value := 0
		if v, ok := m.Event.Value.(float64); ok {
			value = int(v)
		}

		mapping.BindEncoder(raw, input.Key(m.Event.Key), value)

		return nil
	}

	action, err := parseAction(m.Event.Action)
	if err != nil {
		return err
	}

	mapping.BindKey(raw, input.Key(m.Event.Key), action)

	return nil
}

func parseAction(s string) (input.Action, error) {
	switch input.Action(s) {
	case input.ActionDown, input.ActionUp, input.ActionShort, input.ActionLong:
		return input.Action(s), nil
	}

	return "", fmt.Errorf("unrecognized key action %q", s)
}

// CompileMIDI compiles the named "midi" source's mappings into the
// rule sets a MIDIPortSource consults, in file order (first match
// wins). Key-rules (event type "input") and dispatch-rules (every
// other event type) are returned separately since they attach to the
// source through different hooks.
func (c Config) CompileMIDI(sourceName string) ([]input.MIDIKeyRule, []input.DispatchRule, error) {
	var keyRules []input.MIDIKeyRule

	var dispatchRules []input.DispatchRule

	for _, src := range c.Sources {
		if src.Type != "midi" || src.Name != sourceName {
			continue
		}

		for _, m := range src.Mappings {
			match, err := compileMatch(m.Input)
			if err != nil {
				return nil, nil, &errs.ConfigError{Path: src.Name, Err: err}
			}

			if m.Event.Type == "input" {
				rule, err := compileKeyRule(match, m.Event)
				if err != nil {
					return nil, nil, &errs.ConfigError{Path: src.Name, Err: err}
				}

				keyRules = append(keyRules, rule)

				continue
			}

			rule, err := compileDispatchRule(match, m.Event)
			if err != nil {
				return nil, nil, &errs.ConfigError{Path: src.Name, Err: err}
			}

			dispatchRules = append(dispatchRules, rule)
		}
	}

	return keyRules, dispatchRules, nil
}

// compileMatch builds the Match closure shared by key- and dispatch-
// rules: message name and, when given, channel/arg1 exact filters and
// a compiled exprlang condition.
func compileMatch(in InputDoc) (func(input.MIDIMessage) bool, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("midi mapping missing input.name")
	}

	var cond *exprlang.Expr

	if in.Cond != "" {
		e, err := exprlang.Parse(in.Cond)
		if err != nil {
			return nil, err
		}

		cond = e
	}

	name := in.Name
	channel := in.Channel
	arg1 := in.Arg1

	return func(msg input.MIDIMessage) bool {
		if string(msg.Name) != name {
			return false
		}

		if channel != nil && msg.Channel != *channel {
			return false
		}

		if arg1 != nil && msg.Arg1 != *arg1 {
			return false
		}

		if cond != nil {
			ok, err := cond.Test(toBinding(msg))
			if err != nil || !ok {
				return false
			}
		}

		return true
	}, nil
}

func toBinding(msg input.MIDIMessage) exprlang.Binding {
	return exprlang.Binding{Channel: msg.Channel, Name: string(msg.Name), Arg1: msg.Arg1, Arg2: msg.Arg2}
}

func compileKeyRule(match func(input.MIDIMessage) bool, ev EventDoc) (input.MIDIKeyRule, error) {
	action, err := parseAction(ev.Action)
	if err != nil {
		return input.MIDIKeyRule{}, err
	}

	valueFn, err := compileValueFn(ev)
	if err != nil {
		return input.MIDIKeyRule{}, err
	}

	return input.MIDIKeyRule{Match: match, Key: input.Key(ev.Key), Action: action, Value: valueFn}, nil
}

func compileDispatchRule(match func(input.MIDIMessage) bool, ev EventDoc) (input.DispatchRule, error) {
	valueFn, err := compileValueFn(ev)
	if err != nil {
		return input.DispatchRule{}, err
	}

	build := func(msg input.MIDIMessage) input.DispatchPayload {
		var value any = ev.Value
		if valueFn != nil {
			value = valueFn(msg)
		}

		return input.DispatchPayload{
			Kind:         ev.Type,
			StateName:    ev.StateName,
			Path:         ev.Path,
			ActionName:   ev.ActionName,
			Value:        value,
			ActionValue:  value,
			StatePayload: map[string]any{"value": value},
		}
	}

	return input.DispatchRule{Match: match, Build: build}, nil
}

// compileValueFn compiles ev.Expr, if set, into a closure evaluating
// it against the triggering MIDI message. A nil return means the
// caller should fall back to ev.Value as a literal.
func compileValueFn(ev EventDoc) (func(input.MIDIMessage) int, error) {
	if ev.Expr == "" {
		return nil, nil
	}

	e, err := exprlang.Parse(ev.Expr)
	if err != nil {
		return nil, err
	}

	return func(msg input.MIDIMessage) int {
		v, err := e.Eval(toBinding(msg))
		if err != nil {
			return 0
		}

		return v
	}, nil
}
