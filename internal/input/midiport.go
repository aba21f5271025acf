package input

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/pkg/term"
)

// looksLikeSerial reports whether path names a serial/tty-style device
// (spec.md §4.4's "MIDI-over-UART expansion board" case), mirroring
// the teacher's own serial_port_open device-name convention.
func looksLikeSerial(path string) bool {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}

	return strings.HasPrefix(base, "tty") || strings.HasPrefix(base, "rfcomm") || strings.HasPrefix(strings.ToUpper(base), "COM")
}

// midiHandle abstracts the two concrete ways a MIDI hardware
// descriptor is opened: a raw-mode serial terminal, or a plain
// character device file.
type midiHandle interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Close() error
	Fd() uintptr
}

type termHandle struct{ t *term.Term }

func (h termHandle) Read(buf []byte) (int, error)  { return h.t.Read(buf) }
func (h termHandle) Write(data []byte) (int, error) { return h.t.Write(data) }
func (h termHandle) Close() error                  { return h.t.Close() }
func (h termHandle) Fd() uintptr                   { return h.t.Fd() }

type fileHandle struct{ f *os.File }

func (h fileHandle) Read(buf []byte) (int, error)  { return h.f.Read(buf) }
func (h fileHandle) Write(data []byte) (int, error) { return h.f.Write(data) }
func (h fileHandle) Close() error                  { return h.f.Close() }
func (h fileHandle) Fd() uintptr                   { return h.f.Fd() }

// MIDIKeyRule translates a matched MIDI message into a logical Key/
// Action pair, the same vocabulary an evdev mapping produces. Match
// and Value are closures rather than data so that internal/inputmap
// can build them from compiled exprlang.Expr conditions without this
// package depending on exprlang or on the input-map JSON shape.
type MIDIKeyRule struct {
	Match  func(MIDIMessage) bool
	Key    Key
	Action Action
	Value  func(MIDIMessage) int
}

// DispatchPayload is a neutral description of a dispatcher-level event
// (state/state_change/state_action), shaped like dispatch.Event minus
// the Input/Mdev fields that don't apply to a MIDI-triggered rule.
// Kept here rather than importing internal/dispatch, which already
// imports internal/input.
type DispatchPayload struct {
	Kind string // "state", "state_change", or "state_action"

	StateName    string
	StatePayload map[string]any

	Path  string
	Value any

	ActionName  string
	ActionValue any
}

// DispatchRule translates a matched MIDI message into a DispatchPayload.
type DispatchRule struct {
	Match func(MIDIMessage) bool
	Build func(MIDIMessage) DispatchPayload
}

// MIDIPortSource wraps a non-blocking hardware MIDI descriptor,
// feeding bytes into a streaming midiParser (spec.md §4.4).
type MIDIPortSource struct {
	path  string
	debug bool

	h      midiHandle
	parser midiParser
	buf    []byte

	keyRules      []MIDIKeyRule
	dispatchRules []DispatchRule
	dispatchSink  func(DispatchPayload)
}

// NewMIDIPortSource constructs a source for the given device path.
func NewMIDIPortSource(path string, debug bool) *MIDIPortSource {
	return &MIDIPortSource{path: path, debug: debug, buf: make([]byte, 256)}
}

func (s *MIDIPortSource) Open() error {
	if looksLikeSerial(s.path) {
		t, err := term.Open(s.path, term.RawMode)
		if err != nil {
			return fmt.Errorf("midiport: open serial %s: %w", s.path, err)
		}

		s.h = termHandle{t: t}

		return nil
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("midiport: open %s: %w", s.path, err)
	}

	s.h = fileHandle{f: f}

	return nil
}

func (s *MIDIPortSource) Close() error {
	if s.h == nil {
		return nil
	}

	return s.h.Close()
}

func (s *MIDIPortSource) FD() int {
	if s.h == nil {
		return -1
	}

	return int(s.h.Fd())
}

func (s *MIDIPortSource) Name() string     { return "midiport:" + s.path }
func (s *MIDIPortSource) Filename() string  { return s.path }
func (s *MIDIPortSource) Debug() bool       { return s.debug }

// Read drains up to the bounded buffer and feeds every byte through
// the running-status parser, returning one RawRecord per completed
// channel-voice message.
func (s *MIDIPortSource) Read(ctx context.Context) ([]RawRecord, error) {
	n, err := s.h.Read(s.buf)
	if err != nil {
		return nil, err
	}

	msgs := s.parser.FeedAll(s.buf[:n])

	out := make([]RawRecord, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out[i] = RawRecord{MIDI: &m}
	}

	return out, nil
}

// SetKeyRules installs the compiled input-map rules that turn a MIDI
// message into a logical Key/Action, consulted by Map in order with
// first-match-wins.
func (s *MIDIPortSource) SetKeyRules(rules []MIDIKeyRule) { s.keyRules = rules }

// SetDispatchRules installs compiled rules for MIDI messages that
// drive a dispatcher-level state/state_change/state_action event
// rather than a key press; sink is invoked synchronously from Map for
// every match, letting the caller (cmd/mgurdyd) translate
// DispatchPayload into a real dispatch.Event and enqueue it.
func (s *MIDIPortSource) SetDispatchRules(rules []DispatchRule, sink func(DispatchPayload)) {
	s.dispatchRules = rules
	s.dispatchSink = sink
}

// Map translates a decoded MIDI message into an Event using the
// compiled input-map rules (internal/inputmap): key rules win first
// match, then dispatch rules fire their sink as a side effect.
// Messages matching neither are dropped, mirroring evdev's unmapped-
// record behaviour.
func (s *MIDIPortSource) Map(rec RawRecord) *Event {
	if rec.MIDI == nil {
		return nil
	}

	msg := *rec.MIDI

	for _, rule := range s.keyRules {
		if !rule.Match(msg) {
			continue
		}

		value := 0
		if rule.Value != nil {
			value = rule.Value(msg)
		}

		return &Event{Name: rule.Key, Action: rule.Action, Value: value, TimestampUS: rec.TimestampUS, Source: s.Name()}
	}

	for _, rule := range s.dispatchRules {
		if !rule.Match(msg) {
			continue
		}

		if s.dispatchSink != nil {
			s.dispatchSink(rule.Build(msg))
		}

		return nil
	}

	return nil
}
