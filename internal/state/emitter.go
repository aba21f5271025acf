// Package state implements the observable, hierarchical instrument state
// tree of spec.md §3/§4.2: typed leaves (Voice, Preset, UIState,
// MIDIPortState) that emit "{prefix}:{attr}:changed" signals whenever a
// field assignment actually changes the value.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/midigurdy/core/internal/signalbus"
)

// Emitter is embedded by every mutable leaf of the state tree. It owns
// the leaf's dotted prefix (e.g. "active:preset:voice:melody:0") and a
// reference to the shared bus. Composing emitters (a Preset owning Voice
// emitters) chain prefixes with ":".
type Emitter struct {
	bus    *signalbus.Bus
	prefix string
}

// NewEmitter returns an Emitter that publishes on bus under prefix.
func NewEmitter(bus *signalbus.Bus, prefix string) Emitter {
	return Emitter{bus: bus, prefix: prefix}
}

// Child returns a new Emitter nested under this one, composing prefixes
// with ":" (spec.md §4.2).
func (e Emitter) Child(name string) Emitter {
	if e.prefix == "" {
		return NewEmitter(e.bus, name)
	}

	return NewEmitter(e.bus, e.prefix+":"+name)
}

// Prefix returns the emitter's dotted event-name prefix.
func (e Emitter) Prefix() string { return e.prefix }

// Bus returns the underlying signal bus, for components (the state
// lock, obj_by_path resolver) that need to emit events not tied to a
// single field.
func (e Emitter) Bus() *signalbus.Bus { return e.bus }

// NotWritable is returned when a caller attempts to assign to a
// read-only computed property (spec.md §4.2). Field setters never
// return it themselves — only the dotted-path resolver, which can be
// asked to write to a name that turns out to be a method, not a field.
type NotWritable struct {
	Path string
}

func (e *NotWritable) Error() string {
	return fmt.Sprintf("%s is not writable", e.Path)
}

// SetField performs the equality-check-and-emit assignment described in
// spec.md §4.2: if next differs from *cur, *cur is updated and
// "{prefix}:{attr}:changed" is emitted with
// {"attr": attr, "value": next, "sender": sender}.
// Equal values are a silent no-op (elides redundant events, and prevents
// the re-entrant loops spec.md §9 warns about: a change-handler writing
// the same value back will not re-trigger itself).
func SetField[T comparable](e Emitter, ctx context.Context, attr string, cur *T, next T, sender any) {
	if *cur == next {
		return
	}

	*cur = next

	if e.bus == nil {
		return
	}

	e.bus.Emit(ctx, e.prefix+":"+attr+":changed", signalbus.Payload{
		"attr":   attr,
		"value":  next,
		"sender": sender,
	})
}

// Lock is the re-entrant lock guarding bulk state mutations (spec.md
// §4.2/§5). sync.Mutex is not re-entrant, and Go intentionally exposes
// no supported way to read the current goroutine's identity, so
// re-entrancy is tracked via an explicit context token handed down the
// call chain (spec.md §9's "pass explicitly in request-scoped contexts"
// note) rather than native recursive-mutex semantics.
type Lock struct {
	mu  sync.Mutex
	bus *signalbus.Bus
}

// NewLock returns a Lock that announces locked/unlocked transitions on
// bus.
func NewLock(bus *signalbus.Bus) *Lock {
	return &Lock{bus: bus}
}

type lockTokenKey struct{}

// held reports whether ctx already holds this Lock (re-entrant case).
func (l *Lock) held(ctx context.Context) bool {
	tok, _ := ctx.Value(lockTokenKey{}).(*Lock)
	return tok == l
}

// With acquires the lock (or recognises re-entrant possession via ctx),
// runs fn with a context marked as holding the lock, and releases on
// return. If message is non-empty and this is not a re-entrant
// acquisition, "state:locked"/"state:unlocked" are emitted around fn
// (consumed by the menu to show a modal overlay).
func (l *Lock) With(ctx context.Context, message string, fn func(ctx context.Context)) {
	if l.held(ctx) {
		fn(ctx)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	held := context.WithValue(ctx, lockTokenKey{}, l)

	if message != "" && l.bus != nil {
		l.bus.Emit(held, "state:locked", signalbus.Payload{"message": message})

		defer l.bus.Emit(held, "state:unlocked", signalbus.Payload{"message": message})
	}

	fn(held)
}
