// Package signalbus implements the process-wide named pub/sub event bus
// described in spec.md §4.1: handlers register under a name, emissions
// are delivered synchronously in registration order, and a scoped
// suppression mechanism lets bulk state loads collect events instead of
// delivering them.
//
// Go has no supported thread-local storage, so the "current thread's
// client-id" and the suppression stack are carried explicitly through a
// context.Context rather than an ambient global (see spec.md §9's note on
// this). Callers that want echo-suppression or suppression-scoped bulk
// loads must thread the context returned by WithClientID/Suppress through
// to Emit.
package signalbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Payload is the data attached to an emission. Handlers must not mutate
// the map they are handed.
type Payload map[string]any

// Event is one emission captured by a suppression scope.
type Event struct {
	Name string
	Data Payload
}

// Handler reacts to an emission. A handler must not panic; if it does,
// Bus recovers and logs rather than letting the panic propagate to the
// emitter (spec.md §4.1: "handler exceptions never propagate out of
// emit").
type Handler func(ctx context.Context, name string, data Payload)

type clientIDKey struct{}
type suppressKey struct{}

// WithClientID tags ctx with the client id that should be attached to
// any emission made through it. Used by the websocket fan-out to
// recognise and drop its own echoes (spec.md §4.10).
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientID returns the client id tagged on ctx, if any.
func ClientID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey{}).(string)
	return id, ok
}

// suppressFrame is one suppression scope's buffer. A nested Suppress
// shadows the enclosing frame in the context, so an inner scope's
// events are collected only by that scope, never by the outer one.
type suppressFrame struct {
	mu     sync.Mutex
	events []Event
}

// Suppress starts a new, possibly nested, suppression scope. Emissions
// made through the returned context append to this scope's buffer
// instead of being delivered to handlers. The returned collect function
// yields the buffered events, in emission order; it may be called after
// the scope's context is no longer in use (typical: bulk state loads
// emit a single summary event after the scope ends and discard the
// collected list).
func Suppress(ctx context.Context) (scoped context.Context, collect func() []Event) {
	frame := &suppressFrame{}
	scoped = context.WithValue(ctx, suppressKey{}, frame)

	return scoped, func() []Event {
		frame.mu.Lock()
		defer frame.mu.Unlock()

		out := make([]Event, len(frame.events))
		copy(out, frame.events)

		return out
	}
}

func currentSuppression(ctx context.Context) *suppressFrame {
	f, _ := ctx.Value(suppressKey{}).(*suppressFrame)
	return f
}

type registration struct {
	id      int
	handler Handler
}

// Bus is a named pub/sub event bus. The zero value is not usable; use
// New.
type Bus struct {
	mu       sync.Mutex
	named    map[string][]registration
	all      []registration
	nextID   int
	logger   *log.Logger
}

// New creates an empty, ready-to-use Bus.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}

	return &Bus{
		named:  make(map[string][]registration),
		logger: logger,
	}
}

// Register subscribes handler to emissions of name. The returned token
// can be passed to Unregister.
func (b *Bus) Register(name string, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.named[name] = append(b.named[name], registration{id, handler})

	return id
}

// RegisterAll subscribes handler to every emission, regardless of name.
// This is the explicit broadcast role that spec.md's legacy "__all__"
// name plays; all-handlers always run after every named handler for the
// same emission (spec.md §4.1: "delivers ... to all named-handlers, then
// all __all__-handlers").
func (b *Bus) RegisterAll(handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, registration{id, handler})

	return id
}

// Unregister removes a registration made with Register or RegisterAll by
// its token. It is a no-op if the token is unknown.
func (b *Bus) Unregister(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, regs := range b.named {
		b.named[name] = removeReg(regs, token)
	}

	b.all = removeReg(b.all, token)
}

func removeReg(regs []registration, token int) []registration {
	out := regs[:0:0]

	for _, r := range regs {
		if r.id != token {
			out = append(out, r)
		}
	}

	return out
}

// Emit delivers name/data to every handler registered for name, then to
// every RegisterAll handler, in registration order. The client id on ctx
// (if any) is copied onto data under "client_id" before delivery. If ctx
// carries a suppression frame, the event is appended to it and delivery
// is skipped entirely.
func (b *Bus) Emit(ctx context.Context, name string, data Payload) {
	if data == nil {
		data = Payload{}
	}

	if id, ok := ClientID(ctx); ok {
		data = cloneWithClientID(data, id)
	}

	if frame := currentSuppression(ctx); frame != nil {
		frame.mu.Lock()
		frame.events = append(frame.events, Event{Name: name, Data: data})
		frame.mu.Unlock()

		return
	}

	b.mu.Lock()
	named := append([]registration(nil), b.named[name]...)
	all := append([]registration(nil), b.all...)
	b.mu.Unlock()

	for _, r := range named {
		b.dispatch(ctx, r.handler, name, data)
	}

	for _, r := range all {
		b.dispatch(ctx, r.handler, name, data)
	}
}

func cloneWithClientID(data Payload, id string) Payload {
	out := make(Payload, len(data)+1)
	for k, v := range data {
		out[k] = v
	}

	out["client_id"] = id

	return out
}

func (b *Bus) dispatch(ctx context.Context, handler Handler, name string, data Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("signalbus: handler panic", "event", name, "recover", fmt.Sprint(r))
		}
	}()

	handler(ctx, name, data)
}
