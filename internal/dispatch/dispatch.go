// Package dispatch implements the single-FIFO-queue event dispatcher
// and main loop of spec.md §4.6: one consumer goroutine handling
// input, state, state_change, state_action, and mdev events, plus the
// fn4 power-off gesture timer of spec.md §4.7.
package dispatch

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/input"
	"github.com/midigurdy/core/internal/menu"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

// EventKind names one of the five dispatcher event types (spec.md
// §4.6).
type EventKind int

const (
	KindInput EventKind = iota
	KindState
	KindStateChange
	KindStateAction
	KindMdev
)

// Event is one entry on the dispatcher's FIFO queue.
type Event struct {
	Kind EventKind

	Input *input.Event // KindInput

	StateName    string         // KindState: event name
	StatePayload map[string]any // KindState

	Path  string // KindStateChange: dotted path to assign
	Value any    // KindStateChange: new value

	ActionName  string // KindStateAction
	ActionValue any    // KindStateAction

	Mdev *input.MdevEvent // KindMdev
}

const (
	powerHoldDuration  = 1 * time.Second
	powerOffDuration   = 2 * time.Second
)

// ActionHandler is one of the small set of named actions state_action
// events invoke (spec.md §4.6): load_preset, load_next/prev_preset,
// toggle_string_mute, preset_next, preset_prev, …
type ActionHandler func(ctx context.Context, value any)

// Dispatcher owns the FIFO queue, the menu page stack, the state tree,
// and the fn4 power-off timer state machine.
type Dispatcher struct {
	log   *log.Logger
	queue chan Event

	stack *menu.Stack
	tree  *state.Tree
	lock  *state.Lock

	actions map[string]ActionHandler

	system adapters.System

	powerHoldTimer *time.Timer
	powerOffTimer  *time.Timer

	sweeper   *menu.IdleSweeper
	mod1Stack modGroupStack
	mod2Stack modGroupStack

	onChienPage ChienPageOpener
}

// New constructs a Dispatcher. queueCap bounds the FIFO; 256 is a
// reasonable default for a single-consumer control-plane queue.
func New(logger *log.Logger, stack *menu.Stack, tree *state.Tree, system adapters.System, queueCap int) *Dispatcher {
	return &Dispatcher{
		log:     logger,
		queue:   make(chan Event, queueCap),
		stack:   stack,
		tree:    tree,
		lock:    tree.Lock,
		actions: make(map[string]ActionHandler),
		system:  system,
	}
}

// SetSweeper attaches the idle sweeper so input events can mark the
// stack as recently-touched. Only an input event that the current menu
// page handles touches the sweeper; events that fall through to the
// global input policy do not.
func (d *Dispatcher) SetSweeper(s *menu.IdleSweeper) { d.sweeper = s }

// SetChienPageOpener binds the callback that opens the chien-sensitivity
// page on an unclaimed encoder turn (spec.md §4.7).
func (d *Dispatcher) SetChienPageOpener(fn ChienPageOpener) {
	d.onChienPage = fn
}

// RegisterAction binds name (as used by a state_action event's
// ActionName) to handler.
func (d *Dispatcher) RegisterAction(name string, handler ActionHandler) {
	d.actions[name] = handler
}

// Enqueue appends ev to the FIFO; it never blocks the caller beyond the
// queue's capacity, matching spec.md §5's non-blocking-producer model.
func (d *Dispatcher) Enqueue(ev Event) { d.queue <- ev }

// Run consumes the queue on the calling goroutine until ctx is
// cancelled. All panics recovered per event keep the loop alive
// (spec.md §4.6: "All exceptions are caught and logged").
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.handle(ctx, ev)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil && d.log != nil {
			d.log.Error("dispatch: event handler panicked, dropping event", "panic", r)
		}
	}()

	switch ev.Kind {
	case KindInput:
		d.handleInput(ctx, *ev.Input)
	case KindState:
		d.stack.DeliverState(ctx, ev.StateName, ev.StatePayload)
	case KindStateChange:
		d.lock.With(ctx, "", func(ctx context.Context) {
			if err := d.tree.SetByPath(ctx, ev.Path, ev.Value); err != nil && d.log != nil {
				d.log.Warn("dispatch: state_change failed", "path", ev.Path, "err", err)
			}
		})
	case KindStateAction:
		handler, ok := d.actions[ev.ActionName]
		if !ok {
			if d.log != nil {
				d.log.Warn("dispatch: unknown state_action", "name", ev.ActionName)
			}

			return
		}

		handler(ctx, ev.ActionValue)
	case KindMdev:
		d.handleMdev(ctx, *ev.Mdev)
	}
}

func (d *Dispatcher) handleMdev(ctx context.Context, ev input.MdevEvent) {
	switch ev.Subsystem {
	case "udc":
		d.bus().Emit(ctx, "mdev:udc", signalbus.Payload{"device": ev.Device, "action": string(ev.Action)})
	}

	d.bus().Emit(ctx, "mdev:port_change", signalbus.Payload{
		"action": string(ev.Action), "source": ev.Source, "subsystem": ev.Subsystem, "device": ev.Device,
	})
}

func (d *Dispatcher) bus() *signalbus.Bus {
	return d.tree.Bus
}

func toMenuEvent(ev input.Event) menu.InputEvent {
	return menu.InputEvent{Name: string(ev.Name), Action: string(ev.Action), Value: ev.Value, TimestampUS: ev.TimestampUS}
}

// nowFn is indirected so tests can observe timer scheduling without
// depending on wall-clock time.
var nowFn = time.Now

var afterFunc = func(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, fn)
}

var stopTimer = func(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
