package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/input"
	"github.com/midigurdy/core/internal/menu"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

func newTestDispatcher(t *testing.T, system adapters.System) (*Dispatcher, *state.Tree, *menu.Stack, *signalbus.Bus) {
	t.Helper()

	bus := signalbus.New(nil)
	tree := state.NewTree(bus)
	stack := menu.NewStack(tree.Lock)
	d := New(nil, stack, tree, system, 16)

	return d, tree, stack, bus
}

// --- S3: fn4 power-off gesture (spec.md §8) ---

func TestPowerOffGestureHoldThroughBothTimers(t *testing.T) {
	fakeSys := &adapters.FakeSystem{}
	d, _, stack, _ := newTestDispatcher(t, fakeSys)

	fired := make(chan struct{}, 2)
	restoreAfter := fakeAfterFunc(fired)
	defer restoreAfter()

	d.handleInput(context.Background(), input.Event{Name: input.KeyFn4, Action: input.ActionDown})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("power hold timer never fired")
	}

	_, ok := stack.Current().(*menu.MessagePage)
	require.True(t, ok, "expected modal message page after hold timer fires")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("power off timer never fired")
	}

	assert.True(t, fakeSys.PoweredOff)
}

func TestPowerOffGestureCancelledOnEarlyRelease(t *testing.T) {
	fakeSys := &adapters.FakeSystem{}
	d, _, stack, _ := newTestDispatcher(t, fakeSys)

	var scheduled []*time.Timer
	orig := afterFunc
	afterFunc = func(dur time.Duration, fn func()) *time.Timer {
		// never actually fire; released before elapsing
		tm := time.AfterFunc(time.Hour, fn)
		scheduled = append(scheduled, tm)
		return tm
	}
	defer func() { afterFunc = orig }()

	ctx := context.Background()

	d.handleInput(ctx, input.Event{Name: input.KeyFn4, Action: input.ActionDown})
	d.handleInput(ctx, input.Event{Name: input.KeyFn4, Action: input.ActionUp})

	assert.Nil(t, stack.Current())
	assert.False(t, fakeSys.PoweredOff)
	assert.Nil(t, d.powerHoldTimer)
	assert.Nil(t, d.powerOffTimer)
}

// --- S4: hot-plug mdev event ---

func TestHandleMdevEmitsPortChangeAndUDC(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)

	var events []string
	tree.Bus.RegisterAll(func(ctx context.Context, name string, data signalbus.Payload) {
		events = append(events, name)
	})

	d.handleMdev(context.Background(), input.MdevEvent{
		Action: input.MdevAdd, Source: "rawmidi0", Subsystem: "udc", Device: "musb-hdrc",
	})

	assert.Contains(t, events, "mdev:udc")
	assert.Contains(t, events, "mdev:port_change")
}

func TestHandleMdevNonUDCOnlyEmitsPortChange(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)

	var events []string
	tree.Bus.RegisterAll(func(ctx context.Context, name string, data signalbus.Payload) {
		events = append(events, name)
	})

	d.handleMdev(context.Background(), input.MdevEvent{
		Action: input.MdevAdd, Source: "rawmidi0", Subsystem: "sound", Device: "snd-card0",
	})

	assert.NotContains(t, events, "mdev:udc")
	assert.Contains(t, events, "mdev:port_change")
}

// --- top1/2/3 mute toggling ---

func TestTopKeyShortPressTogglesSingleVoice(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()

	tree.Active.Melody[0].SetMuted(ctx, false)

	d.handleInput(ctx, input.Event{Name: input.KeyTop2, Action: input.ActionShort})

	assert.True(t, tree.Active.Melody[0].Muted)
}

func TestTopKeyLongPressTogglesAllVoicesOfType(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()

	for _, v := range tree.Active.Trompette {
		v.SetMuted(ctx, true)
	}

	d.handleInput(ctx, input.Event{Name: input.KeyTop1, Action: input.ActionLong})

	for _, v := range tree.Active.Trompette {
		assert.False(t, v.Muted)
	}

	d.handleInput(ctx, input.Event{Name: input.KeyTop1, Action: input.ActionLong})

	for _, v := range tree.Active.Trompette {
		assert.True(t, v.Muted)
	}
}

// --- mod key modes ---

func TestModGroup1HoldStackPushAndPop(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	tree.UI.Mod1KeyMode = state.ModGroup1

	d.handleInput(ctx, input.Event{Name: input.KeyMod1, Action: input.ActionDown})
	assert.Equal(t, 0, tree.UI.StringGroup)

	d.handleInput(ctx, input.Event{Name: input.KeyMod1, Action: input.ActionUp})
}

func TestModGroupNextStepsGroup(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	tree.UI.Mod1KeyMode = state.ModGroupNext
	tree.UI.StringGroup = 0

	d.handleInput(ctx, input.Event{Name: input.KeyMod1, Action: input.ActionShort})

	assert.Equal(t, 1, tree.UI.StringGroup)
}

func TestModPresetModeRunsRegisteredAction(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	tree.UI.Mod1KeyMode = state.ModPreset

	var called string
	d.RegisterAction("load_next_preset", func(ctx context.Context, v any) { called = "next" })
	d.RegisterAction("load_prev_preset", func(ctx context.Context, v any) { called = "prev" })

	d.handleInput(ctx, input.Event{Name: input.KeyMod1, Action: input.ActionShort})
	assert.Equal(t, "next", called)

	d.handleInput(ctx, input.Event{Name: input.KeyMod1, Action: input.ActionLong})
	assert.Equal(t, "prev", called)
}

func TestUnclaimedEncoderOpensChienPage(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)
	tree.UI.MultiChienThreshold = true

	var gotMulti bool
	var called bool
	d.SetChienPageOpener(func(ctx context.Context, multi bool) {
		called = true
		gotMulti = multi
	})

	d.handleInput(context.Background(), input.Event{Name: input.KeyEncoder, Value: 1})

	assert.True(t, called)
	assert.True(t, gotMulti)
}

func TestStateChangeEventAssignsUnderLock(t *testing.T) {
	d, tree, _, _ := newTestDispatcher(t, nil)

	d.handle(context.Background(), Event{Kind: KindStateChange, Path: "ui.string_group", Value: 2})

	assert.Equal(t, 2, tree.UI.StringGroup)
}

func TestStateActionEventInvokesHandler(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t, nil)

	var got any
	d.RegisterAction("toggle_string_mute", func(ctx context.Context, v any) { got = v })

	d.handle(context.Background(), Event{Kind: KindStateAction, ActionName: "toggle_string_mute", ActionValue: 3})

	assert.Equal(t, 3, got)
}

func TestHandlePanicsAreRecovered(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t, nil)

	d.RegisterAction("boom", func(ctx context.Context, v any) { panic("kaboom") })

	assert.NotPanics(t, func() {
		d.handle(context.Background(), Event{Kind: KindStateAction, ActionName: "boom"})
	})
}

// fakeNowAt overrides nowFn for the duration of a test.
func fakeNowAt(t time.Time) func() {
	orig := nowFn
	nowFn = func() time.Time { return t }
	return func() { nowFn = orig }
}

// fakeAfterFunc overrides afterFunc to run immediately (in a goroutine)
// and signal fired, so timer-driven tests don't need real hold/off
// durations.
func fakeAfterFunc(fired chan struct{}) func() {
	orig := afterFunc
	afterFunc = func(d time.Duration, fn func()) *time.Timer {
		go func() {
			fn()
			fired <- struct{}{}
		}()
		return time.NewTimer(time.Hour)
	}
	return func() { afterFunc = orig }
}
