package dispatch

import (
	"context"

	"github.com/midigurdy/core/internal/input"
	"github.com/midigurdy/core/internal/menu"
	"github.com/midigurdy/core/internal/state"
)

// ChienPageOpener opens the chien-sensitivity page, single-voice or
// multi-voice depending on multiChienThreshold.
type ChienPageOpener func(ctx context.Context, multiChienThreshold bool)

// modGroupStack tracks the held mod1/mod2 keys in group1/group2 mode
// (spec.md §4.7: "maintains a stack of currently-held mod groups;
// down pushes, up pops; ui.string_group always reflects the top of
// stack, defaulting to the profile default when empty").
type modGroupStack struct {
	stack []int
	def   int
}

func (s *modGroupStack) push(group int) int {
	s.stack = append(s.stack, group)
	return s.top()
}

func (s *modGroupStack) pop(group int) int {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] == group {
			s.stack = append(s.stack[:i], s.stack[i+1:]...)
			break
		}
	}

	return s.top()
}

func (s *modGroupStack) top() int {
	if len(s.stack) == 0 {
		return s.def
	}

	return s.stack[len(s.stack)-1]
}

func (d *Dispatcher) handleInput(ctx context.Context, ev input.Event) {
	d.handlePowerKey(ctx, ev)

	mev := toMenuEvent(ev)

	if d.stack.Dispatch(ctx, mev) {
		if d.sweeper != nil {
			d.sweeper.Touch(nowFn())
		}

		return
	}

	switch ev.Name {
	case input.KeyTop1, input.KeyTop2, input.KeyTop3:
		d.handleTopKey(ctx, ev)
	case input.KeyMod1:
		d.handleModKey(ctx, ev, d.tree.UI.Mod1KeyMode, &d.mod1Stack)
	case input.KeyMod2:
		d.handleModKey(ctx, ev, d.tree.UI.Mod2KeyMode, &d.mod2Stack)
	case input.KeyEncoder:
		if d.onChienPage != nil {
			d.onChienPage(ctx, d.tree.UI.MultiChienThreshold)
		}
	}
}

func (d *Dispatcher) handlePowerKey(ctx context.Context, ev input.Event) {
	if ev.Name != input.KeyFn4 {
		return
	}

	switch ev.Action {
	case input.ActionDown:
		d.powerHoldTimer = afterFunc(powerHoldDuration, func() {
			d.stack.Push(ctx, menu.NewMessagePage("Hold 2s to power off", 0, false, true))

			d.powerOffTimer = afterFunc(powerOffDuration, func() {
				if d.system != nil {
					d.system.PowerOff(ctx)
				}
			})
		})
	case input.ActionUp:
		stopTimer(d.powerHoldTimer)
		stopTimer(d.powerOffTimer)
		d.powerHoldTimer = nil
		d.powerOffTimer = nil
	}
}

// topKeyVoiceType maps top1/2/3 to trompette/melody/drone per spec.md
// §4.7.
func topKeyVoiceType(k input.Key) state.VoiceType {
	switch k {
	case input.KeyTop1:
		return state.VoiceTrompette
	case input.KeyTop2:
		return state.VoiceMelody
	default:
		return state.VoiceDrone
	}
}

func (d *Dispatcher) handleTopKey(ctx context.Context, ev input.Event) {
	typ := topKeyVoiceType(ev.Name)
	group := d.tree.UI.StringGroup

	voices := d.tree.Active.VoicesByType(typ)
	if group < 0 || group >= len(voices) {
		return
	}

	switch ev.Action {
	case input.ActionShort:
		v := voices[group]
		v.SetMuted(ctx, !v.Muted)
	case input.ActionLong:
		allMuted := true
		for _, v := range voices {
			if !v.Muted {
				allMuted = false
				break
			}
		}

		for _, v := range voices {
			v.SetMuted(ctx, !allMuted)
		}
	}
}

func (d *Dispatcher) handleModKey(ctx context.Context, ev input.Event, mode state.ModKeyMode, groupStack *modGroupStack) {
	switch mode {
	case state.ModGroup1, state.ModGroup2:
		group := 0
		if mode == state.ModGroup2 {
			group = 1
		}

		groupStack.def = 0
		if d.tree.UI.StringGroupByType {
			groupStack.def = 1
		}

		switch ev.Action {
		case input.ActionDown:
			d.tree.UI.SetStringGroup(ctx, groupStack.push(group))
		case input.ActionUp:
			d.tree.UI.SetStringGroup(ctx, groupStack.pop(group))
		}
	case state.ModGroupNext:
		if ev.Action == input.ActionShort || ev.Action == input.ActionLong {
			d.tree.UI.StepGroup(ctx, 1, d.tree.UI.WrapGroups)
		}
	case state.ModGroupPrev:
		if ev.Action == input.ActionShort || ev.Action == input.ActionLong {
			d.tree.UI.StepGroup(ctx, -1, d.tree.UI.WrapGroups)
		}
	case state.ModPresetNext:
		d.fireActionOnPress(ctx, ev, "load_next_preset")
	case state.ModPresetPrev:
		d.fireActionOnPress(ctx, ev, "load_prev_preset")
	case state.ModPreset:
		if ev.Action == input.ActionShort {
			d.runAction(ctx, "load_next_preset", nil)
		} else if ev.Action == input.ActionLong {
			d.runAction(ctx, "load_prev_preset", nil)
		}
	case state.ModGroupPresetNext:
		if ev.Action == input.ActionShort {
			d.tree.UI.StepGroup(ctx, 1, d.tree.UI.WrapGroups)
		} else if ev.Action == input.ActionLong {
			d.runAction(ctx, "load_next_preset", nil)
		}
	case state.ModGroupPresetPrev:
		if ev.Action == input.ActionShort {
			d.tree.UI.StepGroup(ctx, -1, d.tree.UI.WrapGroups)
		} else if ev.Action == input.ActionLong {
			d.runAction(ctx, "load_prev_preset", nil)
		}
	case state.ModGroup:
		if ev.Action == input.ActionShort || ev.Action == input.ActionLong {
			d.tree.UI.StepGroup(ctx, 1, d.tree.UI.WrapGroups)
		}
	}
}

func (d *Dispatcher) fireActionOnPress(ctx context.Context, ev input.Event, action string) {
	if ev.Action == input.ActionShort || ev.Action == input.ActionLong {
		d.runAction(ctx, action, nil)
	}
}

func (d *Dispatcher) runAction(ctx context.Context, name string, value any) {
	if handler, ok := d.actions[name]; ok {
		handler(ctx, value)
	}
}
