package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/midigurdy/core/internal/signalbus"
)

// Tree is the process's single observable state tree (spec.md §3: "the
// process owns exactly one State tree"). It owns the active Preset, the
// UI state, the MIDI port state, and the re-entrant state lock that
// guards multi-field mutations.
type Tree struct {
	Emitter

	Bus  *signalbus.Bus
	Lock *Lock

	Active *Preset
	UI     *UIState
	MIDI   *MIDIState

	LastPresetNumber int

	pathCache sync.Map // dotted path string -> *Resolved
}

// NewTree constructs a Tree with a freshly built active preset, UI
// state, and MIDI state, all wired to bus.
func NewTree(bus *signalbus.Bus) *Tree {
	root := NewEmitter(bus, "")

	return &Tree{
		Emitter: root,
		Bus:     bus,
		Lock:    NewLock(bus),
		Active:  NewPreset(bus, "active:preset"),
		UI:      NewUIState(root.Child("ui")),
		MIDI:    NewMIDIState(root.Child("midi")),
	}
}

// Resolved is what Tree.Resolve returns for a dotted path: typed-erased
// get/set closures over the concrete field they address.
type Resolved struct {
	Path string
	Get  func() any
	// Set is nil for read-only computed properties; calling Resolve's
	// caller-facing SetByPath on such a path returns NotWritable.
	Set func(ctx context.Context, value any) error
}

// SetByPath resolves path and assigns value to it, per spec.md §4.6's
// state_change event handling ("{path, value} -> assignment to the
// resolved attribute, under the state lock").
func (t *Tree) SetByPath(ctx context.Context, path string, value any) error {
	if handled, err := t.trySetChienThresholdPath(ctx, path, value); handled {
		return err
	}

	r, err := t.Resolve(path)
	if err != nil {
		return err
	}

	if r.Set == nil {
		return &NotWritable{Path: path}
	}

	var setErr error

	t.Lock.With(ctx, "", func(ctx context.Context) {
		setErr = r.Set(ctx, value)
	})

	return setErr
}

// trySetChienThresholdPath special-cases "preset.trompette.N.chien_threshold"
// per spec.md §8's S6: with multi_chien_threshold=false, setting any one
// trompette voice's threshold fans out to all three; with true, only the
// named voice changes. Returns handled=false for every other path, letting
// SetByPath fall through to the generic resolver.
func (t *Tree) trySetChienThresholdPath(ctx context.Context, path string, value any) (handled bool, err error) {
	segs := strings.Split(path, ".")
	if len(segs) != 4 || segs[0] != "preset" || segs[1] != "trompette" || segs[3] != "chien_threshold" {
		return false, nil
	}

	threshold := mustInt(value)

	var setErr error

	t.Lock.With(ctx, "", func(locked context.Context) {
		if t.UI.MultiChienThreshold {
			idx, convErr := strconv.Atoi(segs[2])
			if convErr != nil || idx < 0 || idx >= len(t.Active.Trompette) {
				setErr = fmt.Errorf("invalid voice index %q", segs[2])
				return
			}

			t.Active.Trompette[idx].SetChienThreshold(locked, threshold)
		} else {
			t.Active.SetChienThresholdsUniform(locked, threshold)
		}
	})

	return true, setErr
}

// Resolve implements obj_by_path (spec.md §4.2): dotted paths with
// integer segments indexing sequences, e.g. "preset.melody.0.muted" or
// "ui.string_group". Results are memoized in a cache keyed by the
// literal path string; a cache miss just recomputes (the cache is a
// weak, recomputable optimization, not a source of truth, per spec.md
// §3's ownership rules).
func (t *Tree) Resolve(path string) (*Resolved, error) {
	if cached, ok := t.pathCache.Load(path); ok {
		return cached.(*Resolved), nil
	}

	segs := strings.Split(path, ".")

	r, err := t.resolveSegments(segs)
	if err != nil {
		return nil, err
	}

	r.Path = path
	t.pathCache.Store(path, r)

	return r, nil
}

func (t *Tree) resolveSegments(segs []string) (*Resolved, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	switch segs[0] {
	case "preset":
		return resolveVoiceOrPresetPath(t.Active, segs[1:])
	case "ui":
		return resolveUIPath(t.UI, segs[1:])
	default:
		return nil, fmt.Errorf("unknown path root %q", segs[0])
	}
}

func resolveUIPath(ui *UIState, segs []string) (*Resolved, error) {
	if len(segs) != 1 {
		return nil, fmt.Errorf("invalid ui path segment count")
	}

	switch segs[0] {
	case "string_group":
		return &Resolved{
			Get: func() any { return ui.StringGroup },
			Set: func(ctx context.Context, v any) error { ui.SetStringGroup(ctx, mustInt(v)); return nil },
		}, nil
	case "brightness":
		return &Resolved{
			Get: func() any { return ui.Brightness },
			Set: func(ctx context.Context, v any) error { ui.SetBrightness(ctx, mustInt(v)); return nil },
		}, nil
	case "timeout":
		return &Resolved{
			Get: func() any { return ui.Timeout },
			Set: func(ctx context.Context, v any) error { ui.SetTimeout(ctx, mustInt(v)); return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown ui attribute %q", segs[0])
	}
}

func resolveVoiceOrPresetPath(p *Preset, segs []string) (*Resolved, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty preset path")
	}

	switch segs[0] {
	case "melody", "drone", "trompette", "keynoise":
		return resolveIntoVoiceGroup(p, VoiceType(segs[0]), segs[1:])
	case "main_volume":
		return scalarResolved(func() any { return p.MainVolume }, func(ctx context.Context, v any) error {
			p.SetMainVolume(ctx, mustInt(v))
			return nil
		}), nil
	case "reverb_volume":
		return scalarResolved(func() any { return p.ReverbVolume }, func(ctx context.Context, v any) error {
			p.SetReverbVolume(ctx, mustInt(v))
			return nil
		}), nil
	case "reverb_panning":
		return scalarResolved(func() any { return p.ReverbPanning }, func(ctx context.Context, v any) error {
			p.SetReverbPanning(ctx, mustInt(v))
			return nil
		}), nil
	case "coarse_tune":
		return scalarResolved(func() any { return p.CoarseTune }, func(ctx context.Context, v any) error {
			p.SetCoarseTune(ctx, mustInt(v))
			return nil
		}), nil
	case "fine_tune":
		return scalarResolved(func() any { return p.FineTune }, func(ctx context.Context, v any) error {
			p.SetFineTune(ctx, mustInt(v))
			return nil
		}), nil
	case "pitchbend_range":
		return scalarResolved(func() any { return p.PitchbendRange }, func(ctx context.Context, v any) error {
			p.SetPitchbendRange(ctx, mustInt(v))
			return nil
		}), nil
	case "gain":
		return scalarResolved(func() any { return p.SynthGain }, func(ctx context.Context, v any) error {
			p.SetSynthGain(ctx, mustInt(v))
			return nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown preset attribute %q", segs[0])
	}
}

func resolveIntoVoiceGroup(p *Preset, typ VoiceType, segs []string) (*Resolved, error) {
	voices := p.VoicesByType(typ)

	if typ == VoiceKeynoise {
		return resolveVoiceAttr(voices[0], segs)
	}

	if len(segs) == 0 {
		return nil, fmt.Errorf("missing voice index")
	}

	idx, err := strconv.Atoi(segs[0])
	if err != nil || idx < 0 || idx >= len(voices) {
		return nil, fmt.Errorf("invalid voice index %q", segs[0])
	}

	return resolveVoiceAttr(voices[idx], segs[1:])
}

func resolveVoiceAttr(v *Voice, segs []string) (*Resolved, error) {
	if len(segs) != 1 {
		return nil, fmt.Errorf("invalid voice path segment count")
	}

	switch segs[0] {
	case "muted":
		return scalarResolved(func() any { return v.Muted }, func(ctx context.Context, val any) error {
			v.SetMuted(ctx, mustBool(val))
			return nil
		}), nil
	case "volume":
		return scalarResolved(func() any { return v.Volume }, func(ctx context.Context, val any) error {
			v.SetVolume(ctx, mustInt(val))
			return nil
		}), nil
	case "panning":
		return scalarResolved(func() any { return v.Panning }, func(ctx context.Context, val any) error {
			v.SetPanning(ctx, mustInt(val))
			return nil
		}), nil
	case "base_note":
		return scalarResolved(func() any { return v.BaseNote }, func(ctx context.Context, val any) error {
			v.SetBaseNote(ctx, mustInt(val))
			return nil
		}), nil
	case "capo":
		return scalarResolved(func() any { return v.Capo }, func(ctx context.Context, val any) error {
			v.SetCapo(ctx, mustInt(val))
			return nil
		}), nil
	case "polyphonic":
		return scalarResolved(func() any { return v.Polyphonic }, func(ctx context.Context, val any) error {
			v.SetPolyphonic(ctx, mustBool(val))
			return nil
		}), nil
	case "mode":
		return scalarResolved(func() any { return v.Mode }, func(ctx context.Context, val any) error {
			v.SetMode(ctx, VoiceMode(fmt.Sprint(val)))
			return nil
		}), nil
	case "finetune":
		return scalarResolved(func() any { return v.Finetune }, func(ctx context.Context, val any) error {
			v.SetFinetune(ctx, mustInt(val))
			return nil
		}), nil
	case "chien_threshold":
		return scalarResolved(func() any { return v.ChienThreshold }, func(ctx context.Context, val any) error {
			v.SetChienThreshold(ctx, mustInt(val))
			return nil
		}), nil
	case "string":
		return &Resolved{Get: func() any { return v.String() }}, nil
	default:
		return nil, fmt.Errorf("unknown voice attribute %q", segs[0])
	}
}

func scalarResolved(get func() any, set func(ctx context.Context, v any) error) *Resolved {
	return &Resolved{Get: get, Set: set}
}

func mustInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func mustBool(v any) bool {
	b, _ := v.(bool)
	return b
}
