// Package presets decodes the JSON preset blob of spec.md §6 and
// applies it to the active state tree, implementing spec.md §8's S1
// scenario: hold the state lock, suppress signals during bulk
// population, then emit a single active:preset:changed summary event.
package presets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/midigurdy/core/internal/errs"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
	"github.com/midigurdy/core/internal/store"
)

// VoiceDoc is one voice entry of a preset JSON blob. Validation tags
// mirror the field ranges of spec.md §3 and back the HTTP layer's
// go-playground/validator pass before a PresetDoc reaches the state
// tree.
type VoiceDoc struct {
	SoundFont  string `json:"soundfont"`
	Bank       int    `json:"bank" validate:"min=0,max=128"`
	Program    int    `json:"program" validate:"min=0,max=127"`
	Note       int    `json:"note" validate:"min=0,max=127"`
	Muted      bool   `json:"muted"`
	Volume     int    `json:"volume" validate:"min=0,max=127"`
	Panning    int    `json:"panning" validate:"min=0,max=127"`
	Capo       int    `json:"capo" validate:"min=0,max=23"`
	Polyphonic bool   `json:"polyphonic"`
	Mode       string `json:"mode" validate:"omitempty,oneof=midigurdy generic keyboard"`
	Finetune   int    `json:"finetune" validate:"min=-100,max=100"`

	// ChienThreshold is only meaningful for trompette voices.
	ChienThreshold int `json:"chien_threshold" validate:"min=0,max=100"`
}

// PresetDoc is the JSON shape of a persisted preset blob (spec.md §6):
// {name, main{volume,gain,pitchbend_range}, tuning{coarse,fine},
// voices{melody[],drone[],trompette[]}, keynoise{}, reverb{volume,panning}}.
type PresetDoc struct {
	Name string `json:"name"`

	Main struct {
		Volume         int `json:"volume" validate:"min=0,max=127"`
		Gain           int `json:"gain" validate:"min=0,max=127"`
		PitchbendRange int `json:"pitchbend_range" validate:"min=0,max=200"`
	} `json:"main"`

	Tuning struct {
		Coarse int `json:"coarse" validate:"min=-63,max=64"`
		Fine   int `json:"fine" validate:"min=-100,max=100"`
	} `json:"tuning"`

	Voices struct {
		Melody    []VoiceDoc `json:"melody" validate:"max=3,dive"`
		Drone     []VoiceDoc `json:"drone" validate:"max=3,dive"`
		Trompette []VoiceDoc `json:"trompette" validate:"max=3,dive"`
	} `json:"voices"`

	Keynoise VoiceDoc `json:"keynoise"`

	Reverb struct {
		Volume  int `json:"volume" validate:"min=0,max=127"`
		Panning int `json:"panning" validate:"min=0,max=127"`
	} `json:"reverb"`

	// Chien is the legacy top-level chien_threshold carried by preset
	// blobs saved before the per-voice trompette field became
	// authoritative (spec.md §9). Absent on current blobs; present
	// only so migrateLegacyChienThreshold can fan it out on load.
	Chien *struct {
		ChienThreshold int `json:"chien_threshold" validate:"min=0,max=100"`
	} `json:"chien,omitempty"`
}

// migrateLegacyChienThreshold copies an old preset blob's top-level
// chien.chien_threshold down into every trompette voice (spec.md §9,
// state.py's from_preset_dict): the per-voice field is authoritative
// going forward, but a legacy blob only ever carried the value once,
// globally.
func migrateLegacyChienThreshold(doc *PresetDoc) {
	if doc.Chien == nil {
		return
	}

	for i := range doc.Voices.Trompette {
		doc.Voices.Trompette[i].ChienThreshold = doc.Chien.ChienThreshold
	}
}

// applyHistoricalDefaults fills fields absent from the raw blob with the
// non-zero defaults state.py's from_dict/from_preset_dict apply for a
// full (non-partial) load, so an old preset saved before a field
// existed decodes to that field's historical default instead of Go's
// zero value. blob is re-decoded into raw message maps purely to tell
// "absent" apart from "explicitly zero".
func applyHistoricalDefaults(doc *PresetDoc, blob []byte) {
	var raw struct {
		Main   map[string]json.RawMessage `json:"main"`
		Reverb map[string]json.RawMessage `json:"reverb"`
		Voices struct {
			Melody    []map[string]json.RawMessage `json:"melody"`
			Drone     []map[string]json.RawMessage `json:"drone"`
			Trompette []map[string]json.RawMessage `json:"trompette"`
		} `json:"voices"`
		Keynoise map[string]json.RawMessage `json:"keynoise"`
	}

	if err := json.Unmarshal(blob, &raw); err != nil {
		return
	}

	if _, ok := raw.Main["volume"]; !ok {
		doc.Main.Volume = 120
	}
	if _, ok := raw.Main["gain"]; !ok {
		doc.Main.Gain = 50
	}
	if _, ok := raw.Main["pitchbend_range"]; !ok {
		doc.Main.PitchbendRange = 100
	}

	if _, ok := raw.Reverb["volume"]; !ok {
		doc.Reverb.Volume = 25
	}
	if _, ok := raw.Reverb["panning"]; !ok {
		doc.Reverb.Panning = 64
	}

	defaultVoices(raw.Voices.Melody, doc.Voices.Melody)
	defaultVoices(raw.Voices.Drone, doc.Voices.Drone)
	defaultVoices(raw.Voices.Trompette, doc.Voices.Trompette)

	if raw.Keynoise != nil {
		defaultVoice(raw.Keynoise, &doc.Keynoise)
	}
}

func defaultVoices(raw []map[string]json.RawMessage, docs []VoiceDoc) {
	for i := range docs {
		if i < len(raw) {
			defaultVoice(raw[i], &docs[i])
		}
	}
}

// defaultVoice applies from_dict's non-zero per-voice defaults for any
// key absent from raw.
func defaultVoice(raw map[string]json.RawMessage, v *VoiceDoc) {
	if _, ok := raw["volume"]; !ok {
		v.Volume = 100
	}
	if _, ok := raw["panning"]; !ok {
		v.Panning = 64
	}
	if _, ok := raw["note"]; !ok {
		v.Note = 60
	}
	if _, ok := raw["mode"]; !ok {
		v.Mode = "midigurdy"
	}
	if _, ok := raw["chien_threshold"]; !ok {
		v.ChienThreshold = 50
	}
	if _, ok := raw["muted"]; !ok {
		v.Muted = true
	}
}

// SoundFontResolver looks up a named SoundFont's declared metadata, for
// the mode/base_note derivation Voice.SetSound performs. Preset JSON
// only carries a soundfont name, never the font's own declared
// properties, so the loader needs this collaborator to resolve one into
// the other before calling SetSound.
type SoundFontResolver func(name string) state.SoundFontInfo

// Loader decodes stored preset blobs and applies them to a Tree.
type Loader struct {
	store    *store.Store
	resolver SoundFontResolver
}

// NewLoader constructs a Loader backed by s. resolver may be nil, in
// which case every voice is treated as declaring no SoundFont metadata
// (plain, non-midigurdy-mode, no natural base note).
func NewLoader(s *store.Store, resolver SoundFontResolver) *Loader {
	if resolver == nil {
		resolver = func(name string) state.SoundFontInfo { return state.SoundFontInfo{ID: name, NaturalBaseNote: -1} }
	}

	return &Loader{store: s, resolver: resolver}
}

// Load fetches preset row id, decodes its blob, and applies it to tree
// under the state lock with signal suppression, emitting a single
// active:preset:changed once population is complete (spec.md §8 S1).
func (l *Loader) Load(ctx context.Context, tree *state.Tree, id int64) error {
	row, err := l.store.LoadPreset(ctx, id)
	if err != nil {
		return &errs.PersistenceError{Op: "load_preset", Err: err}
	}

	var doc PresetDoc
	if err := json.Unmarshal(row.Blob, &doc); err != nil {
		return fmt.Errorf("decode preset %d: %w", id, err)
	}

	applyHistoricalDefaults(&doc, row.Blob)

	tree.Lock.With(ctx, "loading preset", func(locked context.Context) {
		suppressed, _ := signalbus.Suppress(locked)
		l.apply(suppressed, tree, doc)
		tree.Active.ID = row.ID
		tree.Active.Number = row.Number
		tree.Active.Name = doc.Name
		tree.LastPresetNumber = row.Number
		tree.Bus.Emit(locked, "active:preset:changed", signalbus.Payload{"id": row.ID, "number": row.Number})
	})

	return nil
}

// ApplyLive applies doc straight to the active tree without touching
// the preset store, for GET/POST /instrument (SPEC_FULL.md §6): editing
// the live configuration in place rather than loading a saved preset.
// ID, Number and Name are left untouched since doc carries no row to
// attribute them to.
func (l *Loader) ApplyLive(ctx context.Context, tree *state.Tree, doc PresetDoc) {
	tree.Lock.With(ctx, "editing instrument", func(locked context.Context) {
		suppressed, _ := signalbus.Suppress(locked)
		l.apply(suppressed, tree, doc)
		tree.Bus.Emit(locked, "active:preset:changed", signalbus.Payload{"id": tree.Active.ID, "number": tree.Active.Number})
	})
}

func (l *Loader) apply(ctx context.Context, tree *state.Tree, doc PresetDoc) {
	migrateLegacyChienThreshold(&doc)

	p := tree.Active

	p.SetMainVolume(ctx, doc.Main.Volume)
	p.SetSynthGain(ctx, doc.Main.Gain)
	p.SetPitchbendRange(ctx, doc.Main.PitchbendRange)
	p.SetCoarseTune(ctx, doc.Tuning.Coarse)
	p.SetFineTune(ctx, doc.Tuning.Fine)
	p.SetReverbVolume(ctx, doc.Reverb.Volume)
	p.SetReverbPanning(ctx, doc.Reverb.Panning)

	l.applyVoices(ctx, p.Melody[:], doc.Voices.Melody)
	l.applyVoices(ctx, p.Drone[:], doc.Voices.Drone)
	l.applyVoices(ctx, p.Trompette[:], doc.Voices.Trompette)
	l.applyVoice(ctx, p.Keynoise, doc.Keynoise)
}

func (l *Loader) applyVoices(ctx context.Context, voices []*state.Voice, docs []VoiceDoc) {
	for i, v := range voices {
		if i >= len(docs) {
			v.ClearSound(ctx)
			continue
		}

		l.applyVoice(ctx, v, docs[i])
	}
}

func (l *Loader) applyVoice(ctx context.Context, v *state.Voice, doc VoiceDoc) {
	if doc.SoundFont == "" {
		v.ClearSound(ctx)
		return
	}

	v.SetSound(ctx, l.resolver(doc.SoundFont), doc.Bank, doc.Program)
	v.SetBaseNote(ctx, doc.Note)
	v.SetMuted(ctx, doc.Muted)
	v.SetVolume(ctx, doc.Volume)
	v.SetPanning(ctx, doc.Panning)
	v.SetCapo(ctx, doc.Capo)
	v.SetPolyphonic(ctx, doc.Polyphonic)

	if doc.Mode != "" {
		v.SetMode(ctx, state.VoiceMode(doc.Mode))
	}

	v.SetFinetune(ctx, doc.Finetune)

	if v.Type == state.VoiceTrompette {
		v.SetChienThreshold(ctx, doc.ChienThreshold)
	}
}
