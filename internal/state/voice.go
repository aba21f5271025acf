package state

import (
	"context"
	"fmt"
)

// VoiceType identifies which of the instrument's string families a Voice
// belongs to (spec.md §3).
type VoiceType string

const (
	VoiceMelody    VoiceType = "melody"
	VoiceDrone     VoiceType = "drone"
	VoiceTrompette VoiceType = "trompette"
	VoiceKeynoise  VoiceType = "keynoise"
)

// VoiceMode selects how a voice's sound interprets incoming key/note
// events (spec.md §3).
type VoiceMode string

const (
	ModeMidigurdy VoiceMode = "midigurdy"
	ModeGeneric   VoiceMode = "generic"
	ModeKeyboard  VoiceMode = "keyboard"
)

// SoundFontInfo is the subset of a loaded SoundFont's declared metadata
// that voices need: whether it declares midigurdy mode, and the natural
// base note for its program, if any.
type SoundFontInfo struct {
	ID            string
	MidigurdyMode bool
	// NaturalBaseNote is the SoundFont's declared base note, or -1 if
	// it declares none.
	NaturalBaseNote int
}

// Voice is one playable string or keynoise source (spec.md §3). Fields
// are exported so Tree.Resolve's path resolver can address them by name;
// all mutation goes through the Set* methods so changes are observed.
type Voice struct {
	Emitter

	Type   VoiceType
	Number int // 1..3; keynoise is always 1

	Channel int // 0..9, assigned by type x number at construction

	SoundFontID    string // "" means no sound loaded
	Bank           int
	Program        int
	Muted          bool
	Volume         int // 0..127
	Panning        int // 0..127, 64 = center
	BaseNote       int // 0..127; < 0 means "silent" per is_silent()
	Capo           int // 0..23, melody only
	Polyphonic     bool
	Mode           VoiceMode
	Finetune       int // -100..+100 cents
	ChienThreshold int // 0..100, trompette only
}

// NewVoice constructs a Voice wired to bus under the given prefix, with
// the spec's cleared-sound defaults already applied.
func NewVoice(emitter Emitter, typ VoiceType, number, channel int) *Voice {
	return &Voice{
		Emitter:  emitter,
		Type:     typ,
		Number:   number,
		Channel:  channel,
		BaseNote: 60,
		Muted:    true,
		Mode:     ModeGeneric,
		Volume:   127,
		Panning:  64,
	}
}

// String returns the voice's canonical "<type><number>" name, e.g.
// "melody1". Read-only computed property.
func (v *Voice) String() string {
	return fmt.Sprintf("%s%d", v.Type, v.Number)
}

// IsSilent implements spec.md §3's silence invariant:
// is_silent() = muted ∨ soundfont_id = ∅ ∨ base_note < 0.
func (v *Voice) IsSilent() bool {
	return v.Muted || v.SoundFontID == "" || v.BaseNote < 0
}

// EffectiveMode implements spec.md §3's mode-precedence invariant: a
// midigurdy-mode font always wins; otherwise an explicit keyboard mode
// is honoured; otherwise generic.
func (v *Voice) EffectiveMode(font *SoundFontInfo) VoiceMode {
	if font != nil && font.MidigurdyMode {
		return ModeMidigurdy
	}

	if v.Mode == ModeKeyboard {
		return ModeKeyboard
	}

	return ModeGeneric
}

// SetSound implements spec.md §3: "Setting a sound resets mode to
// midigurdy iff the new SoundFont is midigurdy-mode; if the sound
// declares a natural base_note >= 0, base_note is updated." soundFontID,
// bank and program are plain field assignments (via SetField) in
// addition to the derived mode/base_note side effects, all under a
// single sender/ctx so observers of any of them see the whole change.
func (v *Voice) SetSound(ctx context.Context, font SoundFontInfo, bank, program int) {
	SetField(v.Emitter, ctx, "soundfont_id", &v.SoundFontID, font.ID, v)
	SetField(v.Emitter, ctx, "bank", &v.Bank, bank, v)
	SetField(v.Emitter, ctx, "program", &v.Program, program, v)

	if font.MidigurdyMode {
		SetField(v.Emitter, ctx, "mode", &v.Mode, ModeMidigurdy, v)
	}

	if font.NaturalBaseNote >= 0 {
		SetField(v.Emitter, ctx, "base_note", &v.BaseNote, font.NaturalBaseNote, v)
	}
}

// ClearSound implements spec.md §3: "Clearing a sound sets
// soundfont_id=∅, bank=0, program=0, base_note=60, muted=true."
func (v *Voice) ClearSound(ctx context.Context) {
	SetField(v.Emitter, ctx, "soundfont_id", &v.SoundFontID, "", v)
	SetField(v.Emitter, ctx, "bank", &v.Bank, 0, v)
	SetField(v.Emitter, ctx, "program", &v.Program, 0, v)
	SetField(v.Emitter, ctx, "base_note", &v.BaseNote, 60, v)
	SetField(v.Emitter, ctx, "muted", &v.Muted, true, v)
}

func (v *Voice) SetMuted(ctx context.Context, muted bool) {
	SetField(v.Emitter, ctx, "muted", &v.Muted, muted, v)
}

func (v *Voice) SetVolume(ctx context.Context, volume int) {
	SetField(v.Emitter, ctx, "volume", &v.Volume, clamp(volume, 0, 127), v)
}

func (v *Voice) SetPanning(ctx context.Context, panning int) {
	SetField(v.Emitter, ctx, "panning", &v.Panning, clamp(panning, 0, 127), v)
}

func (v *Voice) SetBaseNote(ctx context.Context, note int) {
	SetField(v.Emitter, ctx, "base_note", &v.BaseNote, note, v)
}

func (v *Voice) SetCapo(ctx context.Context, capo int) {
	SetField(v.Emitter, ctx, "capo", &v.Capo, clamp(capo, 0, 23), v)
}

func (v *Voice) SetPolyphonic(ctx context.Context, poly bool) {
	SetField(v.Emitter, ctx, "polyphonic", &v.Polyphonic, poly, v)
}

func (v *Voice) SetMode(ctx context.Context, mode VoiceMode) {
	SetField(v.Emitter, ctx, "mode", &v.Mode, mode, v)
}

func (v *Voice) SetFinetune(ctx context.Context, cents int) {
	SetField(v.Emitter, ctx, "finetune", &v.Finetune, clamp(cents, -100, 100), v)
}

func (v *Voice) SetChienThreshold(ctx context.Context, threshold int) {
	SetField(v.Emitter, ctx, "chien_threshold", &v.ChienThreshold, clamp(threshold, 0, 100), v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
