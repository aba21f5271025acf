package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestVoiceIsSilentEquivalence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		muted := rapid.Bool().Draw(rt, "muted")
		hasSound := rapid.Bool().Draw(rt, "hasSound")
		baseNote := rapid.IntRange(-1, 127).Draw(rt, "baseNote")

		v := NewVoice(Emitter{}, VoiceMelody, 1, 0)
		v.Muted = muted
		v.BaseNote = baseNote

		if hasSound {
			v.SoundFontID = "font.sf2"
		} else {
			v.SoundFontID = ""
		}

		expected := muted || !hasSound || baseNote < 0
		assert.Equal(t, expected, v.IsSilent())
	})
}

func TestEffectiveModePrecedence(t *testing.T) {
	v := NewVoice(Emitter{}, VoiceMelody, 1, 0)

	v.Mode = ModeGeneric
	assert.Equal(t, ModeGeneric, v.EffectiveMode(nil))

	v.Mode = ModeKeyboard
	assert.Equal(t, ModeKeyboard, v.EffectiveMode(nil))

	// A midigurdy-mode font always wins, regardless of v.Mode.
	assert.Equal(t, ModeMidigurdy, v.EffectiveMode(&SoundFontInfo{MidigurdyMode: true}))

	v.Mode = ModeGeneric
	assert.Equal(t, ModeMidigurdy, v.EffectiveMode(&SoundFontInfo{MidigurdyMode: true}))

	// A non-midigurdy font with v.Mode=generic stays generic.
	assert.Equal(t, ModeGeneric, v.EffectiveMode(&SoundFontInfo{MidigurdyMode: false}))
}

func TestSetSoundUpdatesModeAndBaseNote(t *testing.T) {
	ctx := context.Background()
	v := NewVoice(Emitter{}, VoiceMelody, 1, 0)
	v.Mode = ModeGeneric
	v.BaseNote = 60

	v.SetSound(ctx, SoundFontInfo{ID: "font.sf2", MidigurdyMode: true, NaturalBaseNote: 72}, 0, 5)

	assert.Equal(t, "font.sf2", v.SoundFontID)
	assert.Equal(t, 0, v.Bank)
	assert.Equal(t, 5, v.Program)
	assert.Equal(t, ModeMidigurdy, v.Mode)
	assert.Equal(t, 72, v.BaseNote)
}

func TestSetSoundLeavesBaseNoteWhenFontDeclaresNone(t *testing.T) {
	ctx := context.Background()
	v := NewVoice(Emitter{}, VoiceMelody, 1, 0)
	v.BaseNote = 64

	v.SetSound(ctx, SoundFontInfo{ID: "font.sf2", MidigurdyMode: false, NaturalBaseNote: -1}, 0, 0)

	assert.Equal(t, 64, v.BaseNote)
	assert.Equal(t, ModeGeneric, v.Mode)
}

func TestClearSoundResetsToDefaults(t *testing.T) {
	ctx := context.Background()
	v := NewVoice(Emitter{}, VoiceMelody, 1, 0)
	v.SoundFontID = "x.sf2"
	v.Bank = 3
	v.Program = 10
	v.BaseNote = 40
	v.Muted = false

	v.ClearSound(ctx)

	assert.Equal(t, "", v.SoundFontID)
	assert.Equal(t, 0, v.Bank)
	assert.Equal(t, 0, v.Program)
	assert.Equal(t, 60, v.BaseNote)
	assert.True(t, v.Muted)
	assert.True(t, v.IsSilent())
}

func TestEqualAssignmentElidesEvent(t *testing.T) {
	ctx := context.Background()
	v := NewVoice(Emitter{}, VoiceMelody, 1, 0)

	v.Volume = 100

	// Same value: SetField must not panic even with a nil bus, and
	// the field must remain unchanged (equality short-circuits
	// before any bus access).
	v.SetVolume(ctx, 100)
	assert.Equal(t, 100, v.Volume)
}
