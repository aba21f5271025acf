package state

import (
	"context"
	"strconv"

	"github.com/midigurdy/core/internal/signalbus"
)

// Preset aggregates the 10 voices and the global scalars that make up
// the instrument's active sound configuration (spec.md §3).
type Preset struct {
	Emitter

	Melody    [3]*Voice
	Drone     [3]*Voice
	Trompette [3]*Voice
	Keynoise  *Voice

	MainVolume       int // 0..127
	ReverbVolume     int // 0..127
	ReverbPanning    int // 0..127
	CoarseTune       int // -63..+64
	FineTune         int // -100..+100 cents
	PitchbendRange   int // 0..200 cents
	SynthGain        int // 0..127

	KeyOn         int // 0..50, keyboard debounce
	KeyOff        int // 0..50
	BaseNoteDelay int // 0..50

	// ID and Number mirror the persisted row this preset was loaded
	// from, if any; Number is 0 (unsaved) until the preset has been
	// saved once.
	ID     int64
	Number int
	Name   string
}

// Channel start offsets, per spec.md §3 / the original implementation:
// melody 0-2, drone 3-5, trompette 6-8, keynoise 9.
const (
	melodyChannelStart    = 0
	droneChannelStart     = 3
	trompetteChannelStart = 6
	keynoiseChannel       = 9
)

// NewPreset builds a Preset with all 10 voices constructed and wired to
// bus under prefix.
func NewPreset(bus *signalbus.Bus, prefix string) *Preset {
	emitter := NewEmitter(bus, prefix)
	p := &Preset{
		Emitter:       emitter,
		MainVolume:    127,
		ReverbVolume:  0,
		ReverbPanning: 64,
		PitchbendRange: 200,
		SynthGain:     64,
	}

	for i := range p.Melody {
		v := NewVoice(emitter.Child("voice").Child("melody").Child(strconv.Itoa(i)), VoiceMelody, i+1, melodyChannelStart+i)
		p.Melody[i] = v
	}

	for i := range p.Drone {
		v := NewVoice(emitter.Child("voice").Child("drone").Child(strconv.Itoa(i)), VoiceDrone, i+1, droneChannelStart+i)
		p.Drone[i] = v
	}

	for i := range p.Trompette {
		v := NewVoice(emitter.Child("voice").Child("trompette").Child(strconv.Itoa(i)), VoiceTrompette, i+1, trompetteChannelStart+i)
		p.Trompette[i] = v
	}

	p.Keynoise = NewVoice(emitter.Child("voice").Child("keynoise").Child("0"), VoiceKeynoise, 1, keynoiseChannel)

	return p
}

// AllVoices returns all 10 voices in the order melody, drone, trompette,
// keynoise — the order spec.md's aggregation lists them in.
func (p *Preset) AllVoices() []*Voice {
	voices := make([]*Voice, 0, 10)
	voices = append(voices, p.Melody[:]...)
	voices = append(voices, p.Drone[:]...)
	voices = append(voices, p.Trompette[:]...)
	voices = append(voices, p.Keynoise)

	return voices
}

// VoicesByType returns the three (or one, for keynoise) voices of the
// given type.
func (p *Preset) VoicesByType(t VoiceType) []*Voice {
	switch t {
	case VoiceMelody:
		return p.Melody[:]
	case VoiceDrone:
		return p.Drone[:]
	case VoiceTrompette:
		return p.Trompette[:]
	case VoiceKeynoise:
		return []*Voice{p.Keynoise}
	default:
		return nil
	}
}

// ChienThresholds returns the three trompette voices' chien thresholds,
// per spec.md §9: chien_threshold is authoritative per-voice.
func (p *Preset) ChienThresholds() [3]int {
	return [3]int{p.Trompette[0].ChienThreshold, p.Trompette[1].ChienThreshold, p.Trompette[2].ChienThreshold}
}

// SetChienThresholdsUniform sets all three trompette voices' chien
// threshold to the same value, used when multi_chien_threshold is
// false (spec.md §4.9).
func (p *Preset) SetChienThresholdsUniform(ctx context.Context, threshold int) {
	for _, v := range p.Trompette {
		v.SetChienThreshold(ctx, threshold)
	}
}

func (p *Preset) SetMainVolume(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "main_volume", &p.MainVolume, clamp(v, 0, 127), p)
}

func (p *Preset) SetReverbVolume(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "reverb_volume", &p.ReverbVolume, clamp(v, 0, 127), p)
}

func (p *Preset) SetReverbPanning(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "reverb_panning", &p.ReverbPanning, clamp(v, 0, 127), p)
}

func (p *Preset) SetCoarseTune(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "coarse_tune", &p.CoarseTune, clamp(v, -63, 64), p)
}

func (p *Preset) SetFineTune(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "fine_tune", &p.FineTune, clamp(v, -100, 100), p)
}

func (p *Preset) SetPitchbendRange(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "pitchbend_range", &p.PitchbendRange, clamp(v, 0, 200), p)
}

func (p *Preset) SetSynthGain(ctx context.Context, v int) {
	SetField(p.Emitter, ctx, "gain", &p.SynthGain, clamp(v, 0, 127), p)
}

