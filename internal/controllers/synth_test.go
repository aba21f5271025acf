package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

func newTestTree() (*state.Tree, *signalbus.Bus) {
	bus := signalbus.New(nil)
	return state.NewTree(bus), bus
}

func lastSynthCall(f *adapters.FakeSynth) adapters.SynthCall {
	return f.Calls[len(f.Calls)-1]
}

func lastEngineCall(f *adapters.FakeEngine) adapters.EngineCall {
	return f.Calls[len(f.Calls)-1]
}

// S1: loading a preset halts outputs, pushes every voice's sound and
// params, pushes tuning/chien/gain, and resumes outputs.
func TestSynthControllerReloadsOnPresetChanged(t *testing.T) {
	tree, bus := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	ctx := context.Background()
	tree.Active.Melody[0].SetSound(ctx, state.SoundFontInfo{ID: "sf1"}, 0, 0)
	tree.Active.Melody[0].SetMuted(ctx, false)

	bus.Emit(ctx, "active:preset:changed", nil)

	assert.False(t, engine.Halted, "must resume outputs even after a successful reload")
	require.NotEmpty(t, engine.Calls)
	assert.Equal(t, "halt_outputs", engine.Calls[0].Method)
	assert.Equal(t, "resume_outputs", engine.Calls[len(engine.Calls)-1].Method)

	foundSound := false

	for _, c := range synth.Calls {
		if c.Method == "set_channel_sound" && c.Arg == "sf1" {
			foundSound = true
		}
	}

	assert.True(t, foundSound, "expected melody0's sound to be pushed to the synth")
}

// failingGainSynth is a FakeSynth whose SetGain always fails.
type failingGainSynth struct{ *adapters.FakeSynth }

func (failingGainSynth) SetGain(ctx context.Context, gain float64) error {
	return errors.New("set_gain failed")
}

// S1 (error path): resume_outputs must still run when an intermediate
// call fails.
func TestSynthControllerResumesEvenWhenSetGainFails(t *testing.T) {
	tree, bus := newTestTree()
	synth := failingGainSynth{&adapters.FakeSynth{}}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	bus.Emit(context.Background(), "active:preset:changed", nil)

	assert.False(t, engine.Halted)
}

// S6: chien_threshold push uses the engine mapping, and only applies to
// trompette voices.
func TestChienThresholdMapping(t *testing.T) {
	assert.Equal(t, 5000, ChienThresholdToEngine(0))
	assert.Equal(t, 0, ChienThresholdToEngine(100))
	assert.Equal(t, 2500, ChienThresholdToEngine(50))
}

func TestSynthControllerPushesChienThresholdForTrompetteOnly(t *testing.T) {
	tree, _ := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	ctx := context.Background()
	tree.Active.Trompette[0].SetChienThreshold(ctx, 20)

	last := lastEngineCall(engine)
	assert.Equal(t, "set_string_params", last.Method)
	assert.Equal(t, "trompette1", last.Voice)
	assert.Equal(t, "chien_threshold", last.Param)
	assert.Equal(t, ChienThresholdToEngine(20), last.Value)

	before := len(engine.Calls)
	tree.Active.Melody[0].SetBaseNote(ctx, 72)
	assert.Greater(t, len(engine.Calls), before)
	assert.Equal(t, "base_note", lastEngineCall(engine).Param)
}

// multi_chien_threshold fan-out at the Tree layer combined with the
// controller push: setting one voice with multi=false should push all
// three voices' engine params (Tree fans the mutation out first).
func TestSynthControllerReactsToFannedOutChienThresholds(t *testing.T) {
	tree, _ := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	tree.UI.MultiChienThreshold = false

	err := tree.SetByPath(context.Background(), "preset.trompette.1.chien_threshold", 30)
	require.NoError(t, err)

	pushed := map[string]bool{}

	for _, c := range engine.Calls {
		if c.Param == "chien_threshold" {
			pushed[c.Voice] = true
		}
	}

	assert.True(t, pushed["trompette1"])
	assert.True(t, pushed["trompette2"])
	assert.True(t, pushed["trompette3"])
}

// Fine-tune RPN sequence.
func TestFinetuneRPNSequence(t *testing.T) {
	msb, lsb := FinetuneRPN(0, 0)
	value := msb<<7 | lsb
	assert.Equal(t, 8192, value, "neutral finetune should center at 8192")

	msb, lsb = FinetuneRPN(-100, -100)
	assert.Equal(t, 0, msb<<7|lsb)

	msb, lsb = FinetuneRPN(100, 100)
	assert.Equal(t, 16383, msb<<7|lsb)
}

func TestSynthControllerPushesFinetuneRPNOnChange(t *testing.T) {
	tree, _ := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	ctx := context.Background()
	tree.Active.Melody[0].SetFinetune(ctx, 50)

	require.GreaterOrEqual(t, len(synth.Calls), 4)

	tail := synth.Calls[len(synth.Calls)-4:]
	assert.Equal(t, 101, tail[0].CC)
	assert.Equal(t, 0, tail[0].Value)
	assert.Equal(t, 100, tail[1].CC)
	assert.Equal(t, 1, tail[1].Value)
	assert.Equal(t, 6, tail[2].CC)
	assert.Equal(t, 38, tail[3].CC)

	_ = lastSynthCall(synth)
}

// reloadPreset must push the preset's reverb level/panning, and a live
// edit to either must push it again.
func TestSynthControllerPushesReverb(t *testing.T) {
	tree, bus := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	ctx := context.Background()
	bus.Emit(ctx, "active:preset:changed", nil)

	last := lastSynthCall(synth)
	assert.Equal(t, "set_reverb", last.Method)
	assert.Equal(t, tree.Active.ReverbVolume, last.ReverbVolume)
	assert.Equal(t, tree.Active.ReverbPanning, last.ReverbPanning)

	tree.Active.SetReverbVolume(ctx, 10)
	last = lastSynthCall(synth)
	assert.Equal(t, "set_reverb", last.Method)
	assert.Equal(t, 10, last.ReverbVolume)

	tree.Active.SetReverbPanning(ctx, 20)
	last = lastSynthCall(synth)
	assert.Equal(t, "set_reverb", last.Method)
	assert.Equal(t, 20, last.ReverbPanning)
}

func TestSynthGainMapping(t *testing.T) {
	assert.InDelta(t, 0, SynthGainToFloat(0), 0.0001)
	assert.InDelta(t, 3, SynthGainToFloat(127), 0.01)
}

func TestSynthControllerIgnoresUnrelatedEvents(t *testing.T) {
	tree, bus := newTestTree()
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	NewSynthController(tree, synth, engine, nil)

	bus.Emit(context.Background(), "some:other:event", signalbus.Payload{"sender": "not a voice"})

	assert.Empty(t, synth.Calls)
	assert.Empty(t, engine.Calls)
}
