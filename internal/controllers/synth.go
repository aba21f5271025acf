// Package controllers implements the reactive chain between the state
// tree and the black-box hardware collaborators of spec.md §4.9:
// SynthController, SystemController, and MIDIController. Each
// subscribes to the signal bus and is otherwise passive — they are the
// only parties permitted to call the synth, engine, or system adapters.
package controllers

import (
	"context"
	"math"

	"github.com/charmbracelet/log"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

// Voice-mode wire codes the realtime engine understands, per spec.md
// §3's mode enum.
const (
	engineModeMidigurdy = 0
	engineModeGeneric   = 1
	engineModeKeyboard  = 2
)

// SynthController pushes every voice-parameter change to the engine and
// performs the full reconfiguration sequence on active:preset:changed
// (spec.md §4.9).
type SynthController struct {
	tree   *state.Tree
	synth  adapters.Synth
	engine adapters.Engine
	log    *log.Logger

	token int
}

// NewSynthController wires a SynthController to tree's bus. Call Close
// to unregister.
func NewSynthController(tree *state.Tree, synth adapters.Synth, engine adapters.Engine, logger *log.Logger) *SynthController {
	c := &SynthController{tree: tree, synth: synth, engine: engine, log: logger}
	c.token = tree.Bus.RegisterAll(c.onEvent)

	return c
}

func (c *SynthController) Close() { c.tree.Bus.Unregister(c.token) }

func (c *SynthController) onEvent(ctx context.Context, name string, data signalbus.Payload) {
	switch name {
	case "active:preset:changed":
		c.reloadPreset(ctx)
		return
	case "active:preset:reverb_volume:changed", "active:preset:reverb_panning:changed":
		c.pushReverb(ctx)
		return
	}

	v, ok := data["sender"].(*state.Voice)
	if !ok {
		return
	}

	attr, _ := data["attr"].(string)
	c.pushVoiceParam(ctx, v, attr)
}

func (c *SynthController) pushVoiceParam(ctx context.Context, v *state.Voice, attr string) {
	switch attr {
	case "soundfont_id", "bank", "program":
		c.syncVoiceSound(ctx, v)
	case "muted":
		c.setParam(ctx, v, "muted", boolToInt(v.Muted))
	case "volume":
		c.setParam(ctx, v, "volume", v.Volume)
	case "panning":
		c.setParam(ctx, v, "panning", v.Panning)
	case "base_note":
		c.setParam(ctx, v, "base_note", v.BaseNote)
	case "capo":
		c.setParam(ctx, v, "capo", v.Capo)
	case "polyphonic":
		c.setParam(ctx, v, "polyphonic", boolToInt(v.Polyphonic))
	case "mode":
		c.setParam(ctx, v, "mode", modeToEngineCode(v.Mode))
	case "finetune":
		c.pushFinetune(ctx, v)
	case "chien_threshold":
		c.pushChienThreshold(ctx, v)
	}
}

func (c *SynthController) setParam(ctx context.Context, v *state.Voice, param string, value int) {
	if err := c.engine.SetStringParams(ctx, v.String(), param, value); err != nil {
		c.logDeviceErr(err, "set_string_params", v.String(), param)
	}
}

func (c *SynthController) syncVoiceSound(ctx context.Context, v *state.Voice) {
	var err error

	if v.SoundFontID != "" {
		err = c.synth.SetChannelSound(ctx, v.Channel, v.SoundFontID, v.Bank, v.Program)
	} else {
		err = c.synth.ClearChannelSound(ctx, v.Channel)
	}

	if err != nil {
		c.logDeviceErr(err, "set_channel_sound", v.String(), "")
	}
}

// ChienThresholdToEngine maps a user 0..100 chien threshold to the
// engine's wheel-acceleration transient detector value (spec.md §4.9):
// lower user value -> higher engine threshold (less sensitive).
func ChienThresholdToEngine(userValue int) int {
	return int(5000 - 5000*(float64(userValue)/100))
}

func (c *SynthController) pushChienThreshold(ctx context.Context, v *state.Voice) {
	if v.Type != state.VoiceTrompette {
		return
	}

	c.setParam(ctx, v, "chien_threshold", ChienThresholdToEngine(v.ChienThreshold))
}

// FinetuneRPN computes the synth RPN-00:01 CC sequence for a voice's
// combined fine-tune (spec.md §4.9): CC101=0, CC100=1, CC6=msb, CC38=lsb
// of round(2^14/200 * (voice.finetune + global.fine_tune + 100)),
// clamped to [0, 16383].
func FinetuneRPN(voiceFinetune, globalFineTune int) (msb, lsb int) {
	cents := float64(voiceFinetune + globalFineTune + 100)
	value := int(math.Round(16384.0 / 200.0 * cents))

	if value < 0 {
		value = 0
	}

	if value > 16383 {
		value = 16383
	}

	return value >> 7, value & 0x7f
}

// pushReverb pushes the preset's global reverb level and panning
// (spec.md §4.9), mirroring the original controller's
// set_reverb_volume/set_reverb_panning calls on reverb_volume:changed/
// reverb_panning:changed.
func (c *SynthController) pushReverb(ctx context.Context) {
	if err := c.synth.SetReverb(ctx, c.tree.Active.ReverbVolume, c.tree.Active.ReverbPanning); err != nil {
		c.logDeviceErr(err, "set_reverb", "", "")
	}
}

func (c *SynthController) pushFinetune(ctx context.Context, v *state.Voice) {
	msb, lsb := FinetuneRPN(v.Finetune, c.tree.Active.FineTune)
	c.sendRPN(ctx, v.Channel, 1, msb, lsb)
}

// sendRPN sends the standard 4-message RPN select+data-entry sequence:
// CC101 (RPN MSB) = 0, CC100 (RPN LSB) = rpnLSB, CC6 (data entry MSB),
// CC38 (data entry LSB).
func (c *SynthController) sendRPN(ctx context.Context, channel, rpnLSB, dataMSB, dataLSB int) {
	calls := [][2]int{{101, 0}, {100, rpnLSB}, {6, dataMSB}, {38, dataLSB}}

	for _, cc := range calls {
		if err := c.synth.SendControlChange(ctx, channel, cc[0], cc[1]); err != nil {
			c.logDeviceErr(err, "control_change", "", "")
			return
		}
	}
}

// reloadPreset implements spec.md §4.9's active:preset:changed full
// reconfiguration. engine.ResumeOutputs always runs, even if an earlier
// step failed (spec.md §7: "Controllers MUST call resume_outputs in a
// finally arm after halt_outputs, even when intermediate calls raised").
func (c *SynthController) reloadPreset(ctx context.Context) {
	if err := c.engine.HaltOutputs(ctx); err != nil {
		c.logDeviceErr(err, "halt_outputs", "", "")
	}

	defer func() {
		if err := c.engine.ResumeOutputs(ctx); err != nil {
			c.logDeviceErr(err, "resume_outputs", "", "")
		}
	}()

	inUse := make([]string, 0, 10)

	for _, v := range c.tree.Active.AllVoices() {
		if v.SoundFontID == "" {
			if err := c.synth.ClearChannelSound(ctx, v.Channel); err != nil {
				c.logDeviceErr(err, "clear_channel_sound", v.String(), "")
			}

			v.SetMuted(ctx, true)

			continue
		}

		inUse = append(inUse, v.SoundFontID)

		if err := c.synth.SetChannelSound(ctx, v.Channel, v.SoundFontID, v.Bank, v.Program); err != nil {
			c.logDeviceErr(err, "set_channel_sound", v.String(), "")
		}

		c.pushAllVoiceParams(ctx, v)
	}

	if err := c.synth.UnloadUnused(ctx, inUse); err != nil {
		c.logDeviceErr(err, "unload_unused", "", "")
	}

	for _, v := range c.tree.Active.AllVoices() {
		c.pushFinetune(ctx, v)
	}

	for _, v := range c.tree.Active.Trompette {
		c.pushChienThreshold(ctx, v)
	}

	for _, v := range c.tree.Active.AllVoices() {
		c.sendRPN(ctx, v.Channel, 0, c.tree.Active.PitchbendRange/100, c.tree.Active.PitchbendRange%100)
	}

	if err := c.synth.SetGain(ctx, SynthGainToFloat(c.tree.Active.SynthGain)); err != nil {
		c.logDeviceErr(err, "set_gain", "", "")
	}

	c.pushReverb(ctx)
}

func (c *SynthController) pushAllVoiceParams(ctx context.Context, v *state.Voice) {
	c.setParam(ctx, v, "muted", boolToInt(v.Muted))
	c.setParam(ctx, v, "volume", v.Volume)
	c.setParam(ctx, v, "panning", v.Panning)
	c.setParam(ctx, v, "base_note", v.BaseNote)
	c.setParam(ctx, v, "capo", v.Capo)
	c.setParam(ctx, v, "polyphonic", boolToInt(v.Polyphonic))
	c.setParam(ctx, v, "mode", modeToEngineCode(v.Mode))
}

// SynthGainToFloat maps user 0..127 to the synth's linear 0..3 gain
// (spec.md §4.9: "float_gain = user / (127/3)").
func SynthGainToFloat(userValue int) float64 {
	return float64(userValue) / (127.0 / 3.0)
}

func (c *SynthController) logDeviceErr(err error, op, voice, param string) {
	if c.log == nil {
		return
	}

	c.log.Warn("synth controller: device error", "op", op, "voice", voice, "param", param, "err", err)
}

func modeToEngineCode(m state.VoiceMode) int {
	switch m {
	case state.ModeMidigurdy:
		return engineModeMidigurdy
	case state.ModeKeyboard:
		return engineModeKeyboard
	default:
		return engineModeGeneric
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
