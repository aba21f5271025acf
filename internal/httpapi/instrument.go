package httpapi

import (
	"net/http"

	"github.com/midigurdy/core/internal/presets"
	"github.com/midigurdy/core/internal/state"
)

// getInstrument implements GET /instrument (SPEC_FULL.md §6): a snapshot
// of the live active preset, in the same PresetDoc shape a stored
// preset blob uses.
func (s *Server) getInstrument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presetDocFromActive(s.tree.Active))
}

// postInstrument implements POST /instrument: apply doc to the live
// active preset in place, without touching the preset store (see
// internal/presets.Loader.ApplyLive).
func (s *Server) postInstrument(w http.ResponseWriter, r *http.Request) {
	var doc presets.PresetDoc
	if !s.decodeJSON(w, r, &doc) {
		return
	}

	if !s.validateStruct(w, &doc) {
		return
	}

	s.loader.ApplyLive(r.Context(), s.tree, doc)

	w.WriteHeader(http.StatusNoContent)
}

func presetDocFromActive(p *state.Preset) presets.PresetDoc {
	var doc presets.PresetDoc

	doc.Name = p.Name
	doc.Main.Volume = p.MainVolume
	doc.Main.Gain = p.SynthGain
	doc.Main.PitchbendRange = p.PitchbendRange
	doc.Tuning.Coarse = p.CoarseTune
	doc.Tuning.Fine = p.FineTune
	doc.Reverb.Volume = p.ReverbVolume
	doc.Reverb.Panning = p.ReverbPanning

	for _, v := range p.Melody {
		doc.Voices.Melody = append(doc.Voices.Melody, voiceDocFromState(v))
	}

	for _, v := range p.Drone {
		doc.Voices.Drone = append(doc.Voices.Drone, voiceDocFromState(v))
	}

	for _, v := range p.Trompette {
		doc.Voices.Trompette = append(doc.Voices.Trompette, voiceDocFromState(v))
	}

	doc.Keynoise = voiceDocFromState(p.Keynoise)

	return doc
}

func voiceDocFromState(v *state.Voice) presets.VoiceDoc {
	return presets.VoiceDoc{
		SoundFont:      v.SoundFontID,
		Bank:           v.Bank,
		Program:        v.Program,
		Note:           v.BaseNote,
		Muted:          v.Muted,
		Volume:         v.Volume,
		Panning:        v.Panning,
		Capo:           v.Capo,
		Polyphonic:     v.Polyphonic,
		Mode:           string(v.Mode),
		Finetune:       v.Finetune,
		ChienThreshold: v.ChienThreshold,
	}
}
