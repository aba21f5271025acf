package httpapi

import (
	"net/http"

	"github.com/midigurdy/core/internal/adapters"
)

const calibrationKey = "key_calibration"

// keyCalibrationDoc is one of the 24 per-key calibration entries
// (spec.md §6): {pressure ∈ [0,3000], velocity ∈ [-100,100]}.
type keyCalibrationDoc struct {
	Pressure int `json:"pressure" validate:"min=0,max=3000"`
	Velocity int `json:"velocity" validate:"min=-100,max=100"`
}

type keyCalibrationListDoc struct {
	Entries []keyCalibrationDoc `validate:"len=24,dive"`
}

func (s *Server) getCalibration(w http.ResponseWriter, r *http.Request) {
	var entries []keyCalibrationDoc
	if err := s.store.GetJSON(r.Context(), calibrationKey, &entries); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// putCalibration implements PUT /calibrate/keyboard: exactly 24 entries,
// persisted and pushed live to the engine.
func (s *Server) putCalibration(w http.ResponseWriter, r *http.Request) {
	var entries []keyCalibrationDoc
	if !s.decodeJSON(w, r, &entries) {
		return
	}

	if !s.validateStruct(w, &keyCalibrationListDoc{Entries: entries}) {
		return
	}

	if err := s.store.PutJSON(r.Context(), calibrationKey, entries); err != nil {
		s.writeError(w, err)
		return
	}

	if s.engine != nil {
		if err := s.engine.SetKeyCalibration(r.Context(), toAdapterCalibration(entries)); err != nil {
			s.writeError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteCalibration(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteKV(r.Context(), calibrationKey); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toAdapterCalibration(entries []keyCalibrationDoc) []adapters.KeyCalibration {
	out := make([]adapters.KeyCalibration, len(entries))
	for i, e := range entries {
		out[i] = adapters.KeyCalibration{Pressure: e.Pressure, Velocity: e.Velocity}
	}

	return out
}
