package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/midigurdy/core/internal/errs"
	"github.com/midigurdy/core/internal/presets"
	"github.com/midigurdy/core/internal/store"
)

// presetSummary is the {id,number,name} shape GET /presets lists, per
// spec.md §6.
type presetSummary struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.SelectAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]presetSummary, len(rows))
	for i, row := range rows {
		out[i] = presetSummary{ID: row.ID, Number: row.Number, Name: row.Name}
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPreset(w http.ResponseWriter, r *http.Request) {
	var doc presets.PresetDoc
	if !s.decodeJSON(w, r, &doc) {
		return
	}

	if !s.validateStruct(w, &doc) {
		return
	}

	blob, err := json.Marshal(doc)
	if err != nil {
		s.writeError(w, err)
		return
	}

	row := &store.PresetRow{Name: doc.Name, Blob: blob}
	if err := s.store.Save(r.Context(), row); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, presetSummary{ID: row.ID, Number: row.Number, Name: row.Name})
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.presetID(w, r)
	if !ok {
		return
	}

	row, err := s.store.LoadPreset(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var doc presets.PresetDoc
	if err := json.Unmarshal(row.Blob, &doc); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) putPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.presetID(w, r)
	if !ok {
		return
	}

	var doc presets.PresetDoc
	if !s.decodeJSON(w, r, &doc) {
		return
	}

	if !s.validateStruct(w, &doc) {
		return
	}

	blob, err := json.Marshal(doc)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.SavePresetBlob(r.Context(), id, blob); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.presetID(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadPreset implements S1 (spec.md §8): load the preset into the
// active tree under the state lock with suppression, then a single
// active:preset:changed emission.
func (s *Server) loadPreset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.presetID(w, r)
	if !ok {
		return
	}

	if err := s.loader.Load(r.Context(), s.tree, id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// reorderPresets implements S2 (spec.md §8): a JSON array of preset ids
// in the desired order.
func (s *Server) reorderPresets(w http.ResponseWriter, r *http.Request) {
	var order []int64
	if !s.decodeJSON(w, r, &order) {
		return
	}

	if len(order) == 0 {
		writeValidationError(w, map[string]string{"body": "required"})
		return
	}

	if err := s.store.Reorder(r.Context(), order); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) presetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, &errs.NotFoundError{Kind: "preset", ID: raw})
		return 0, false
	}

	return id, true
}
