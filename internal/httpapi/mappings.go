package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/errs"
)

// rangeDoc is one entry of a mapping range list (spec.md §6):
// {src, dst}.
type rangeDoc struct {
	Src int `json:"src"`
	Dst int `json:"dst"`
}

func (s *Server) getMapping(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var ranges []rangeDoc
	if err := s.store.GetJSON(r.Context(), mappingKey(name), &ranges); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ranges)
}

// putMapping implements PUT /mappings/{name} (spec.md §6): a range list
// of length 1..20 with strictly increasing src values, persisted and
// pushed live to the engine.
func (s *Server) putMapping(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var ranges []rangeDoc
	if !s.decodeJSON(w, r, &ranges) {
		return
	}

	if err := validateMappingRanges(ranges); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.PutJSON(r.Context(), mappingKey(name), ranges); err != nil {
		s.writeError(w, err)
		return
	}

	if s.engine != nil {
		if err := s.engine.SetMappingRanges(r.Context(), name, toAdapterRanges(ranges)); err != nil {
			s.writeError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteMapping(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.store.DeleteKV(r.Context(), mappingKey(name)); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func mappingKey(name string) string { return "mapping:" + name }

func validateMappingRanges(ranges []rangeDoc) error {
	if len(ranges) < 1 || len(ranges) > 20 {
		return &errs.ValidationError{Fields: map[string]string{"ranges": "length must be 1..20"}}
	}

	for i := 1; i < len(ranges); i++ {
		if ranges[i].Src <= ranges[i-1].Src {
			return &errs.ValidationError{Fields: map[string]string{"ranges": "src must be strictly increasing"}}
		}
	}

	return nil
}

func toAdapterRanges(ranges []rangeDoc) []adapters.Range {
	out := make([]adapters.Range, len(ranges))
	for i, rg := range ranges {
		out[i] = adapters.Range{Src: rg.Src, Dst: rg.Dst}
	}

	return out
}
