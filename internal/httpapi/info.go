package httpapi

import "net/http"

// infoResponse is the body of GET /info: server identity plus a cheap
// summary of the currently active preset, so a client can show "now
// playing" without a second round trip.
type infoResponse struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	ActivePresetID int64  `json:"active_preset_id"`
	ActiveNumber   int    `json:"active_preset_number"`
	ActiveName     string `json:"active_preset_name"`
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	resp := infoResponse{
		Name:    s.info.Name,
		Version: s.info.Version,
	}

	if s.tree != nil {
		resp.ActivePresetID = s.tree.Active.ID
		resp.ActiveNumber = s.tree.Active.Number
		resp.ActiveName = s.tree.Active.Name
	}

	writeJSON(w, http.StatusOK, resp)
}
