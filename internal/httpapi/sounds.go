package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/midigurdy/core/internal/store"
)

// sfbkMagic is the RIFF chunk id every SoundFont 2 file starts with;
// looksLikeSoundFont also requires the "sfbk" form type at bytes 8..12.
// Checked before a stream uploaded to /upload/sound/{filename} is
// renamed into the live sound directory.
var sfbkMagic = []byte("RIFF")

func looksLikeSoundFont(header []byte) bool {
	return len(header) >= 12 && bytes.Equal(header[:4], sfbkMagic) && bytes.Equal(header[8:12], []byte("sfbk"))
}

func (s *Server) listSounds(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListSounds(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getSound(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	row, err := s.store.GetSound(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, row)
}

func (s *Server) deleteSound(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	row, err := s.store.GetSound(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.DeleteSound(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	if s.soundDir != "" {
		_ = os.Remove(filepath.Join(s.soundDir, row.Filename))
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadSound implements POST /upload/sound/{filename} (spec.md §6):
// stream the body to a temp file in upload_dir, reject anything whose
// header does not look like a SoundFont, then rename into place and
// catalog it.
func (s *Server) uploadSound(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" || strings.ContainsAny(filename, "/\\") {
		writeValidationError(w, map[string]string{"filename": "invalid"})
		return
	}

	defer r.Body.Close()

	tmpPath := filepath.Join(s.uploadDir, filename+".part")

	tmp, err := os.Create(tmpPath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	header := make([]byte, 12)

	n, _ := io.ReadFull(r.Body, header)

	if _, err := tmp.Write(header[:n]); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.writeError(w, err)
		return
	}

	if _, err := io.Copy(tmp, r.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.writeError(w, err)
		return
	}

	tmp.Close()

	if !looksLikeSoundFont(header[:n]) {
		os.Remove(tmpPath)
		writeValidationError(w, map[string]string{"file": "not a recognized SoundFont"})
		return
	}

	destPath := filepath.Join(s.soundDir, filename)
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		s.writeError(w, err)
		return
	}

	row := store.SoundRow{
		ID:       uuid.NewString(),
		Filename: filename,
		Name:     strings.TrimSuffix(filename, filepath.Ext(filename)),
	}

	if err := s.store.UpsertSound(r.Context(), row); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, row)
}
