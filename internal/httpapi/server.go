// Package httpapi implements the HTTP/JSON control surface of spec.md
// §6: presets, the live instrument, the sound catalog, mapping/
// calibration config, server info, and a display screenshot endpoint.
// Routing is github.com/gorilla/mux, request bodies are validated with
// github.com/go-playground/validator before they ever touch the state
// tree, matching SPEC_FULL.md §6's explicit binding choices.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/charmbracelet/log"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/errs"
	"github.com/midigurdy/core/internal/presets"
	"github.com/midigurdy/core/internal/state"
	"github.com/midigurdy/core/internal/store"
	"github.com/midigurdy/core/internal/version"
)

// Server wires the state tree, preset store, presets loader, and the
// Engine/System adapters into a routed http.Handler. It holds no
// transport-level state of its own beyond the router.
type Server struct {
	tree    *state.Tree
	store   *store.Store
	loader  *presets.Loader
	engine  adapters.Engine
	system  adapters.System
	fb      FramebufferReader
	logger  *log.Logger
	info    version.Info
	soundDir string
	uploadDir string

	validate *validator.Validate
	router   *mux.Router

	webrootDir string
}

// Deps collects Server's collaborators. Framebuffer and System may be
// nil: without a framebuffer the screenshot endpoint answers 404, and no
// route calls System, so a minimal deployment (or a test) need not stub
// every adapter.
type Deps struct {
	Tree      *state.Tree
	Store     *store.Store
	Loader    *presets.Loader
	Engine    adapters.Engine
	System    adapters.System
	Framebuffer FramebufferReader
	Logger    *log.Logger
	Info      version.Info
	SoundDir  string
	UploadDir string
	// WebrootDir, if set, serves the instrument's web UI assets for
	// any request that doesn't match one of the API routes below
	// (spec.md §6's [server] webroot_dir).
	WebrootDir string
}

// NewServer builds a Server and wires its routes.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		tree:      d.Tree,
		store:     d.Store,
		loader:    d.Loader,
		engine:    d.Engine,
		system:    d.System,
		fb:        d.Framebuffer,
		logger:    logger,
		info:      d.Info,
		soundDir:   d.SoundDir,
		uploadDir:  d.UploadDir,
		webrootDir: d.WebrootDir,
		validate:   validator.New(),
	}

	s.router = s.buildRouter()

	return s
}

// ServeHTTP lets Server itself be mounted directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/presets", s.listPresets).Methods(http.MethodGet)
	r.HandleFunc("/presets", s.createPreset).Methods(http.MethodPost)
	r.HandleFunc("/presets/order", s.reorderPresets).Methods(http.MethodPost)
	r.HandleFunc("/presets/{id}", s.getPreset).Methods(http.MethodGet)
	r.HandleFunc("/presets/{id}", s.putPreset).Methods(http.MethodPut)
	r.HandleFunc("/presets/{id}", s.deletePreset).Methods(http.MethodDelete)
	r.HandleFunc("/presets/{id}/load", s.loadPreset).Methods(http.MethodPost)

	r.HandleFunc("/instrument", s.getInstrument).Methods(http.MethodGet)
	r.HandleFunc("/instrument", s.postInstrument).Methods(http.MethodPost)

	r.HandleFunc("/sounds", s.listSounds).Methods(http.MethodGet)
	r.HandleFunc("/sounds/{id}", s.getSound).Methods(http.MethodGet)
	r.HandleFunc("/sounds/{id}", s.deleteSound).Methods(http.MethodDelete)
	r.HandleFunc("/upload/sound/{filename}", s.uploadSound).Methods(http.MethodPost)

	r.HandleFunc("/mappings/{name}", s.getMapping).Methods(http.MethodGet)
	r.HandleFunc("/mappings/{name}", s.putMapping).Methods(http.MethodPut)
	r.HandleFunc("/mappings/{name}", s.deleteMapping).Methods(http.MethodDelete)

	r.HandleFunc("/calibrate/keyboard", s.getCalibration).Methods(http.MethodGet)
	r.HandleFunc("/calibrate/keyboard", s.putCalibration).Methods(http.MethodPut)
	r.HandleFunc("/calibrate/keyboard", s.deleteCalibration).Methods(http.MethodDelete)

	r.HandleFunc("/info", s.getInfo).Methods(http.MethodGet)
	r.HandleFunc("/screenshot", s.getScreenshot).Methods(http.MethodGet)

	if s.webrootDir != "" {
		r.NotFoundHandler = http.FileServer(http.Dir(s.webrootDir))
	}

	return r
}

// --- request/response helpers ---

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidationError(w, map[string]string{"body": err.Error()})
		return false
	}

	return true
}

// validateStruct runs v through validator and, on failure, writes the
// 400 {errors:{...}} response shape directly from its field errors.
// Returns true if v is valid.
func (s *Server) validateStruct(w http.ResponseWriter, v any) bool {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Namespace()] = fe.Tag()
			}

			writeValidationError(w, fields)
			return false
		}

		writeValidationError(w, map[string]string{"body": err.Error()})
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
}

// writeError maps the spec.md §7 error-kind taxonomy to HTTP status
// codes via a single type switch: Validation->400, NotFound->404,
// DeviceIO->500, anything else->500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *errs.ValidationError
		notFoundErr   *errs.NotFoundError
		deviceErr     *errs.DeviceIOError
	)

	switch {
	case errors.As(err, &validationErr):
		writeValidationError(w, validationErr.Fields)
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": notFoundErr.Error()})
	case errors.As(err, &deviceErr):
		s.logger.Error("device io error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "device error"})
	default:
		s.logger.Error("unhandled http api error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}
