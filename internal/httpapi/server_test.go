package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/presets"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
	"github.com/midigurdy/core/internal/store"
	"github.com/midigurdy/core/internal/version"
)

type testServer struct {
	*Server
	store  *store.Store
	engine *adapters.FakeEngine
	tree   *state.Tree
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := signalbus.New(nil)
	tree := state.NewTree(bus)
	loader := presets.NewLoader(s, nil)
	engine := &adapters.FakeEngine{}

	soundDir := t.TempDir()
	uploadDir := t.TempDir()

	srv := NewServer(Deps{
		Tree:      tree,
		Store:     s,
		Loader:    loader,
		Engine:    engine,
		Info:      version.Info{Name: "mgurdyd", Version: "test"},
		SoundDir:  soundDir,
		UploadDir: uploadDir,
	})

	return &testServer{Server: srv, store: s, engine: engine, tree: tree}
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func TestCreateListLoadPreset(t *testing.T) {
	ts := newTestServer(t)

	var doc presets.PresetDoc
	doc.Name = "My Preset"
	doc.Main.Volume = 100
	doc.Voices.Melody = []presets.VoiceDoc{{SoundFont: "mg.sf2", Note: 60, Volume: 127, Panning: 64}}

	rec := doJSON(t, ts, http.MethodPost, "/presets", doc)
	require.Equal(t, http.StatusOK, rec.Code)

	var created presetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Number)

	rec = doJSON(t, ts, http.MethodGet, "/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []presetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "My Preset", list[0].Name)

	rec = doJSON(t, ts, http.MethodPost, "/presets/1/load", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, int64(1), ts.tree.Active.ID)
	assert.False(t, ts.tree.Active.Melody[0].IsSilent())
}

func TestCreatePresetValidationFailureReturns400(t *testing.T) {
	ts := newTestServer(t)

	var doc presets.PresetDoc
	doc.Main.Volume = 999 // out of [0,127]

	rec := doJSON(t, ts, http.MethodPost, "/presets", doc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["errors"])
}

func TestLoadUnknownPresetReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts, http.MethodPost, "/presets/999/load", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReorderPresets(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := &store.PresetRow{Name: "A", Blob: []byte("{}")}
	b := &store.PresetRow{Name: "B", Blob: []byte("{}")}
	require.NoError(t, ts.store.Save(ctx, a))
	require.NoError(t, ts.store.Save(ctx, b))

	rec := doJSON(t, ts, http.MethodPost, "/presets/order", []int64{b.ID, a.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rows, err := ts.store.SelectAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, rows[0].ID)
}

func TestInstrumentGetAndPost(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts, http.MethodGet, "/instrument", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc presets.PresetDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	doc.Main.Volume = 42

	rec = doJSON(t, ts, http.MethodPost, "/instrument", doc)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 42, ts.tree.Active.MainVolume)
}

func TestMappingRoundTripAndEngineWiring(t *testing.T) {
	ts := newTestServer(t)

	ranges := []rangeDoc{{Src: 0, Dst: 0}, {Src: 64, Dst: 127}}

	rec := doJSON(t, ts, http.MethodPut, "/mappings/pitch", ranges)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, ts.engine.Calls)
	assert.Equal(t, "set_mapping_ranges", ts.engine.Calls[len(ts.engine.Calls)-1].Method)

	rec = doJSON(t, ts, http.MethodGet, "/mappings/pitch", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []rangeDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ranges, got)

	rec = doJSON(t, ts, http.MethodDelete, "/mappings/pitch", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, ts, http.MethodGet, "/mappings/pitch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMappingRejectsNonIncreasingSrc(t *testing.T) {
	ts := newTestServer(t)

	ranges := []rangeDoc{{Src: 10, Dst: 0}, {Src: 5, Dst: 127}}

	rec := doJSON(t, ts, http.MethodPut, "/mappings/pitch", ranges)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalibrationRequiresExactly24Entries(t *testing.T) {
	ts := newTestServer(t)

	entries := []keyCalibrationDoc{{Pressure: 1000, Velocity: 0}}

	rec := doJSON(t, ts, http.MethodPut, "/calibrate/keyboard", entries)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalibrationRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	entries := make([]keyCalibrationDoc, 24)
	for i := range entries {
		entries[i] = keyCalibrationDoc{Pressure: 1500, Velocity: 10}
	}

	rec := doJSON(t, ts, http.MethodPut, "/calibrate/keyboard", entries)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotEmpty(t, ts.engine.Calls)
	assert.Equal(t, "set_key_calibration", ts.engine.Calls[len(ts.engine.Calls)-1].Method)

	rec = doJSON(t, ts, http.MethodGet, "/calibrate/keyboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []keyCalibrationDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 24)
}

func TestUploadSoundRejectsNonSoundFontPayload(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload/sound/test.sf2", bytes.NewReader([]byte("not a soundfont")))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadSoundAcceptsSfbkHeaderAndCatalogs(t *testing.T) {
	ts := newTestServer(t)

	payload := append([]byte("RIFF\x00\x00\x00\x00sfbk"), []byte("rest of file")...)

	req := httptest.NewRequest(http.MethodPost, "/upload/sound/test.sf2", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	sounds, err := ts.store.ListSounds(context.Background())
	require.NoError(t, err)
	require.Len(t, sounds, 1)
	assert.Equal(t, "test.sf2", sounds[0].Filename)

	_, statErr := os.Stat(ts.soundDir + "/test.sf2")
	assert.NoError(t, statErr)
}

func TestInfoReportsActivePreset(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "mgurdyd", info.Name)
}

type fakeFramebuffer struct{ raw []byte }

func (f fakeFramebuffer) ReadFramebuffer(ctx context.Context) ([]byte, error) { return f.raw, nil }

func TestScreenshotEncodesPNGByDefault(t *testing.T) {
	ts := newTestServer(t)
	ts.Server.fb = fakeFramebuffer{raw: make([]byte, fbWidth/8*fbHeight)}

	rec := doJSON(t, ts, http.MethodGet, "/screenshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestScreenshotRejectsUnknownFormat(t *testing.T) {
	ts := newTestServer(t)
	ts.Server.fb = fakeFramebuffer{raw: make([]byte, fbWidth/8*fbHeight)}

	rec := doJSON(t, ts, http.MethodGet, "/screenshot?format=bmp", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenshotWithoutFramebufferReturns404(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts, http.MethodGet, "/screenshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
