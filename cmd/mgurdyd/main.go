// Command mgurdyd is the digital hurdy-gurdy's control-plane daemon
// (spec.md §1): it loads configuration, opens the preset store, builds
// the state tree and its reactive controllers, and serves the HTTP/
// websocket control API until signalled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/config"
	"github.com/midigurdy/core/internal/controllers"
	"github.com/midigurdy/core/internal/dispatch"
	"github.com/midigurdy/core/internal/errs"
	"github.com/midigurdy/core/internal/httpapi"
	"github.com/midigurdy/core/internal/input"
	"github.com/midigurdy/core/internal/inputmap"
	"github.com/midigurdy/core/internal/instrumentmode"
	"github.com/midigurdy/core/internal/logging"
	"github.com/midigurdy/core/internal/mdns"
	"github.com/midigurdy/core/internal/menu"
	"github.com/midigurdy/core/internal/presets"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
	"github.com/midigurdy/core/internal/store"
	"github.com/midigurdy/core/internal/version"
	"github.com/midigurdy/core/internal/ws"
)

func main() {
	fs := pflag.NewFlagSet("mgurdyd", pflag.ExitOnError)
	flags := config.BindFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*flags.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mgurdyd: fatal:", err)
		os.Exit(2)
	}

	cfg = config.ApplyFlags(cfg, flags)

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mgurdyd: fatal:", err)
		os.Exit(2)
	}

	logger.Info("mgurdyd starting", "version", version.Current().Version)

	if err := run(cfg, logger); err != nil {
		logger.Error("mgurdyd exiting", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Core.DataDir, 0o755); err != nil {
		return &errs.ConfigError{Path: cfg.Core.DataDir, Err: err}
	}

	if err := os.MkdirAll(cfg.Core.SoundDir, 0o755); err != nil {
		return &errs.ConfigError{Path: cfg.Core.SoundDir, Err: err}
	}

	if err := os.MkdirAll(cfg.Core.UploadDir, 0o755); err != nil {
		return &errs.ConfigError{Path: cfg.Core.UploadDir, Err: err}
	}

	db, err := store.Open(filepath.Join(cfg.Core.DataDir, "mgurdy.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := scanSoundDir(ctx, db, cfg.Core.SoundDir, logger); err != nil {
		logger.Warn("sound dir scan failed", "err", err)
	}

	bus := signalbus.New(logging.Sublogger(logger, cfg.Logging, "bus"))
	tree := state.NewTree(bus)

	profiles, err := instrumentmode.Load()
	if err != nil {
		return err
	}

	applyInstrumentModeProfile(ctx, db, tree, profiles, logger)

	resolver := func(name string) state.SoundFontInfo {
		row, err := db.FindSoundByFilename(ctx, name)
		if err != nil {
			return state.SoundFontInfo{ID: name, NaturalBaseNote: -1}
		}

		return state.SoundFontInfo{ID: row.ID, MidigurdyMode: row.MidigurdyMode, NaturalBaseNote: -1}
	}

	loader := presets.NewLoader(db, resolver)

	// The realtime string engine, synthesizer, pixel display and MIDI
	// hardware transport are black-box collaborators out of this
	// module's scope (adapters.go's doc comment); mgurdyd drives them
	// through adapters.Synth/Engine/Display/MIDIPort regardless of
	// which concrete implementation is wired in. Until a real backend
	// is configured, the in-memory Fakes stand in so the reactive
	// chain and HTTP surface are fully exercised end to end.
	synth := &adapters.FakeSynth{}
	engine := &adapters.FakeEngine{}
	midiPorts := &adapters.FakeMIDIPort{}
	system := adapters.System(adapters.NewSysfsSystem(cfg.System))

	if cfg.DebugFS {
		system = &adapters.FakeSystem{}
	}

	inputManager := input.NewInputManager(logging.Sublogger(logger, cfg.Logging, "input"), 256)

	stack := menu.NewStack(tree.Lock)
	sweeper := menu.NewIdleSweeper(stack)

	d := dispatch.New(logging.Sublogger(logger, cfg.Logging, "dispatch"), stack, tree, system, 256)
	d.SetSweeper(sweeper)

	d.RegisterAction("load_preset", func(ctx context.Context, value any) {
		id, ok := asInt64(value)
		if !ok {
			return
		}

		if err := loader.Load(ctx, tree, id); err != nil {
			logger.Warn("load_preset failed", "id", id, "err", err)
		}
	})

	d.RegisterAction("select_profile", func(ctx context.Context, value any) {
		name, ok := value.(string)
		if !ok {
			return
		}

		profile, ok := profiles.Get(name)
		if !ok {
			logger.Warn("select_profile: unknown profile", "name", name)
			return
		}

		tree.UI.SelectProfile(ctx, profile)

		if err := db.PutKV(ctx, "instrument_mode", []byte(name)); err != nil {
			logger.Warn("select_profile: failed to persist", "name", name, "err", err)
		}
	})

	synthCtl := controllers.NewSynthController(tree, synth, engine, logging.Sublogger(logger, cfg.Logging, "synth"))
	defer synthCtl.Close()

	systemCtl := controllers.NewSystemController(tree, system, logging.Sublogger(logger, cfg.Logging, "system"))
	defer systemCtl.Close()

	midiCtl := controllers.NewMIDIController(tree, midiPorts, inputManager, logging.Sublogger(logger, cfg.Logging, "midi"))
	defer midiCtl.Close()

	if err := wireInputMap(cfg, inputManager, d, logger); err != nil {
		logger.Warn("input map not loaded", "path", cfg.Core.InputConfig, "err", err)
	}

	go inputManager.Run(ctx)
	go d.Run(ctx)
	go pumpInputEvents(ctx, inputManager, d)
	go sweeper.Run(ctx, nil)

	policy := ws.NewPolicy("ui:page:changed", "active:preset:changed")
	hub := ws.NewHub(bus, policy, logging.Sublogger(logger, cfg.Logging, "ws"))

	apiServer := httpapi.NewServer(httpapi.Deps{
		Tree:       tree,
		Store:      db,
		Loader:     loader,
		Engine:     engine,
		System:     system,
		Logger:     logging.Sublogger(logger, cfg.Logging, "httpapi"),
		Info:       version.Current(),
		SoundDir:   cfg.Core.SoundDir,
		UploadDir:  cfg.Core.UploadDir,
		WebrootDir: cfg.Server.WebrootDir,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/", apiServer)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}

	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "err", err)
		}
	}()

	announcer, err := mdns.Announce(ctx, "", cfg.Server.HTTPPort, logger)
	if err != nil {
		logger.Warn("mdns announce failed", "err", err)
	} else {
		defer announcer.Close()
	}

	<-ctx.Done()
	logger.Info("mgurdyd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

// pumpInputEvents forwards the InputManager's mapped Key/Action and
// hotplug events onto the dispatcher's FIFO, the join point between
// spec.md §4.4's input layer and §4.6's single-consumer dispatcher.
func pumpInputEvents(ctx context.Context, mgr *input.InputManager, d *dispatch.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-mgr.Output():
			switch {
			case out.Event != nil:
				d.Enqueue(dispatch.Event{Kind: dispatch.KindInput, Input: out.Event})
			case out.Mdev != nil:
				d.Enqueue(dispatch.Event{Kind: dispatch.KindMdev, Mdev: out.Mdev})
			}
		}
	}
}

// wireInputMap loads the input-map JSON named by cfg.Core.InputConfig,
// binds its evdev mappings into a shared EvdevMapping, registers one
// EventDevSource/MIDIPortSource per descriptor, and compiles each
// "midi" source's rules onto its MIDIPortSource.
func wireInputMap(cfg config.Config, mgr *input.InputManager, d *dispatch.Dispatcher, logger *log.Logger) error {
	m, err := inputmap.Load(cfg.Core.InputConfig)
	if err != nil {
		return err
	}

	evdevMapping := input.NewEvdevMapping(logging.Sublogger(logger, cfg.Logging, "evdev"))

	if err := m.ApplyEvdev(evdevMapping); err != nil {
		return err
	}

	for _, src := range m.Sources {
		switch src.Type {
		case "evdev":
			if err := mgr.Register(input.NewEventDevSource(src.Device, evdevMapping, src.Debug, logger)); err != nil {
				logger.Warn("evdev source registration failed", "device", src.Device, "err", err)
			}
		case "midi":
			keyRules, dispatchRules, err := m.CompileMIDI(src.Name)
			if err != nil {
				logger.Warn("midi source mapping compile failed", "name", src.Name, "err", err)
				continue
			}

			port := input.NewMIDIPortSource(src.Device, src.Debug)
			port.SetKeyRules(keyRules)
			port.SetDispatchRules(dispatchRules, func(p input.DispatchPayload) {
				d.Enqueue(toDispatchEvent(p))
			})

			if err := mgr.Register(port); err != nil {
				logger.Warn("midi source registration failed", "device", src.Device, "err", err)
			}
		}
	}

	return nil
}

// applyInstrumentModeProfile selects the instrument-mode profile
// persisted under the "instrument_mode" kv key, falling back to the
// catalog's first entry when nothing was ever saved (spec.md §3).
func applyInstrumentModeProfile(ctx context.Context, db *store.Store, tree *state.Tree, profiles *instrumentmode.Catalog, logger *log.Logger) {
	name := ""

	if raw, err := db.GetKV(ctx, "instrument_mode"); err == nil {
		name = string(raw)
	}

	profile, ok := profiles.Get(name)
	if !ok {
		names := profiles.Names()
		if len(names) == 0 {
			return
		}

		profile, _ = profiles.Get(names[0])
	}

	tree.UI.SelectProfile(ctx, profile)
}

func toDispatchEvent(p input.DispatchPayload) dispatch.Event {
	switch p.Kind {
	case "state":
		return dispatch.Event{Kind: dispatch.KindState, StateName: p.StateName, StatePayload: p.StatePayload}
	case "state_change":
		return dispatch.Event{Kind: dispatch.KindStateChange, Path: p.Path, Value: p.Value}
	default:
		return dispatch.Event{Kind: dispatch.KindStateAction, ActionName: p.ActionName, ActionValue: p.ActionValue}
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}

	return 0, false
}

// scanSoundDir catalogs every *.sf2 file in dir (by extension only),
// matching the startup behaviour spec.md §6 implies for sound_dir
// (uploads persist the catalog entry; files already on disk at boot
// still need one).
func scanSoundDir(ctx context.Context, db *store.Store, dir string, logger *log.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sf2" {
			continue
		}

		existing, err := db.FindSoundByFilename(ctx, entry.Name())
		if err == nil && existing != nil {
			continue
		}

		row := store.SoundRow{
			ID:       entry.Name(),
			Filename: entry.Name(),
			Name:     entry.Name()[:len(entry.Name())-len(filepath.Ext(entry.Name()))],
		}

		if err := db.UpsertSound(ctx, row); err != nil {
			logger.Warn("sound catalog upsert failed", "file", entry.Name(), "err", err)
		}
	}

	return nil
}

const shutdownGrace = 5 * time.Second
