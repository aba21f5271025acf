// Package config loads the control plane's INI configuration file
// (spec.md §6) and overlays the CLI flags of cmd/mgurdyd, mirroring the
// teacher's own cmd/direwolf flag-then-file layering.
package config

import (
	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"

	"github.com/midigurdy/core/internal/errs"
)

// Core holds the [core] section: where presets, sounds and uploads live.
type Core struct {
	DataDir     string `ini:"data_dir"`
	SoundDir    string `ini:"sound_dir"`
	ConfigDir   string `ini:"config_dir"`
	UploadDir   string `ini:"upload_dir"`
	InputConfig string `ini:"input_config"`
}

// Server holds the [server] section: HTTP/websocket bind options.
type Server struct {
	HTTPPort   int    `ini:"http_port"`
	WebrootDir string `ini:"webroot_dir"`
}

// System holds the [system] section: device node paths the system
// adapter reads and writes (spec.md §4.9's amp mixer, backlight, LEDs,
// UDC config, display, and battery/power state reporting).
type System struct {
	PowerStateAC    string `ini:"power_state_ac"`
	PowerStateUSB   string `ini:"power_state_usb"`
	BatteryVoltage  string `ini:"battery_voltage"`
	BacklightControl string `ini:"backlight_control"`
	LEDBrightness1  string `ini:"led_brightness_1"`
	LEDBrightness2  string `ini:"led_brightness_2"`
	LEDBrightness3  string `ini:"led_brightness_3"`
	ALSAMixer       string `ini:"alsa_mixer"`
	UDCConfig       string `ini:"udc_config"`
	DisplayDevice   string `ini:"display_device"`
	DisplayMmap     string `ini:"display_mmap"`
}

// Logging holds the [logging] section.
type Logging struct {
	Method  string `ini:"log_method"`  // syslog, file, console
	Level   string `ini:"log_level"`
	File    string `ini:"log_file"`
	Oneline bool   `ini:"log_oneline"`
	Levels  string `ini:"log_levels"` // "name:level,name:level,..."
}

// Config is the fully-resolved configuration: file values with CLI flag
// overrides and the command's runtime-only switches applied on top.
type Config struct {
	Core    Core
	Server  Server
	System  System
	Logging Logging

	// Runtime-only flags, never present in the file.
	DumpMIDI  bool
	DebugFS   bool
	Debug     bool
	Traceback bool
}

// Defaults returns the configuration all values fall back to before a
// file or flags are applied, matching spec.md §3's stated defaults.
func Defaults() Config {
	return Config{
		Core: Core{
			DataDir:     "/var/lib/mgurdy",
			SoundDir:    "/var/lib/mgurdy/sounds",
			ConfigDir:   "/etc/mgurdy",
			UploadDir:   "/var/lib/mgurdy/uploads",
			InputConfig: "/etc/mgurdy/input.conf",
		},
		Server: Server{
			HTTPPort:   80,
			WebrootDir: "/usr/share/mgurdy/webroot",
		},
		System: System{
			PowerStateAC:     "/sys/class/power_supply/ac/online",
			PowerStateUSB:    "/sys/class/power_supply/usb/online",
			BatteryVoltage:   "/sys/class/power_supply/battery/voltage_now",
			BacklightControl: "/sys/class/backlight/lcd/brightness",
			LEDBrightness1:   "/sys/class/leds/led1/brightness",
			LEDBrightness2:   "/sys/class/leds/led2/brightness",
			LEDBrightness3:   "/sys/class/leds/led3/brightness",
			ALSAMixer:        "default",
			UDCConfig:        "/sys/class/udc/udc0/device/config",
			DisplayDevice:    "/dev/fb0",
			DisplayMmap:      "/dev/fb0",
		},
		Logging: Logging{
			Method: "console",
			Level:  "info",
		},
	}
}

// Load reads path into a Config seeded with Defaults. A missing or
// unparseable file is a *errs.ConfigError, fatal at boot per spec.md §6.
func Load(path string) (Config, error) {
	cfg := Defaults()

	f, err := ini.Load(path)
	if err != nil {
		return cfg, &errs.ConfigError{Path: path, Err: err}
	}

	if sec, err := f.GetSection("core"); err == nil {
		if err := sec.MapTo(&cfg.Core); err != nil {
			return cfg, &errs.ConfigError{Path: path, Err: err}
		}
	}

	if sec, err := f.GetSection("server"); err == nil {
		if err := sec.MapTo(&cfg.Server); err != nil {
			return cfg, &errs.ConfigError{Path: path, Err: err}
		}
	}

	if sec, err := f.GetSection("system"); err == nil {
		if err := sec.MapTo(&cfg.System); err != nil {
			return cfg, &errs.ConfigError{Path: path, Err: err}
		}
	}

	if sec, err := f.GetSection("logging"); err == nil {
		if err := sec.MapTo(&cfg.Logging); err != nil {
			return cfg, &errs.ConfigError{Path: path, Err: err}
		}
	}

	return cfg, nil
}

// Flags are the CLI flags of cmd/mgurdyd (spec.md §6), bound with pflag
// the way the teacher's cmd/*/main.go entrypoints bind theirs.
type Flags struct {
	ConfigFile *string
	DumpMIDI   *bool
	DebugFS    *bool
	Debug      *bool
	Traceback  *bool
}

// BindFlags registers the command's flags on fs and returns the bound
// pointers; call after fs.Parse() to read the values.
func BindFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		ConfigFile: fs.StringP("config", "c", "/etc/mgurdy/mgurdy.conf", "Configuration file path."),
		DumpMIDI:   fs.Bool("dump-midi", false, "Log every incoming and outgoing MIDI message."),
		DebugFS:    fs.Bool("debug-fs", false, "Use a fake filesystem-backed system adapter instead of real hardware."),
		Debug:      fs.Bool("debug", false, "Enable debug-level logging regardless of the configured log_level."),
		Traceback:  fs.Bool("traceback", false, "Print a goroutine dump on fatal signal."),
	}
}

// ApplyFlags overlays the runtime-only flags onto cfg. It does not touch
// file-backed fields: flags that shadow a file value (none currently do)
// would be applied by the caller before Load, since --config itself
// names the file to load.
func ApplyFlags(cfg Config, flags *Flags) Config {
	cfg.DumpMIDI = *flags.DumpMIDI
	cfg.DebugFS = *flags.DebugFS
	cfg.Debug = *flags.Debug
	cfg.Traceback = *flags.Traceback

	if cfg.Debug {
		cfg.Logging.Level = "debug"
	}

	return cfg
}
