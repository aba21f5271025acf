// Package adapters defines the black-box collaborator interfaces named
// in spec.md's Out-of-scope list: the pixel display driver, the audio
// synthesizer, the realtime string engine, and a MIDI hardware port.
// Controllers depend only on these interfaces, never a concrete
// implementation, so the reactive chain from a state mutation to a
// device command is testable with recording fakes.
package adapters

import "context"

// Display is the pixel-level display driver (spec.md §1: "the core
// calls clear/line/rect/puts/blit/scrolltext/update").
type Display interface {
	Clear(ctx context.Context) error
	Line(ctx context.Context, x0, y0, x1, y1 int) error
	Rect(ctx context.Context, x, y, w, h int, filled bool) error
	Puts(ctx context.Context, x, y int, text string) error
	Blit(ctx context.Context, x, y, w, h int, pixels []byte) error
	Scrolltext(ctx context.Context, y int, text string) error
	Update(ctx context.Context) error
}

// Synth is the audio synthesizer (spec.md §1).
type Synth interface {
	SetChannelSound(ctx context.Context, channel int, soundfontID string, bank, program int) error
	ClearChannelSound(ctx context.Context, channel int) error
	LoadFont(ctx context.Context, path string) (soundfontID string, err error)
	UnloadUnused(ctx context.Context, inUse []string) error
	SetGain(ctx context.Context, gain float64) error
	// SendControlChange sends a raw MIDI CC to channel, used by
	// SynthController to push the RPN-00:01 fine-tune sequence
	// (spec.md §4.9).
	SendControlChange(ctx context.Context, channel, cc, value int) error
	// SetReverb pushes the preset's global reverb level and panning
	// (spec.md §4.9), both 0..127.
	SetReverb(ctx context.Context, volume, panning int) error
}

// Engine is the realtime string-simulation engine (spec.md §1).
type Engine interface {
	SetStringParams(ctx context.Context, voice string, param string, value int) error
	HaltOutputs(ctx context.Context) error
	ResumeOutputs(ctx context.Context) error
	SetMappingRanges(ctx context.Context, name string, ranges []Range) error
	SetKeyCalibration(ctx context.Context, calibration []KeyCalibration) error
}

// Range is one entry of a mapping-range list (spec.md §6): {src, dst}.
type Range struct {
	Src int
	Dst int
}

// KeyCalibration is one of the 24 per-key calibration entries (spec.md
// §6): {pressure, velocity}.
type KeyCalibration struct {
	Pressure int // 0..3000
	Velocity int // -100..100
}

// MIDIPort is the MIDI hardware enumeration/IO collaborator (spec.md
// §1): "list_ports/open/read/fileno".
type MIDIPort interface {
	ListPorts(ctx context.Context) ([]MIDIPortInfo, error)
	Open(ctx context.Context, id string) (MIDIPortHandle, error)
}

// MIDIPortInfo describes one enumerated hardware MIDI port.
type MIDIPortInfo struct {
	ID   string
	Name string
}

// MIDIPortHandle is an opened MIDI hardware port.
type MIDIPortHandle interface {
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, data []byte) (int, error)
	FD() int
	Close() error
}

// System is the sysfs-backed system collaborator (SPEC_FULL.md §4.9):
// amp mixer volume, backlight brightness, and per-string LED writes.
// These are plain sysfs class file reads/writes in the original
// implementation (power_supply/hwmon/backlight/leds classes), not GPIO
// character device lines, so this adapter is file-based rather than
// wired to a GPIO library (see DESIGN.md's dropped-dependency entry for
// go-gpiocdev).
type System interface {
	SetMixerVolume(ctx context.Context, volume int) error
	SetBacklight(ctx context.Context, brightness int) error
	SetLED(ctx context.Context, index int, on bool) error
	ReadPowerState(ctx context.Context) (acOnline, usbOnline bool, batteryMillivolts int, err error)
	// ReadUDCConfig reads the USB device controller's current gadget
	// configuration index, re-read whenever a "udc" mdev hotplug event
	// fires (spec.md §4.9: "on mdev:udc -> cache UDC config").
	ReadUDCConfig(ctx context.Context) (int, error)
	PowerOff(ctx context.Context) error
}
