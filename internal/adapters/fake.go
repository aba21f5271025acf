package adapters

import (
	"context"
	"strconv"
)

// FakeDisplay records every draw call it receives, for controller/menu
// tests that assert on what would have reached the hardware.
type FakeDisplay struct {
	Calls   []string
	Updates int
}

func (f *FakeDisplay) Clear(ctx context.Context) error {
	f.Calls = append(f.Calls, "clear")
	return nil
}

func (f *FakeDisplay) Line(ctx context.Context, x0, y0, x1, y1 int) error {
	f.Calls = append(f.Calls, "line")
	return nil
}

func (f *FakeDisplay) Rect(ctx context.Context, x, y, w, h int, filled bool) error {
	f.Calls = append(f.Calls, "rect")
	return nil
}

func (f *FakeDisplay) Puts(ctx context.Context, x, y int, text string) error {
	f.Calls = append(f.Calls, "puts:"+text)
	return nil
}

func (f *FakeDisplay) Blit(ctx context.Context, x, y, w, h int, pixels []byte) error {
	f.Calls = append(f.Calls, "blit")
	return nil
}

func (f *FakeDisplay) Scrolltext(ctx context.Context, y int, text string) error {
	f.Calls = append(f.Calls, "scrolltext:"+text)
	return nil
}

func (f *FakeDisplay) Update(ctx context.Context) error {
	f.Updates++
	f.Calls = append(f.Calls, "update")
	return nil
}

// SynthCall is one recorded invocation against FakeSynth.
type SynthCall struct {
	Method        string
	Channel       int
	Arg           string
	Bank          int
	Program       int
	Gain          float64
	CC            int
	Value         int
	ReverbVolume  int
	ReverbPanning int
}

// FakeSynth records calls without driving any real audio hardware.
type FakeSynth struct {
	Calls   []SynthCall
	nextID  int
	Loaded  map[string]string // id -> path
}

func (f *FakeSynth) SetChannelSound(ctx context.Context, channel int, soundfontID string, bank, program int) error {
	f.Calls = append(f.Calls, SynthCall{Method: "set_channel_sound", Channel: channel, Arg: soundfontID, Bank: bank, Program: program})
	return nil
}

func (f *FakeSynth) ClearChannelSound(ctx context.Context, channel int) error {
	f.Calls = append(f.Calls, SynthCall{Method: "clear_channel_sound", Channel: channel})
	return nil
}

func (f *FakeSynth) LoadFont(ctx context.Context, path string) (string, error) {
	f.nextID++
	id := "sfid-" + strconv.Itoa(f.nextID)

	if f.Loaded == nil {
		f.Loaded = make(map[string]string)
	}

	f.Loaded[id] = path
	f.Calls = append(f.Calls, SynthCall{Method: "load_font", Arg: path})

	return id, nil
}

func (f *FakeSynth) UnloadUnused(ctx context.Context, inUse []string) error {
	keep := make(map[string]bool, len(inUse))
	for _, id := range inUse {
		keep[id] = true
	}

	for id := range f.Loaded {
		if !keep[id] {
			delete(f.Loaded, id)
		}
	}

	f.Calls = append(f.Calls, SynthCall{Method: "unload_unused"})

	return nil
}

func (f *FakeSynth) SetGain(ctx context.Context, gain float64) error {
	f.Calls = append(f.Calls, SynthCall{Method: "set_gain", Gain: gain})
	return nil
}

func (f *FakeSynth) SendControlChange(ctx context.Context, channel, cc, value int) error {
	f.Calls = append(f.Calls, SynthCall{Method: "control_change", Channel: channel, CC: cc, Value: value})
	return nil
}

func (f *FakeSynth) SetReverb(ctx context.Context, volume, panning int) error {
	f.Calls = append(f.Calls, SynthCall{Method: "set_reverb", ReverbVolume: volume, ReverbPanning: panning})
	return nil
}

// EngineCall is one recorded invocation against FakeEngine.
type EngineCall struct {
	Method string
	Voice  string
	Param  string
	Value  int
}

// FakeEngine records string-engine calls, tracking halt/resume balance
// so tests can assert a controller always resumes what it halts.
type FakeEngine struct {
	Calls      []EngineCall
	Halted     bool
	Ranges     map[string][]Range
	Calibration []KeyCalibration
}

func (f *FakeEngine) SetStringParams(ctx context.Context, voice string, param string, value int) error {
	f.Calls = append(f.Calls, EngineCall{Method: "set_string_params", Voice: voice, Param: param, Value: value})
	return nil
}

func (f *FakeEngine) HaltOutputs(ctx context.Context) error {
	f.Halted = true
	f.Calls = append(f.Calls, EngineCall{Method: "halt_outputs"})

	return nil
}

func (f *FakeEngine) ResumeOutputs(ctx context.Context) error {
	f.Halted = false
	f.Calls = append(f.Calls, EngineCall{Method: "resume_outputs"})

	return nil
}

func (f *FakeEngine) SetMappingRanges(ctx context.Context, name string, ranges []Range) error {
	if f.Ranges == nil {
		f.Ranges = make(map[string][]Range)
	}

	f.Ranges[name] = ranges
	f.Calls = append(f.Calls, EngineCall{Method: "set_mapping_ranges", Voice: name})

	return nil
}

func (f *FakeEngine) SetKeyCalibration(ctx context.Context, calibration []KeyCalibration) error {
	f.Calibration = calibration
	f.Calls = append(f.Calls, EngineCall{Method: "set_key_calibration"})

	return nil
}

// FakeMIDIPort is an in-memory MIDIPort for input-manager and controller
// tests: ports are pre-seeded, and Open hands back a FakeMIDIPortHandle
// whose Read drains a test-fed byte channel.
type FakeMIDIPort struct {
	Ports   []MIDIPortInfo
	Opened  map[string]*FakeMIDIPortHandle
}

func (f *FakeMIDIPort) ListPorts(ctx context.Context) ([]MIDIPortInfo, error) {
	return f.Ports, nil
}

func (f *FakeMIDIPort) Open(ctx context.Context, id string) (MIDIPortHandle, error) {
	h := &FakeMIDIPortHandle{id: id, in: make(chan []byte, 64)}

	if f.Opened == nil {
		f.Opened = make(map[string]*FakeMIDIPortHandle)
	}

	f.Opened[id] = h

	return h, nil
}

// FakeMIDIPortHandle is a FakeMIDIPort's opened handle. Feed drives data
// that a subsequent Read will return.
type FakeMIDIPortHandle struct {
	id      string
	in      chan []byte
	Written [][]byte
	closed  bool
}

func (h *FakeMIDIPortHandle) Feed(data []byte) { h.in <- data }

func (h *FakeMIDIPortHandle) Read(ctx context.Context, buf []byte) (int, error) {
	select {
	case data := <-h.in:
		n := copy(buf, data)
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *FakeMIDIPortHandle) Write(ctx context.Context, data []byte) (int, error) {
	h.Written = append(h.Written, append([]byte(nil), data...))
	return len(data), nil
}

func (h *FakeMIDIPortHandle) FD() int { return -1 }

func (h *FakeMIDIPortHandle) Close() error {
	h.closed = true
	return nil
}

// FakeSystem records sysfs-style system calls.
type FakeSystem struct {
	Volume     int
	Brightness int
	LEDs       map[int]bool
	PoweredOff bool

	ACOnline          bool
	USBOnline         bool
	BatteryMillivolts int
	UDCConfig         int
}

func (f *FakeSystem) SetMixerVolume(ctx context.Context, volume int) error {
	f.Volume = volume
	return nil
}

func (f *FakeSystem) SetBacklight(ctx context.Context, brightness int) error {
	f.Brightness = brightness
	return nil
}

func (f *FakeSystem) SetLED(ctx context.Context, index int, on bool) error {
	if f.LEDs == nil {
		f.LEDs = make(map[int]bool)
	}

	f.LEDs[index] = on

	return nil
}

func (f *FakeSystem) ReadPowerState(ctx context.Context) (bool, bool, int, error) {
	return f.ACOnline, f.USBOnline, f.BatteryMillivolts, nil
}

func (f *FakeSystem) ReadUDCConfig(ctx context.Context) (int, error) {
	return f.UDCConfig, nil
}

func (f *FakeSystem) PowerOff(ctx context.Context) error {
	f.PoweredOff = true
	return nil
}

