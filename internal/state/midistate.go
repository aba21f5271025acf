package state

import "context"

// MIDISpeed selects the baud-rate class of a MIDI port (spec.md §3).
type MIDISpeed int

const (
	MIDISpeedDefault MIDISpeed = 0
	MIDISpeedFast    MIDISpeed = 1
	MIDISpeedSlow    MIDISpeed = 2
)

// MIDIPortState is the per-enumerated-port configuration of spec.md §3.
// -1 on a channel field means "off".
type MIDIPortState struct {
	Emitter

	ID   string // stable port identifier, e.g. "hw:1,0,0"
	Name string

	InputEnabled  bool
	InputAuto     bool
	OutputEnabled bool
	OutputAuto    bool

	MelodyChannel    int
	TrompetteChannel int
	DroneChannel     int

	ProgramChange bool
	Speed         MIDISpeed

	// Present tracks whether the underlying hardware port is
	// currently plugged in; config (the fields above) survives
	// unplugging so it can be reapplied when the port reappears.
	Present bool
}

// NewMIDIPortState returns a MIDIPortState with all channels off, per
// the documented default in spec.md §3.
func NewMIDIPortState(emitter Emitter, id, name string) *MIDIPortState {
	return &MIDIPortState{
		Emitter:          emitter,
		ID:               id,
		Name:             name,
		MelodyChannel:    -1,
		TrompetteChannel: -1,
		DroneChannel:     -1,
	}
}

func (m *MIDIPortState) SetInputEnabled(ctx context.Context, v bool) {
	SetField(m.Emitter, ctx, "input_enabled", &m.InputEnabled, v, m)
}

func (m *MIDIPortState) SetInputAuto(ctx context.Context, v bool) {
	SetField(m.Emitter, ctx, "input_auto", &m.InputAuto, v, m)
}

func (m *MIDIPortState) SetOutputEnabled(ctx context.Context, v bool) {
	SetField(m.Emitter, ctx, "output_enabled", &m.OutputEnabled, v, m)
}

func (m *MIDIPortState) SetOutputAuto(ctx context.Context, v bool) {
	SetField(m.Emitter, ctx, "output_auto", &m.OutputAuto, v, m)
}

func (m *MIDIPortState) SetMelodyChannel(ctx context.Context, ch int) {
	SetField(m.Emitter, ctx, "melody_channel", &m.MelodyChannel, clamp(ch, -1, 15), m)
}

func (m *MIDIPortState) SetTrompetteChannel(ctx context.Context, ch int) {
	SetField(m.Emitter, ctx, "trompette_channel", &m.TrompetteChannel, clamp(ch, -1, 15), m)
}

func (m *MIDIPortState) SetDroneChannel(ctx context.Context, ch int) {
	SetField(m.Emitter, ctx, "drone_channel", &m.DroneChannel, clamp(ch, -1, 15), m)
}

func (m *MIDIPortState) SetProgramChange(ctx context.Context, v bool) {
	SetField(m.Emitter, ctx, "program_change", &m.ProgramChange, v, m)
}

func (m *MIDIPortState) SetSpeed(ctx context.Context, speed MIDISpeed) {
	SetField(m.Emitter, ctx, "speed", &m.Speed, speed, m)
}

func (m *MIDIPortState) SetPresent(ctx context.Context, present bool) {
	SetField(m.Emitter, ctx, "present", &m.Present, present, m)
}

// MIDIState owns the set of enumerated MIDI ports (spec.md §3's "ports
// are owned by the MIDIState").
type MIDIState struct {
	Emitter

	UDCConfig int

	ports map[string]*MIDIPortState
	order []string
}

func NewMIDIState(emitter Emitter) *MIDIState {
	return &MIDIState{
		Emitter: emitter,
		ports:   make(map[string]*MIDIPortState),
	}
}

// Port returns the state for portID, creating it (with defaults) if this
// is the first time it has been seen.
func (s *MIDIState) Port(portID, name string) *MIDIPortState {
	if p, ok := s.ports[portID]; ok {
		return p
	}

	p := NewMIDIPortState(s.Emitter.Child("port").Child(portID), portID, name)
	s.ports[portID] = p
	s.order = append(s.order, portID)

	return p
}

// Ports returns all known ports in discovery order.
func (s *MIDIState) Ports() []*MIDIPortState {
	out := make([]*MIDIPortState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.ports[id])
	}

	return out
}

// UpdatePortStates implements spec.md §4.6's
// "MIDIState.update_port_states()", called when the mdev layer reports a
// MIDI port add or remove. present lists the ids of ports currently
// attached; ports previously seen but absent are marked !Present rather
// than forgotten, so their configuration survives a hot-unplug/replug
// cycle (spec.md §3's persistence-glue responsibility for per-port
// config).
func (s *MIDIState) UpdatePortStates(ctx context.Context, present map[string]string) {
	seen := make(map[string]bool, len(present))

	for id, name := range present {
		seen[id] = true
		s.Port(id, name).SetPresent(ctx, true)
	}

	for _, id := range s.order {
		if !seen[id] {
			s.ports[id].SetPresent(ctx, false)
		}
	}
}

func (s *MIDIState) SetUDCConfig(ctx context.Context, v int) {
	SetField(s.Emitter, ctx, "udc_config", &s.UDCConfig, v, s)
}
