// Package input implements the dynamic-typed input source model of
// spec.md §4.4: EventDev, MIDI port, and Mdev sources unified behind a
// Source interface and multiplexed by an InputManager poll loop.
package input

// Key is a named physical or logical input control (spec.md §4.5).
type Key string

const (
	KeySelect  Key = "select"
	KeyBack    Key = "back"
	KeyFn1     Key = "fn1"
	KeyFn2     Key = "fn2"
	KeyFn3     Key = "fn3"
	KeyFn4     Key = "fn4"
	KeyTop1    Key = "top1"
	KeyTop2    Key = "top2"
	KeyTop3    Key = "top3"
	KeyMod1    Key = "mod1"
	KeyMod2    Key = "mod2"
	KeyEncoder Key = "encoder"
)

// Action is the classification a key event carries (spec.md §4.5):
// down/up come from the matrix driver, short/long from an external
// debouncer after release.
type Action string

const (
	ActionDown  Action = "down"
	ActionUp    Action = "up"
	ActionShort Action = "short"
	ActionLong  Action = "long"
)

// Event is a mapped input event delivered to the dispatcher's input
// queue. TimestampUS is microseconds, matching EventDev's
// secs*1e6+usecs derivation.
type Event struct {
	Name        Key
	Action      Action
	Value       int // encoder delta (-1/+1), or raw value for other kinds
	TimestampUS int64
	Source      string // originating source name, for debug logging
}

// MessageType is a MIDI channel-voice message kind (spec.md §4.4).
type MessageType string

const (
	NoteOff        MessageType = "note_off"
	NoteOn         MessageType = "note_on"
	PolyPressure   MessageType = "poly_pressure"
	ControlChange  MessageType = "control_change"
	ProgramChange  MessageType = "program_change"
	ChannelPressure MessageType = "channel_pressure"
	PitchBend      MessageType = "pitch_bend"
)

// MIDIMessage is a decoded channel-voice message.
type MIDIMessage struct {
	Channel int
	Name    MessageType
	Arg1    int
	Arg2    int // only meaningful for two-data-byte messages
}

// MdevAction is the hotplug action named in an Mdev line record.
type MdevAction string

const (
	MdevAdd    MdevAction = "add"
	MdevRemove MdevAction = "remove"
	MdevChange MdevAction = "change"
)

// MdevEvent is a hotplug notification (spec.md §4.4): "<action>
// <source> <subsystem> <device>".
type MdevEvent struct {
	Action    MdevAction
	Source    string
	Subsystem string
	Device    string
}
