package input

import "context"

// RawRecord is one decoded unit read from a source before it is mapped
// to an Event; EventDev's is a key-matrix record, MIDI port's a decoded
// MIDIMessage, Mdev's an MdevEvent.
type RawRecord struct {
	// EvdevType/EvdevCode/Value are the raw (type, code, value) triple
	// from an input_event record, used by EventDevSource.Map.
	EvdevType uint16
	EvdevCode uint16
	Value     int

	MIDI *MIDIMessage
	Mdev *MdevEvent

	TimestampUS int64
}

// Source is the capability set every input variant implements (spec.md
// §4.4): open/close/read/map, plus the debug flag and identifying
// name/filename used for logging and for selector bookkeeping.
type Source interface {
	Open() error
	Close() error
	FD() int
	// Read drains whatever is currently available without blocking,
	// returning zero or more decoded records.
	Read(ctx context.Context) ([]RawRecord, error)
	// Map translates one raw record into an Event, or nil if the
	// record has no configured mapping.
	Map(rec RawRecord) *Event

	Name() string
	Filename() string
	Debug() bool
}
