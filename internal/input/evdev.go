package input

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// evdevRecordSize is the size in bytes of a Linux input_event record on
// a 64-bit kernel: struct timeval{long,long} + u16 type + u16 code +
// s32 value = 8+8+2+2+4 = 24.
const evdevRecordSize = 24

// EvdevMapKey identifies one (type, code, value) triple from the
// kernel's raw event stream.
type EvdevMapKey struct {
	Type  uint16
	Code  uint16
	Value int32
}

// EvdevMapping is the configured table translating raw (type, code,
// value) triples into logical Key/Action or encoder delta pairs. Last
// duplicate registration wins, with a warning (spec.md §4.4).
type EvdevMapping struct {
	entries map[EvdevMapKey]mappedEvent
	log     *log.Logger
}

type mappedEvent struct {
	key    Key
	action Action
	value  int
}

// NewEvdevMapping builds an empty mapping table.
func NewEvdevMapping(logger *log.Logger) *EvdevMapping {
	return &EvdevMapping{entries: make(map[EvdevMapKey]mappedEvent), log: logger}
}

// BindKey registers a key down/up/short/long mapping. Duplicate
// registrations for the same raw triple are allowed; the last one
// wins, matching spec.md §4.4's override rule.
func (m *EvdevMapping) BindKey(raw EvdevMapKey, key Key, action Action) {
	if _, exists := m.entries[raw]; exists && m.log != nil {
		m.log.Warn("evdev mapping overridden", "type", raw.Type, "code", raw.Code, "value", raw.Value)
	}

	m.entries[raw] = mappedEvent{key: key, action: action}
}

// BindEncoder registers a raw triple as an encoder tick carrying value
// (typically -1 or +1).
func (m *EvdevMapping) BindEncoder(raw EvdevMapKey, key Key, value int) {
	if _, exists := m.entries[raw]; exists && m.log != nil {
		m.log.Warn("evdev mapping overridden", "type", raw.Type, "code", raw.Code, "value", raw.Value)
	}

	m.entries[raw] = mappedEvent{key: key, action: ActionDown, value: value}
}

func (m *EvdevMapping) lookup(raw EvdevMapKey) (mappedEvent, bool) {
	e, ok := m.entries[raw]
	return e, ok
}

// EventDevSource reads raw Linux input_event records from a character
// device (spec.md §4.4's EventDev).
type EventDevSource struct {
	path    string
	mapping *EvdevMapping
	debug   bool
	log     *log.Logger

	f   *os.File
	buf []byte // leftover partial-record bytes across reads
}

// NewEventDevSource constructs a source for path, using mapping to
// translate raw triples into Events.
func NewEventDevSource(path string, mapping *EvdevMapping, debug bool, logger *log.Logger) *EventDevSource {
	return &EventDevSource{path: path, mapping: mapping, debug: debug, log: logger}
}

func (s *EventDevSource) Open() error {
	f, err := os.OpenFile(s.path, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("evdev: open %s: %w", s.path, err)
	}

	s.f = f

	return nil
}

func (s *EventDevSource) Close() error {
	if s.f == nil {
		return nil
	}

	return s.f.Close()
}

func (s *EventDevSource) FD() int {
	if s.f == nil {
		return -1
	}

	return int(s.f.Fd())
}

func (s *EventDevSource) Name() string     { return "evdev:" + s.path }
func (s *EventDevSource) Filename() string { return s.path }
func (s *EventDevSource) Debug() bool      { return s.debug }

// Read drains whatever bytes are currently available, decoding
// complete 24-byte records and retaining any trailing partial record
// for the next call.
func (s *EventDevSource) Read(ctx context.Context) ([]RawRecord, error) {
	chunk := make([]byte, 4096)

	n, err := s.f.Read(chunk)
	if err != nil {
		return nil, err
	}

	s.buf = append(s.buf, chunk[:n]...)

	var out []RawRecord

	for len(s.buf) >= evdevRecordSize {
		rec := s.buf[:evdevRecordSize]
		s.buf = s.buf[evdevRecordSize:]

		r, ok := decodeEvdevRecord(rec)
		if ok {
			out = append(out, r)
		}
	}

	return out, nil
}

func decodeEvdevRecord(b []byte) (RawRecord, bool) {
	if len(b) != evdevRecordSize {
		return RawRecord{}, false
	}

	r := bytes.NewReader(b)

	var secs, usecs int64

	if err := binary.Read(r, binary.LittleEndian, &secs); err != nil {
		return RawRecord{}, false
	}

	if err := binary.Read(r, binary.LittleEndian, &usecs); err != nil {
		return RawRecord{}, false
	}

	var typ, code uint16

	var value int32

	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return RawRecord{}, false
	}

	if err := binary.Read(r, binary.LittleEndian, &code); err != nil {
		return RawRecord{}, false
	}

	if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
		return RawRecord{}, false
	}

	return RawRecord{
		EvdevType:   typ,
		EvdevCode:   code,
		Value:       int(value),
		TimestampUS: secs*1_000_000 + usecs,
	}, true
}

// Map looks up rec's raw (type, code, value) triple in the configured
// table.
func (s *EventDevSource) Map(rec RawRecord) *Event {
	raw := EvdevMapKey{Type: rec.EvdevType, Code: rec.EvdevCode, Value: int32(rec.Value)}

	mapped, ok := s.mapping.lookup(raw)
	if !ok {
		if s.debug && s.log != nil {
			s.log.Debug("evdev: unmapped record", "value", rec.Value)
		}

		return nil
	}

	return &Event{
		Name:        mapped.key,
		Action:      mapped.action,
		Value:       mapped.value,
		TimestampUS: rec.TimestampUS,
		Source:      s.Name(),
	}
}
