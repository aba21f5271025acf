package input

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// MdevSource creates a named pipe and turns its line-delimited
// "<action> <source> <subsystem> <device>" records into MdevEvents
// (spec.md §4.4). Pre-existing content at first open is replayed as
// initial events.
type MdevSource struct {
	path  string
	debug bool

	f        *os.File
	reader   *bufio.Reader
	initial  []RawRecord
	replayed bool
}

// NewMdevSource constructs a source backed by a named pipe at path,
// creating it if it does not already exist.
func NewMdevSource(path string, debug bool) *MdevSource {
	return &MdevSource{path: path, debug: debug}
}

func (s *MdevSource) Open() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := unix.Mkfifo(s.path, 0o600); err != nil {
			return fmt.Errorf("mdev: mkfifo %s: %w", s.path, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("mdev: open %s: %w", s.path, err)
	}

	s.f = f
	s.reader = bufio.NewReader(f)

	// Drain whatever lines are already buffered in the pipe so they
	// are replayed as the source's captured initial events.
	for {
		line, err := s.reader.ReadString('\n')
		if line != "" {
			if rec, ok := parseMdevLine(line); ok {
				s.initial = append(s.initial, rec)
			}
		}

		if err != nil {
			break
		}
	}

	return nil
}

func (s *MdevSource) Close() error {
	if s.f == nil {
		return nil
	}

	return s.f.Close()
}

func (s *MdevSource) FD() int {
	if s.f == nil {
		return -1
	}

	return int(s.f.Fd())
}

func (s *MdevSource) Name() string    { return "mdev:" + s.path }
func (s *MdevSource) Filename() string { return s.path }
func (s *MdevSource) Debug() bool     { return s.debug }

// InitialRecords returns (and clears) the records replayed from
// pre-existing pipe content at Open, for the InputManager to flush
// into the output queue before polling begins.
func (s *MdevSource) InitialRecords() []RawRecord {
	if s.replayed {
		return nil
	}

	s.replayed = true
	out := s.initial
	s.initial = nil

	return out
}

func (s *MdevSource) Read(ctx context.Context) ([]RawRecord, error) {
	var out []RawRecord

	for {
		line, err := s.reader.ReadString('\n')
		if line != "" {
			if rec, ok := parseMdevLine(line); ok {
				out = append(out, rec)
			}
		}

		if err != nil {
			return out, nil
		}
	}
}

// Map turns an Mdev raw record into the mdev dispatcher event; the
// caller (InputManager) routes mdev RawRecords to the dispatcher's
// mdev queue directly rather than through the Key/Action Event shape,
// so Map is a no-op for this source.
func (s *MdevSource) Map(rec RawRecord) *Event {
	return nil
}

func parseMdevLine(line string) (RawRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return RawRecord{}, false
	}

	ev := &MdevEvent{
		Action:    MdevAction(fields[0]),
		Source:    fields[1],
		Subsystem: fields[2],
		Device:    fields[3],
	}

	return RawRecord{Mdev: ev}, true
}
