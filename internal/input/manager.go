package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

const (
	pollInterval = time.Second         // spec.md §4.4's selector.select(timeout=1s)
	idleSleep    = 500 * time.Millisecond
)

// Output is what the InputManager's run loop delivers: a mapped key/
// encoder Event, or a raw MdevEvent for sources that produce one
// directly (Mdev, UdevSource).
type Output struct {
	Event *Event
	Mdev  *MdevEvent
}

// InputManager owns the registered Source set and drains them on a
// dedicated goroutine, emitting mapped Events and MdevEvents into a
// single output channel (spec.md §4.4).
type InputManager struct {
	log *log.Logger
	out chan Output

	mu      sync.Mutex
	sources map[string]Source
}

// NewInputManager constructs a manager delivering to a buffered output
// channel of the given capacity.
func NewInputManager(logger *log.Logger, outCap int) *InputManager {
	return &InputManager{
		log:     logger,
		out:     make(chan Output, outCap),
		sources: make(map[string]Source),
	}
}

// Output is the channel the dispatcher's main loop reads from.
func (m *InputManager) Output() <-chan Output { return m.out }

// Register opens source and adds it to the poll set, capturing any
// initial events (the Mdev pre-existing-pipe-content replay).
func (m *InputManager) Register(source Source) error {
	if err := source.Open(); err != nil {
		return err
	}

	m.mu.Lock()
	m.sources[source.Filename()] = source
	m.mu.Unlock()

	if mdev, ok := source.(*MdevSource); ok {
		for _, rec := range mdev.InitialRecords() {
			if rec.Mdev != nil {
				m.out <- Output{Mdev: rec.Mdev}
			}
		}
	}

	return nil
}

// Unregister closes and removes the source registered under filename.
func (m *InputManager) Unregister(filename string) {
	m.mu.Lock()
	src, ok := m.sources[filename]
	delete(m.sources, filename)
	m.mu.Unlock()

	if ok {
		src.Close()
	}
}

func (m *InputManager) snapshot() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}

	return out
}

// Run drives the read loop until ctx is cancelled. Each sweep calls
// Read once on every registered source and forwards what it returns,
// then pauses for pollInterval/10; with nothing registered it sleeps
// ~0.5s instead, to avoid a busy spin. A source whose read reports
// ENODEV is unregistered.
func (m *InputManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sources := m.snapshot()

		if len(sources) == 0 {
			time.Sleep(idleSleep)
			continue
		}

		for _, src := range sources {
			recs, err := src.Read(ctx)
			if err != nil {
				if errors.Is(err, unix.ENODEV) {
					if m.log != nil {
						m.log.Warn("input source gone, unregistering", "source", src.Name())
					}

					m.Unregister(src.Filename())
				} else if src.Debug() && m.log != nil {
					m.log.Debug("input source read error", "source", src.Name(), "err", err)
				}

				continue
			}

			for _, rec := range recs {
				if rec.Mdev != nil {
					m.out <- Output{Mdev: rec.Mdev}
					continue
				}

				ev := src.Map(rec)
				if ev == nil {
					if src.Debug() && m.log != nil {
						m.log.Debug("input: unmapped record", "source", src.Name())
					}

					continue
				}

				m.out <- Output{Event: ev}
			}
		}

		time.Sleep(pollInterval / 10) // bounded yield between full sweeps
	}
}
