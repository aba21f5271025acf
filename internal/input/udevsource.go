package input

import (
	"context"
	"fmt"

	"github.com/jochenvg/go-udev"
)

// UdevSource is the alternate production Mdev-shaped source named in
// SPEC_FULL.md §4.4: it watches the kernel's udev netlink monitor for
// ALSA rawmidi and input-subsystem hotplug and translates device
// events into the same MdevEvent shape MdevSource produces, so the
// dispatcher and MIDIState.UpdatePortStates are unaware which producer
// is in use.
type UdevSource struct {
	debug bool

	u       *udev.Udev
	mon     *udev.Monitor
	devices chan *udev.Device
	stop    chan struct{}
}

// NewUdevSource constructs a source watching the "input" and
// "sound" (rawmidi) subsystems.
func NewUdevSource(debug bool) *UdevSource {
	return &UdevSource{u: &udev.Udev{}, debug: debug}
}

func (s *UdevSource) Open() error {
	mon := s.u.NewMonitorFromNetlink("udev")
	if mon == nil {
		return fmt.Errorf("udevsource: failed to create netlink monitor")
	}

	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		return fmt.Errorf("udevsource: filter sound: %w", err)
	}

	if err := mon.FilterAddMatchSubsystem("input"); err != nil {
		return fmt.Errorf("udevsource: filter input: %w", err)
	}

	s.stop = make(chan struct{})

	devices, err := mon.DeviceChan(s.stop)
	if err != nil {
		return fmt.Errorf("udevsource: device chan: %w", err)
	}

	s.mon = mon
	s.devices = devices

	return nil
}

func (s *UdevSource) Close() error {
	if s.stop != nil {
		close(s.stop)
	}

	return nil
}

// FD has no meaning for a channel-based monitor and returns -1; Read
// drains the monitor's channel without blocking instead.
func (s *UdevSource) FD() int { return -1 }

func (s *UdevSource) Name() string    { return "udev" }
func (s *UdevSource) Filename() string { return "" }
func (s *UdevSource) Debug() bool     { return s.debug }

// Read drains every device event currently queued on the monitor
// channel without blocking.
func (s *UdevSource) Read(ctx context.Context) ([]RawRecord, error) {
	var out []RawRecord

	for {
		select {
		case dev, ok := <-s.devices:
			if !ok {
				return out, nil
			}

			if rec, ok := mdevFromUdevDevice(dev); ok {
				out = append(out, rec)
			}
		default:
			return out, nil
		}
	}
}

func mdevFromUdevDevice(dev *udev.Device) (RawRecord, bool) {
	if dev == nil {
		return RawRecord{}, false
	}

	action := MdevAction(dev.Action())
	if action == "" {
		action = MdevChange
	}

	ev := &MdevEvent{
		Action:    action,
		Source:    "udev",
		Subsystem: dev.Subsystem(),
		Device:    dev.Devnode(),
	}

	return RawRecord{Mdev: ev}, true
}

func (s *UdevSource) Map(rec RawRecord) *Event { return nil }
