package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/midigurdy/core/internal/config"
)

// SysfsSystem is the production System adapter: amp mixer, backlight,
// LEDs, UDC config and power state are all plain sysfs/ALSA-control
// reads and writes, matching the System interface's doc comment. No
// ALSA or GPIO library is retrieved in the pack (see DESIGN.md's
// dropped-dependency notes for go-gpiocdev), so the mixer call shells
// out to amixer the way an embedded init script would, and everything
// else is direct file I/O.
type SysfsSystem struct {
	cfg config.System
}

// NewSysfsSystem builds a System adapter reading/writing the device
// paths named in cfg.
func NewSysfsSystem(cfg config.System) *SysfsSystem {
	return &SysfsSystem{cfg: cfg}
}

func (s *SysfsSystem) SetMixerVolume(ctx context.Context, volume int) error {
	control := s.cfg.ALSAMixer
	if control == "" {
		control = "default"
	}

	cmd := exec.CommandContext(ctx, "amixer", "set", control, fmt.Sprintf("%d%%", volume))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sysfs: amixer set %s %d%%: %w", control, volume, err)
	}

	return nil
}

func (s *SysfsSystem) SetBacklight(ctx context.Context, brightness int) error {
	return writeSysfsInt(s.cfg.BacklightControl, brightness)
}

func (s *SysfsSystem) SetLED(ctx context.Context, index int, on bool) error {
	path := ledPath(s.cfg, index)
	if path == "" {
		return fmt.Errorf("sysfs: no led path configured for index %d", index)
	}

	value := 0
	if on {
		value = 1
	}

	return writeSysfsInt(path, value)
}

func ledPath(cfg config.System, index int) string {
	switch index {
	case 1:
		return cfg.LEDBrightness1
	case 2:
		return cfg.LEDBrightness2
	case 3:
		return cfg.LEDBrightness3
	default:
		return ""
	}
}

func (s *SysfsSystem) ReadPowerState(ctx context.Context) (acOnline, usbOnline bool, batteryMillivolts int, err error) {
	ac, err := readSysfsBool(s.cfg.PowerStateAC)
	if err != nil {
		return false, false, 0, err
	}

	usb, err := readSysfsBool(s.cfg.PowerStateUSB)
	if err != nil {
		return false, false, 0, err
	}

	microvolts, err := readSysfsInt(s.cfg.BatteryVoltage)
	if err != nil {
		return false, false, 0, err
	}

	return ac, usb, microvolts / 1000, nil
}

func (s *SysfsSystem) ReadUDCConfig(ctx context.Context) (int, error) {
	return readSysfsInt(s.cfg.UDCConfig)
}

// PowerOff invokes the kernel's reboot(2) power-off path, same as the
// standard `poweroff` utility, rather than shelling out to it.
func (s *SysfsSystem) PowerOff(ctx context.Context) error {
	return syscall.Reboot(syscall.LINUX_REBOOT_CMD_POWER_OFF)
}

func writeSysfsInt(path string, value int) error {
	if path == "" {
		return fmt.Errorf("sysfs: no path configured")
	}

	return os.WriteFile(path, []byte(strconv.Itoa(value)), 0o644)
}

func readSysfsInt(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("sysfs: no path configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func readSysfsBool(path string) (bool, error) {
	n, err := readSysfsInt(path)
	if err != nil {
		return false, err
	}

	return n != 0, nil
}
