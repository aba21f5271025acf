// Command mgsysinfo is a small companion tool to mgurdyd (spec.md §1's
// "mgmessage/mgsysinfo-style companion tools"): it reads the same INI
// config as the daemon, queries the sysfs System adapter directly
// (without starting the dispatcher, HTTP server or any input source),
// and prints the instrument's current power/version state as JSON.
// Useful for a boot-time health check or a support bundle, run
// standalone against a live or stopped instrument.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/config"
	"github.com/midigurdy/core/internal/version"
)

// sysInfo is the JSON shape printed to stdout.
type sysInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	ACOnline       bool   `json:"ac_online"`
	USBOnline      bool   `json:"usb_online"`
	BatteryMV      int    `json:"battery_millivolts"`
	UDCConfig      int    `json:"udc_config"`
	PowerReadError string `json:"power_read_error,omitempty"`
	UDCReadError   string `json:"udc_read_error,omitempty"`
}

func main() {
	fs := pflag.NewFlagSet("mgsysinfo", pflag.ExitOnError)
	flags := config.BindFlags(fs)
	timeout := fs.Duration("timeout", 2*time.Second, "maximum time to wait for a sysfs read")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*flags.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mgsysinfo: fatal:", err)
		os.Exit(2)
	}

	cfg = config.ApplyFlags(cfg, flags)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	info := collect(ctx, adapters.NewSysfsSystem(cfg.System))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(info); err != nil {
		fmt.Fprintln(os.Stderr, "mgsysinfo: fatal:", err)
		os.Exit(1)
	}
}

func collect(ctx context.Context, sys *adapters.SysfsSystem) sysInfo {
	out := sysInfo{
		Name:    "mgurdyd",
		Version: version.Current().Version,
	}

	ac, usb, mv, err := sys.ReadPowerState(ctx)
	if err != nil {
		out.PowerReadError = err.Error()
	} else {
		out.ACOnline = ac
		out.USBOnline = usb
		out.BatteryMV = mv
	}

	udc, err := sys.ReadUDCConfig(ctx)
	if err != nil {
		out.UDCReadError = err.Error()
	} else {
		out.UDCConfig = udc
	}

	return out
}
