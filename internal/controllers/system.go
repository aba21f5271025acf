package controllers

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

// SystemController reacts to the amp mixer volume, backlight
// brightness, per-string LED, and UDC config concerns of spec.md §4.9's
// SystemController bullet. It is the sole caller of adapters.System.
type SystemController struct {
	tree   *state.Tree
	system adapters.System
	log    *log.Logger

	token int
}

// NewSystemController wires a SystemController to tree's bus.
func NewSystemController(tree *state.Tree, system adapters.System, logger *log.Logger) *SystemController {
	c := &SystemController{tree: tree, system: system, log: logger}
	c.token = tree.Bus.RegisterAll(c.onEvent)

	return c
}

func (c *SystemController) Close() { c.tree.Bus.Unregister(c.token) }

func (c *SystemController) onEvent(ctx context.Context, name string, data signalbus.Payload) {
	switch name {
	case "active:preset:main_volume:changed":
		c.pushVolume(ctx)
		return
	case "ui:brightness:changed":
		c.pushBrightness(ctx)
		return
	case "ui:string_group:changed", "active:preset:changed":
		c.updateStringLEDs(ctx)
		return
	case "mdev:udc":
		c.refreshUDCConfig(ctx)
		return
	}

	if _, ok := data["sender"].(*state.Voice); ok {
		attr, _ := data["attr"].(string)
		if attr == "muted" || attr == "soundfont_id" {
			c.updateStringLEDs(ctx)
		}
	}
}

func (c *SystemController) pushVolume(ctx context.Context) {
	if err := c.system.SetMixerVolume(ctx, c.tree.Active.MainVolume); err != nil {
		c.logErr(err, "set_mixer_volume")
	}
}

func (c *SystemController) pushBrightness(ctx context.Context) {
	if err := c.system.SetBacklight(ctx, c.tree.UI.Brightness); err != nil {
		c.logErr(err, "set_backlight")
	}
}

// updateStringLEDs lights LEDs 1..3 (spec.md §6's led_brightness_[1..3]
// config paths) for the trompette/melody/drone voice currently selected
// by ui.string_group, one LED per voice type (spec.md §4.9: "on active
// voice silent/unsilent -> LED on/off"). Recomputed wholesale rather
// than per voice, since a string_group change swaps which voice each
// LED even tracks.
func (c *SystemController) updateStringLEDs(ctx context.Context) {
	group := c.tree.UI.StringGroup

	voices := [3]*state.Voice{
		c.tree.Active.Trompette[group],
		c.tree.Active.Melody[group],
		c.tree.Active.Drone[group],
	}

	for i, v := range voices {
		if err := c.system.SetLED(ctx, i+1, !v.IsSilent()); err != nil {
			c.logErr(err, "set_led")
		}
	}
}

// refreshUDCConfig implements "on mdev:udc -> cache UDC config": re-read
// the gadget config index from the adapter and store it on the MIDI
// state, which is the value obj_by_path exposes as midi.udc_config.
func (c *SystemController) refreshUDCConfig(ctx context.Context) {
	cfg, err := c.system.ReadUDCConfig(ctx)
	if err != nil {
		c.logErr(err, "read_udc_config")
		return
	}

	c.tree.MIDI.SetUDCConfig(ctx, cfg)
}

func (c *SystemController) logErr(err error, op string) {
	if c.log == nil {
		return
	}

	c.log.Warn("system controller: device error", "op", op, "err", err)
}
