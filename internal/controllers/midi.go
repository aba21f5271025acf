package controllers

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/midigurdy/core/internal/adapters"
	"github.com/midigurdy/core/internal/input"
	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/state"
)

// MIDIController keeps MIDIState's enumerated ports in sync with the
// "midi" mdev subsystem, and opens/closes a hardware MidiInput source
// on the InputManager whenever a port's input_enabled flips (spec.md
// §4.4/§8's S4: "on enabling its input, InputManager registers a
// MidiInput and subsequent MIDI bytes from that port surface as
// events").
type MIDIController struct {
	tree    *state.Tree
	ports   adapters.MIDIPort
	manager *input.InputManager
	log     *log.Logger

	token int
}

// NewMIDIController wires a MIDIController to tree's bus.
func NewMIDIController(tree *state.Tree, ports adapters.MIDIPort, manager *input.InputManager, logger *log.Logger) *MIDIController {
	c := &MIDIController{tree: tree, ports: ports, manager: manager, log: logger}
	c.token = tree.Bus.RegisterAll(c.onEvent)

	return c
}

func (c *MIDIController) Close() { c.tree.Bus.Unregister(c.token) }

func (c *MIDIController) onEvent(ctx context.Context, name string, data signalbus.Payload) {
	if name == "mdev:port_change" {
		if subsystem, _ := data["subsystem"].(string); subsystem == "midi" {
			c.refreshPorts(ctx)
		}

		return
	}

	port, ok := data["sender"].(*state.MIDIPortState)
	if !ok {
		return
	}

	attr, _ := data["attr"].(string)
	if attr != "input_enabled" {
		return
	}

	if port.InputEnabled {
		c.openInput(port)
	} else {
		c.closeInput(port)
	}
}

// refreshPorts re-enumerates the hardware MIDI ports and reconciles
// MIDIState against the current set (spec.md §4.6:
// "MIDIState.update_port_states()").
func (c *MIDIController) refreshPorts(ctx context.Context) {
	list, err := c.ports.ListPorts(ctx)
	if err != nil {
		if c.log != nil {
			c.log.Warn("midi controller: list_ports failed", "err", err)
		}

		return
	}

	present := make(map[string]string, len(list))
	for _, p := range list {
		present[p.ID] = p.Name
	}

	c.tree.MIDI.UpdatePortStates(ctx, present)
}

func (c *MIDIController) openInput(port *state.MIDIPortState) {
	if c.manager == nil {
		return
	}

	if err := c.manager.Register(input.NewMIDIPortSource(port.ID, false)); err != nil && c.log != nil {
		c.log.Warn("midi controller: failed to open input", "port", port.ID, "err", err)
	}
}

func (c *MIDIController) closeInput(port *state.MIDIPortState) {
	if c.manager == nil {
		return
	}

	c.manager.Unregister(port.ID)
}
