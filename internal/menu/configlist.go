package menu

import (
	"context"
	"fmt"
)

// ListItemKind distinguishes the three ConfigList item variants of
// spec.md §4.8.
type ListItemKind int

const (
	ItemValue ListItemKind = iota
	ItemBool
	ItemPopup
)

// ListItem is one row of a ConfigList.
type ListItem struct {
	Label string
	Kind  ListItemKind

	// Value-kind fields.
	Value    int
	Min, Max int
	Step     int
	OnChange func(ctx context.Context, value int)

	// Bool-kind fields.
	Bool       bool
	OnToggle   func(ctx context.Context, value bool)

	// Popup-kind fields: Activate is called on select/short.
	Activate func(ctx context.Context)
}

// Text renders the item's current display value, used by Render.
func (it ListItem) Text() string {
	switch it.Kind {
	case ItemBool:
		if it.Bool {
			return it.Label + ": on"
		}

		return it.Label + ": off"
	case ItemPopup:
		return it.Label + " >"
	default:
		return fmt.Sprintf("%s: %d", it.Label, it.Value)
	}
}

// ConfigList is a scrollable, windowed list of ListItems with a cursor
// (spec.md §4.8).
type ConfigList struct {
	BasePage

	Items []ListItem

	cursor     int
	windowSize int
	windowTop  int
}

// NewConfigList constructs a list showing at most windowSize rows at a
// time.
func NewConfigList(windowSize int, items []ListItem) *ConfigList {
	return &ConfigList{Items: items, windowSize: windowSize}
}

func (c *ConfigList) clampWindow() {
	if c.cursor < c.windowTop {
		c.windowTop = c.cursor
	}

	if c.cursor >= c.windowTop+c.windowSize {
		c.windowTop = c.cursor - c.windowSize + 1
	}
}

// HandleInput drives cursor movement (mod1/mod2-independent: select
// activates, back is left unconsumed so the caller can pop) and
// encoder adjustment of the highlighted value item.
func (c *ConfigList) HandleInput(ctx context.Context, ev InputEvent) bool {
	if len(c.Items) == 0 {
		return false
	}

	item := &c.Items[c.cursor]

	switch {
	case ev.Name == "encoder":
		switch item.Kind {
		case ItemValue:
			next := item.Value + ev.Value*item.stepOrOne()
			if next < item.Min {
				next = item.Min
			}

			if next > item.Max {
				next = item.Max
			}

			if next != item.Value {
				item.Value = next

				if item.OnChange != nil {
					item.OnChange(ctx, next)
				}
			}
		default:
			if ev.Value > 0 {
				c.cursor = (c.cursor + 1) % len(c.Items)
			} else {
				c.cursor = (c.cursor - 1 + len(c.Items)) % len(c.Items)
			}

			c.clampWindow()
		}

		return true
	case ev.Name == "select" && ev.Action == "short":
		switch item.Kind {
		case ItemBool:
			item.Bool = !item.Bool

			if item.OnToggle != nil {
				item.OnToggle(ctx, item.Bool)
			}
		case ItemPopup:
			if item.Activate != nil {
				item.Activate(ctx)
			}
		}

		return true
	}

	return false
}

func (it ListItem) stepOrOne() int {
	if it.Step == 0 {
		return 1
	}

	return it.Step
}

// VisibleRange returns [windowTop, windowTop+windowSize) clamped to the
// item count, for Render implementations.
func (c *ConfigList) VisibleRange() (int, int) {
	end := c.windowTop + c.windowSize
	if end > len(c.Items) {
		end = len(c.Items)
	}

	return c.windowTop, end
}

func (c *ConfigList) Cursor() int { return c.cursor }

func (c *ConfigList) Render(ctx context.Context, d Display) {
	d.Clear(ctx)

	top, end := c.VisibleRange()

	for i := top; i < end; i++ {
		y := (i - top) * 10

		text := c.Items[i].Text()
		if i == c.cursor {
			text = "> " + text
		}

		d.Puts(ctx, 0, y, text)
	}

	d.Update(ctx)
}
