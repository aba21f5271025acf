package menu

import "context"

// Deck holds an ordered list of child pages and a binding (spec.md
// §4.8) that cycles the visible child; typically bound to top1/top2/top3
// or a dedicated "next" key. Only the currently-selected child's
// HandleInput/Render/StateEvents are active.
type Deck struct {
	BasePage

	Children []Page
	NextKey  string

	index int
}

// NewDeck constructs a deck over children, cycled by nextKey.
func NewDeck(nextKey string, children ...Page) *Deck {
	return &Deck{Children: children, NextKey: nextKey}
}

func (d *Deck) current() Page {
	if len(d.Children) == 0 {
		return nil
	}

	return d.Children[d.index]
}

func (d *Deck) Show(ctx context.Context) {
	if cur := d.current(); cur != nil {
		cur.Show(ctx)
	}
}

func (d *Deck) Hide(ctx context.Context) {
	if cur := d.current(); cur != nil {
		cur.Hide(ctx)
	}
}

func (d *Deck) StateEvents() []string {
	if cur := d.current(); cur != nil {
		return cur.StateEvents()
	}

	return nil
}

func (d *Deck) OnState(ctx context.Context, name string, payload map[string]any) {
	if cur := d.current(); cur != nil {
		cur.OnState(ctx, name, payload)
	}
}

func (d *Deck) IdleTimeoutSeconds() int {
	if cur := d.current(); cur != nil {
		return cur.IdleTimeoutSeconds()
	}

	return 0
}

func (d *Deck) Timeout(ctx context.Context) {
	if cur := d.current(); cur != nil {
		cur.Timeout(ctx)
	}
}

func (d *Deck) Render(ctx context.Context, disp Display) {
	if cur := d.current(); cur != nil {
		cur.Render(ctx, disp)
	}
}

// HandleInput cycles children on NextKey (short press advances,
// wrapping), otherwise offers the event to the current child.
func (d *Deck) HandleInput(ctx context.Context, ev InputEvent) bool {
	if ev.Name == d.NextKey && ev.Action == "short" {
		old := d.current()
		if old != nil {
			old.Hide(ctx)
		}

		d.index = (d.index + 1) % len(d.Children)

		if cur := d.current(); cur != nil {
			cur.Show(ctx)
		}

		return true
	}

	if cur := d.current(); cur != nil {
		return cur.HandleInput(ctx, ev)
	}

	return false
}
