package menu

import "context"

// MessagePage is a simple text notice, optionally a popup (drawn over
// the page beneath it) and/or modal (swallows all input until
// dismissed or timed out). Pushed by Stack.Message.
type MessagePage struct {
	BasePage

	Text           string
	TimeoutSeconds int
	Popup          bool
	Modal          bool

	dismissed bool
}

func NewMessagePage(text string, timeoutSeconds int, popup, modal bool) *MessagePage {
	return &MessagePage{Text: text, TimeoutSeconds: timeoutSeconds, Popup: popup, Modal: modal}
}

func (p *MessagePage) IdleTimeoutSeconds() int { return p.TimeoutSeconds }

func (p *MessagePage) Timeout(ctx context.Context) { p.dismissed = true }

func (p *MessagePage) HandleInput(ctx context.Context, ev InputEvent) bool {
	if p.Modal {
		if ev.Name == "select" || ev.Name == "back" {
			p.dismissed = true
		}

		return true
	}

	return false
}

func (p *MessagePage) Render(ctx context.Context, d Display) {
	d.Puts(ctx, 0, 0, p.Text)
}

// Dismissed reports whether the page asked to be popped (timed out, or
// acknowledged while modal). The stack owner is responsible for
// popping it; MessagePage never pops itself.
func (p *MessagePage) Dismissed() bool { return p.dismissed }
