package menu

import "context"

// Page is one entry on the menu stack (spec.md §4.8). Show/Hide manage
// state-event subscription; HandleInput offers an input event to the
// page before global key-action policy runs; OnState delivers a
// queued state event for a name the page declared interest in;
// Timeout fires from the 1Hz idle sweeper once IdleTimeoutSeconds()
// elapses since the last handled input.
type Page interface {
	// StateEvents lists the signal-bus event names this page wants
	// forwarded to OnState while shown.
	StateEvents() []string

	Show(ctx context.Context)
	Hide(ctx context.Context)

	// HandleInput returns true if the page consumed the event, per
	// spec.md §4.7 step 2 ("if handled, last-input-time is stamped and
	// done").
	HandleInput(ctx context.Context, ev InputEvent) bool

	OnState(ctx context.Context, name string, payload map[string]any)

	// IdleTimeoutSeconds is the page's idle_timeout; 0 disables the
	// sweeper for this page.
	IdleTimeoutSeconds() int
	Timeout(ctx context.Context)

	Render(ctx context.Context, d Display)
}

// InputEvent is the page-facing shape of an input-layer event; the
// dispatcher translates internal/input.Event into this before offering
// it to the current page.
type InputEvent struct {
	Name        string
	Action      string
	Value       int
	TimestampUS int64
}

// BasePage provides no-op defaults for the optional parts of Page so
// concrete pages only implement what they actually use.
type BasePage struct{}

func (BasePage) StateEvents() []string                            { return nil }
func (BasePage) Show(ctx context.Context)                         {}
func (BasePage) Hide(ctx context.Context)                         {}
func (BasePage) OnState(ctx context.Context, name string, payload map[string]any) {}
func (BasePage) IdleTimeoutSeconds() int                          { return 0 }
func (BasePage) Timeout(ctx context.Context)                      {}
func (BasePage) Render(ctx context.Context, d Display)            {}
