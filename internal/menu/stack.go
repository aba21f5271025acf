package menu

import (
	"context"

	"github.com/midigurdy/core/internal/state"
)

// Stack is the menu page stack of spec.md §4.8. It is not itself
// goroutine-safe; callers drive it only from the dispatcher's single
// consumer thread, matching the rest of the reactive chain.
type Stack struct {
	pages []Page
	lock  *state.Lock
}

// NewStack returns an empty stack using lock for LockState's modal
// overlay semantics.
func NewStack(lock *state.Lock) *Stack {
	return &Stack{lock: lock}
}

// Current returns the top page, or nil if the stack is empty.
func (s *Stack) Current() Page {
	if len(s.pages) == 0 {
		return nil
	}

	return s.pages[len(s.pages)-1]
}

// Push shows page on top of the stack.
func (s *Stack) Push(ctx context.Context, page Page) {
	s.pages = append(s.pages, page)
	page.Show(ctx)
}

// Pop hides and removes the top page. If upto is non-nil, pages are
// popped until upto is the new top (or the stack is empty); upto
// itself is not popped.
func (s *Stack) Pop(ctx context.Context, upto Page) {
	for len(s.pages) > 0 {
		top := s.pages[len(s.pages)-1]

		if upto != nil && top == upto {
			return
		}

		s.pages = s.pages[:len(s.pages)-1]
		top.Hide(ctx)

		if upto == nil {
			return
		}
	}
}

// Goto clears the stack and pushes page, per spec.md §4.8 ("goto(page)
// = clear + push").
func (s *Stack) Goto(ctx context.Context, page Page) {
	for len(s.pages) > 0 {
		top := s.pages[len(s.pages)-1]
		s.pages = s.pages[:len(s.pages)-1]
		top.Hide(ctx)
	}

	s.Push(ctx, page)
}

// Message pushes a MessagePage showing text for timeoutSeconds (0 =
// no auto-dismiss), optionally as a popup (drawn over the current page
// rather than replacing it) and/or modal (blocking further input
// until dismissed).
func (s *Stack) Message(ctx context.Context, text string, timeoutSeconds int, popup, modal bool) {
	s.Push(ctx, NewMessagePage(text, timeoutSeconds, popup, modal))
}

// LockState combines state.Lock's modal-overlay announcement with an
// automatic pop on return (spec.md §4.8: "combines state.lock(msg)
// ... with an automatic pop").
func (s *Stack) LockState(ctx context.Context, message string, fn func(ctx context.Context)) {
	s.lock.With(ctx, message, func(locked context.Context) {
		depth := len(s.pages)

		fn(locked)

		for len(s.pages) > depth {
			s.Pop(locked, nil)
		}
	})
}

// Dispatch offers ev to the current page; if unconsumed, the caller
// (the dispatcher) proceeds to global input-event policy (spec.md
// §4.7 step 2/3).
func (s *Stack) Dispatch(ctx context.Context, ev InputEvent) bool {
	cur := s.Current()
	if cur == nil {
		return false
	}

	return cur.HandleInput(ctx, ev)
}

// DeliverState forwards a queued state event to every page that
// declared interest in name, topmost first.
func (s *Stack) DeliverState(ctx context.Context, name string, payload map[string]any) {
	for i := len(s.pages) - 1; i >= 0; i-- {
		p := s.pages[i]

		for _, want := range p.StateEvents() {
			if want == name {
				p.OnState(ctx, name, payload)
				break
			}
		}
	}
}

// Sweep is the 1Hz idle-timeout sweeper's tick: if the current page
// declares a positive IdleTimeoutSeconds and idleSeconds has elapsed
// since the last handled input, Timeout fires.
func (s *Stack) Sweep(ctx context.Context, idleSeconds int) {
	cur := s.Current()
	if cur == nil {
		return
	}

	timeout := cur.IdleTimeoutSeconds()
	if timeout > 0 && idleSeconds >= timeout {
		cur.Timeout(ctx)
	}
}
