package menu

import (
	"context"
	"time"
)

// IdleSweeper runs Stack.Sweep once per second (spec.md §5's
// "idle-sweep (1s)" periodic timer), tracking seconds elapsed since
// the last handled input.
type IdleSweeper struct {
	stack        *Stack
	lastInput    time.Time
	tickInterval time.Duration
}

// NewIdleSweeper constructs a sweeper over stack.
func NewIdleSweeper(stack *Stack) *IdleSweeper {
	return &IdleSweeper{stack: stack, tickInterval: time.Second}
}

// Touch stamps the last-input time, called whenever a page consumes an
// event (spec.md §4.7 step 2).
func (s *IdleSweeper) Touch(now time.Time) { s.lastInput = now }

// Run ticks Stack.Sweep once per second until ctx is cancelled.
func (s *IdleSweeper) Run(ctx context.Context, now func() time.Time) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if now != nil {
				t = now()
			}

			idle := int(t.Sub(s.lastInput).Seconds())
			s.stack.Sweep(ctx, idle)
		}
	}
}
