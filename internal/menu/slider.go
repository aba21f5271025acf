package menu

import (
	"context"
	"fmt"

	"github.com/midigurdy/core/internal/input"
)

// Slider is a single-value page driven by the encoder, with
// acceleration per spec.md §4.5 (internal/input.EncoderAccelerator).
type Slider struct {
	BasePage

	Label    string
	Value    int
	Min, Max int

	OnChange func(ctx context.Context, value int)

	accel input.EncoderAccelerator
}

func NewSlider(label string, value, min, max int, onChange func(ctx context.Context, value int)) *Slider {
	return &Slider{Label: label, Value: value, Min: min, Max: max, OnChange: onChange}
}

func (s *Slider) Show(ctx context.Context) { s.accel.Reset() }

func (s *Slider) HandleInput(ctx context.Context, ev InputEvent) bool {
	if ev.Name != "encoder" {
		return false
	}

	delta := s.accel.Step(ev.Value, ev.TimestampUS)

	next := s.Value + delta
	if next < s.Min {
		next = s.Min
	}

	if next > s.Max {
		next = s.Max
	}

	if next != s.Value {
		s.Value = next

		if s.OnChange != nil {
			s.OnChange(ctx, next)
		}
	}

	return true
}

func (s *Slider) Render(ctx context.Context, d Display) {
	d.Clear(ctx)
	d.Puts(ctx, 0, 0, fmt.Sprintf("%s: %d", s.Label, s.Value))
	d.Update(ctx)
}
