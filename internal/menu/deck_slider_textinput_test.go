package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckCyclesOnNextKey(t *testing.T) {
	a := &recordingPage{name: "a"}
	b := &recordingPage{name: "b"}
	d := NewDeck("top1", a, b)
	ctx := context.Background()

	d.Show(ctx)
	assert.True(t, a.shown)

	ok := d.HandleInput(ctx, InputEvent{Name: "top1", Action: "short"})
	require.True(t, ok)
	assert.True(t, a.hidden)
	assert.True(t, b.shown)
}

func TestDeckOffersUnrecognizedEventToChild(t *testing.T) {
	a := &recordingPage{name: "a", handles: true}
	d := NewDeck("top1", a)

	ok := d.HandleInput(context.Background(), InputEvent{Name: "select", Action: "short"})
	assert.True(t, ok)
}

func TestSliderClampsAndNotifies(t *testing.T) {
	var got int
	s := NewSlider("gain", 50, 0, 100, func(ctx context.Context, v int) { got = v })

	s.HandleInput(context.Background(), InputEvent{Name: "encoder", Value: 1, TimestampUS: 0})
	assert.Equal(t, 51, s.Value)
	assert.Equal(t, 51, got)
}

func TestSliderIgnoresNonEncoderEvents(t *testing.T) {
	s := NewSlider("gain", 50, 0, 100, nil)

	ok := s.HandleInput(context.Background(), InputEvent{Name: "select", Action: "short"})
	assert.False(t, ok)
}

func TestTextInputSaveAndDelete(t *testing.T) {
	var saved string

	p := NewTextInputPage("AB", func(ctx context.Context, text string) { saved = text })
	ctx := context.Background()

	p.HandleInput(ctx, InputEvent{Name: "back", Action: "short"})
	assert.Equal(t, "B", p.Text())

	p.HandleInput(ctx, InputEvent{Name: "select", Action: "short"})
	assert.Equal(t, "B", saved)
}

func TestTextInputEncoderCyclesChar(t *testing.T) {
	p := NewTextInputPage(" ", nil)
	ctx := context.Background()

	p.HandleInput(ctx, InputEvent{Name: "encoder", Value: 1})
	assert.Equal(t, "A", p.Text())
}
