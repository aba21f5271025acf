package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigListEncoderAdjustsValueItem(t *testing.T) {
	var got int

	items := []ListItem{
		{Label: "volume", Kind: ItemValue, Value: 50, Min: 0, Max: 100, OnChange: func(ctx context.Context, v int) { got = v }},
	}
	c := NewConfigList(4, items)

	c.HandleInput(context.Background(), InputEvent{Name: "encoder", Value: 1})
	assert.Equal(t, 51, c.Items[0].Value)
	assert.Equal(t, 51, got)
}

func TestConfigListClampsValue(t *testing.T) {
	items := []ListItem{{Label: "v", Kind: ItemValue, Value: 99, Min: 0, Max: 100}}
	c := NewConfigList(4, items)

	c.HandleInput(context.Background(), InputEvent{Name: "encoder", Value: 5})
	assert.Equal(t, 100, c.Items[0].Value)
}

func TestConfigListBoolToggle(t *testing.T) {
	var got bool

	items := []ListItem{{Label: "mute", Kind: ItemBool, OnToggle: func(ctx context.Context, v bool) { got = v }}}
	c := NewConfigList(4, items)

	c.HandleInput(context.Background(), InputEvent{Name: "select", Action: "short"})
	assert.True(t, c.Items[0].Bool)
	assert.True(t, got)
}

func TestConfigListPopupActivate(t *testing.T) {
	activated := false
	items := []ListItem{{Label: "go", Kind: ItemPopup, Activate: func(ctx context.Context) { activated = true }}}
	c := NewConfigList(4, items)

	c.HandleInput(context.Background(), InputEvent{Name: "select", Action: "short"})
	assert.True(t, activated)
}

func TestConfigListEncoderMovesCursorOnNonValueItem(t *testing.T) {
	items := []ListItem{
		{Label: "a", Kind: ItemBool},
		{Label: "b", Kind: ItemBool},
		{Label: "c", Kind: ItemBool},
	}
	c := NewConfigList(2, items)

	c.HandleInput(context.Background(), InputEvent{Name: "encoder", Value: 1})
	assert.Equal(t, 1, c.Cursor())

	top, end := c.VisibleRange()
	assert.True(t, top <= 1 && 1 < end)
}
