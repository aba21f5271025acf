package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMdevLine(t *testing.T) {
	rec, ok := parseMdevLine("add usb-1 sound rawmidi0\n")
	require.True(t, ok)
	require.NotNil(t, rec.Mdev)

	assert.Equal(t, MdevAdd, rec.Mdev.Action)
	assert.Equal(t, "usb-1", rec.Mdev.Source)
	assert.Equal(t, "sound", rec.Mdev.Subsystem)
	assert.Equal(t, "rawmidi0", rec.Mdev.Device)
}

func TestParseMdevLineMalformed(t *testing.T) {
	_, ok := parseMdevLine("not enough fields\n")
	assert.False(t, ok)
}
