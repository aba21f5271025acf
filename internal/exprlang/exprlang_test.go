package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEqNe(t *testing.T) {
	eq, err := Parse("channel == 3")
	require.NoError(t, err)

	ok, err := eq.Test(Binding{Channel: 3})
	require.NoError(t, err)
	assert.True(t, ok)

	ne, err := Parse("channel != 3")
	require.NoError(t, err)

	ok, err = ne.Test(Binding{Channel: 3})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRange(t *testing.T) {
	e, err := Parse("range(arg1, 10, 20)")
	require.NoError(t, err)

	ok, err := e.Test(Binding{Arg1: 15})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Test(Binding{Arg1: 25})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParsePlusMinus(t *testing.T) {
	plus, err := Parse("plus(arg1, 5)")
	require.NoError(t, err)

	v, err := plus.Eval(Binding{Arg1: 10})
	require.NoError(t, err)
	assert.Equal(t, 15, v)

	minus, err := Parse("minus(arg1, 5)")
	require.NoError(t, err)

	v, err = minus.Eval(Binding{Arg1: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestParseMIDIPercent(t *testing.T) {
	e, err := Parse("midi_percent(arg2)")
	require.NoError(t, err)

	v, err := e.Eval(Binding{Arg2: 127})
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	v, err = e.Eval(Binding{Arg2: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestParseRejectsUnknownToken(t *testing.T) {
	_, err := Parse("frobnicate(arg1, 5)")
	assert.Error(t, err)
}

func TestParseRejectsMalformedCall(t *testing.T) {
	_, err := Parse("range(arg1, 10)")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("this is not an expression")
	assert.Error(t, err)
}
