package input

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeEvdevRecord(secs, usecs int64, typ, code uint16, value int32) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, secs)
	binary.Write(buf, binary.LittleEndian, usecs)
	binary.Write(buf, binary.LittleEndian, typ)
	binary.Write(buf, binary.LittleEndian, code)
	binary.Write(buf, binary.LittleEndian, value)

	return buf.Bytes()
}

func TestDecodeEvdevRecordTimestamp(t *testing.T) {
	raw := encodeEvdevRecord(5, 250_000, 1, 30, 1)

	rec, ok := decodeEvdevRecord(raw)
	require.True(t, ok)

	assert.Equal(t, int64(5*1_000_000+250_000), rec.TimestampUS)
	assert.EqualValues(t, 1, rec.EvdevType)
	assert.EqualValues(t, 30, rec.EvdevCode)
	assert.Equal(t, 1, rec.Value)
}

func TestEvdevMappingLastDuplicateWins(t *testing.T) {
	m := NewEvdevMapping(nil)
	raw := EvdevMapKey{Type: 1, Code: 30, Value: 1}

	m.BindKey(raw, KeyTop1, ActionDown)
	m.BindKey(raw, KeyTop2, ActionDown)

	got, ok := m.lookup(raw)
	require.True(t, ok)
	assert.Equal(t, KeyTop2, got.key)
}

func TestEventDevSourceMap(t *testing.T) {
	m := NewEvdevMapping(nil)
	raw := EvdevMapKey{Type: 1, Code: 30, Value: 1}
	m.BindKey(raw, KeyTop1, ActionDown)

	src := NewEventDevSource("/dev/input/eventX", m, false, nil)

	rec := RawRecord{EvdevType: 1, EvdevCode: 30, Value: 1, TimestampUS: 42}
	ev := src.Map(rec)
	require.NotNil(t, ev)
	assert.Equal(t, KeyTop1, ev.Name)
	assert.Equal(t, ActionDown, ev.Action)
	assert.Equal(t, int64(42), ev.TimestampUS)
}

func TestEventDevSourceMapUnmapped(t *testing.T) {
	m := NewEvdevMapping(nil)
	src := NewEventDevSource("/dev/input/eventX", m, false, nil)

	ev := src.Map(RawRecord{EvdevType: 9, EvdevCode: 9, Value: 9})
	assert.Nil(t, ev)
}
