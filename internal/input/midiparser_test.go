package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMIDIParserTwoDataByteMessage(t *testing.T) {
	p := &midiParser{}

	msgs := p.FeedAll([]byte{0x90, 0x40, 0x7f}) // note_on ch0, note 64, vel 127
	assert.Equal(t, []MIDIMessage{{Channel: 0, Name: NoteOn, Arg1: 0x40, Arg2: 0x7f}}, msgs)
}

func TestMIDIParserRunningStatus(t *testing.T) {
	p := &midiParser{}

	// One status byte, then two more note pairs reusing running status.
	msgs := p.FeedAll([]byte{0x90, 0x40, 0x7f, 0x41, 0x60, 0x42, 0x10})
	assert.Equal(t, []MIDIMessage{
		{Channel: 0, Name: NoteOn, Arg1: 0x40, Arg2: 0x7f},
		{Channel: 0, Name: NoteOn, Arg1: 0x41, Arg2: 0x60},
		{Channel: 0, Name: NoteOn, Arg1: 0x42, Arg2: 0x10},
	}, msgs)
}

func TestMIDIParserOneDataByteMessage(t *testing.T) {
	p := &midiParser{}

	msgs := p.FeedAll([]byte{0xC3, 12}) // program_change ch3, program 12
	assert.Equal(t, []MIDIMessage{{Channel: 3, Name: ProgramChange, Arg1: 12}}, msgs)
}

func TestMIDIParserRealtimeDoesNotResetRunningStatus(t *testing.T) {
	p := &midiParser{}

	// 0xF8 (timing clock) interleaved mid-message must be ignored.
	msgs := p.FeedAll([]byte{0x90, 0x40, 0xF8, 0x7f})
	assert.Equal(t, []MIDIMessage{{Channel: 0, Name: NoteOn, Arg1: 0x40, Arg2: 0x7f}}, msgs)
}

func TestMIDIParserSystemCommonClearsStatus(t *testing.T) {
	p := &midiParser{}

	msgs := p.FeedAll([]byte{0x90, 0x40, 0x7f, 0xF0, 0x01, 0x02, 0xF7, 0x41, 0x60})
	// After the system-exclusive run, running status is gone, so the
	// trailing bytes produce nothing.
	assert.Equal(t, []MIDIMessage{{Channel: 0, Name: NoteOn, Arg1: 0x40, Arg2: 0x7f}}, msgs)
}

// TestMIDIParserByteBoundaryInvariance is spec.md §8 property 7: feeding
// a stream in arbitrary chunk sizes yields the same decoded messages as
// feeding it whole.
func TestMIDIParserByteBoundaryInvariance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		stream := genMIDIStream(rt)

		whole := (&midiParser{}).FeedAll(stream)

		chunked := chunkedFeed(rt, stream)

		assert.Equal(t, whole, chunked)
	})
}

func genMIDIStream(rt *rapid.T) []byte {
	n := rapid.IntRange(1, 20).Draw(rt, "n")

	var out []byte

	statuses := []byte{0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0}

	for i := 0; i < n; i++ {
		kind := rapid.IntRange(0, 2).Draw(rt, "kind")

		switch kind {
		case 0: // fresh status + data bytes
			status := statuses[rapid.IntRange(0, len(statuses)-1).Draw(rt, "status")]
			out = append(out, status)
			out = append(out, byte(rapid.IntRange(0, 127).Draw(rt, "d1")))

			if status != 0xC0 && status != 0xD0 {
				out = append(out, byte(rapid.IntRange(0, 127).Draw(rt, "d2")))
			}
		case 1: // bare data byte relying on running status
			out = append(out, byte(rapid.IntRange(0, 127).Draw(rt, "d")))
		case 2: // realtime byte, must not disturb anything
			out = append(out, 0xF8)
		}
	}

	return out
}

func chunkedFeed(rt *rapid.T, stream []byte) []MIDIMessage {
	p := &midiParser{}

	var out []MIDIMessage

	i := 0
	for i < len(stream) {
		n := rapid.IntRange(1, 3).Draw(rt, "chunk")
		if i+n > len(stream) {
			n = len(stream) - i
		}

		out = append(out, p.FeedAll(stream[i:i+n])...)
		i += n
	}

	return out
}
