package input

// midiParser is the streaming, stateful running-status parser of
// spec.md §4.4: a status byte sets (code, channel) and clears arg1;
// two-data-byte messages emit on the second data byte; one-data-byte
// messages (program_change, channel_pressure) emit immediately. Bytes
// >= 0xF8 are realtime ticks and MUST NOT reset running status.
type midiParser struct {
	haveStatus bool
	status     byte
	channel    int
	name       MessageType
	wantArg2   bool
	haveArg1   bool
	arg1       int
}

var oneDataByteTypes = map[MessageType]bool{
	ProgramChange:    true,
	ChannelPressure:  true,
}

func statusToMessageType(status byte) (MessageType, bool) {
	switch status & 0xF0 {
	case 0x80:
		return NoteOff, true
	case 0x90:
		return NoteOn, true
	case 0xA0:
		return PolyPressure, true
	case 0xB0:
		return ControlChange, true
	case 0xC0:
		return ProgramChange, true
	case 0xD0:
		return ChannelPressure, true
	case 0xE0:
		return PitchBend, true
	default:
		return "", false
	}
}

// Feed pushes one incoming byte through the parser, returning a
// decoded message whenever one completes.
func (p *midiParser) Feed(b byte) (MIDIMessage, bool) {
	// System-realtime bytes interleave with any other traffic and must
	// never disturb running status.
	if b >= 0xF8 {
		return MIDIMessage{}, false
	}

	if b&0x80 != 0 {
		// System-common (0xF0..0xF7) bytes are ignored and also do not
		// establish channel-voice running status.
		if b >= 0xF0 {
			p.haveStatus = false
			return MIDIMessage{}, false
		}

		name, ok := statusToMessageType(b)
		if !ok {
			p.haveStatus = false
			return MIDIMessage{}, false
		}

		p.haveStatus = true
		p.status = b
		p.channel = int(b & 0x0F)
		p.name = name
		p.haveArg1 = false
		p.arg1 = 0

		return MIDIMessage{}, false
	}

	if !p.haveStatus {
		// Data byte with no running status: nothing to attach it to.
		return MIDIMessage{}, false
	}

	if oneDataByteTypes[p.name] {
		return MIDIMessage{Channel: p.channel, Name: p.name, Arg1: int(b)}, true
	}

	if !p.haveArg1 {
		p.arg1 = int(b)
		p.haveArg1 = true

		return MIDIMessage{}, false
	}

	msg := MIDIMessage{Channel: p.channel, Name: p.name, Arg1: p.arg1, Arg2: int(b)}
	p.haveArg1 = false
	p.arg1 = 0

	return msg, true
}

// FeedAll pushes every byte in data through the parser, returning all
// messages that completed.
func (p *midiParser) FeedAll(data []byte) []MIDIMessage {
	var out []MIDIMessage

	for _, b := range data {
		if msg, ok := p.Feed(b); ok {
			out = append(out, msg)
		}
	}

	return out
}
