package main

import "gitlab.com/gomidi/midi/v2"

// MIDIFramer cuts a raw MIDI byte stream into complete channel messages.
// It follows running status, drops real-time bytes wherever they appear and
// skips SysEx and system common messages.
type MIDIFramer struct {
	status  byte
	need    int
	data    [2]byte
	n       int
	inSysEx bool
}

// channelDataLength is the number of data bytes following a channel status.
func channelDataLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	}
	return 0
}

// Feed consumes one byte and returns a message when it completes one.
func (f *MIDIFramer) Feed(b byte) (midi.Message, bool) {
	switch {
	case b >= 0xF8:
		return nil, false
	case b == 0xF0:
		f.inSysEx = true
		f.status, f.n = 0, 0
		return nil, false
	case b == 0xF7:
		f.inSysEx = false
		return nil, false
	case b >= 0xF1:
		// system common cancels running status; its data bytes are dropped
		f.inSysEx = false
		f.status, f.n = 0, 0
		return nil, false
	case b&0x80 != 0:
		f.inSysEx = false
		f.status = b
		f.need = channelDataLength(b)
		f.n = 0
		return nil, false
	}

	if f.inSysEx || f.status == 0 {
		return nil, false
	}
	f.data[f.n] = b
	f.n++
	if f.n < f.need {
		return nil, false
	}
	f.n = 0
	msg := make(midi.Message, 1+f.need)
	msg[0] = f.status
	copy(msg[1:], f.data[:f.need])
	return msg, true
}

// Write feeds p and calls emit for each completed message.
func (f *MIDIFramer) Write(p []byte, emit func(midi.Message)) {
	for _, b := range p {
		if msg, ok := f.Feed(b); ok {
			emit(msg)
		}
	}
}
