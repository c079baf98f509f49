package main

import (
	"unicode"

	"gitlab.com/gomidi/midi/v2"
)

const (
	KEY_CTRL_C      = 0x03
	KEY_QUIT        = 'q'
	KEY_RELEASE     = ' '
	KEY_OCTAVE_DOWN = 'z'
	KEY_OCTAVE_UP   = 'x'
)

// noteKeyboard turns single key bytes into note messages. A terminal sends no
// key-up events, so each new note releases the one before it and space
// releases the held note.
type noteKeyboard struct {
	ctrl    *MIDIController
	base    int
	held    uint8
	holding bool
}

func newNoteKeyboard(ctrl *MIDIController) *noteKeyboard {
	return &noteKeyboard{ctrl: ctrl, base: KEYBOARD_BASE_KEY}
}

func (k *noteKeyboard) release() {
	if !k.holding {
		return
	}
	k.holding = false
	_ = k.ctrl.HandleMessage(midi.NoteOff(0, k.held))
}

// handleKey processes one key and reports whether the user asked to quit.
func (k *noteKeyboard) handleKey(b byte) bool {
	r := unicode.ToLower(rune(b))
	switch r {
	case KEY_CTRL_C, KEY_QUIT:
		k.release()
		return true
	case KEY_RELEASE:
		k.release()
	case KEY_OCTAVE_DOWN:
		k.base = shiftOctave(k.base, -1)
	case KEY_OCTAVE_UP:
		k.base = shiftOctave(k.base, 1)
	default:
		note, ok := noteForKey(r, k.base)
		if !ok {
			return false
		}
		k.release()
		k.held, k.holding = note, true
		_ = k.ctrl.HandleMessage(midi.NoteOn(0, note, KEYBOARD_VELOCITY))
	}
	return false
}
