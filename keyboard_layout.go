package main

// Computer keys laid out like one octave of a piano: the home row plays the
// white keys, the row above the black ones.
const NOTE_KEY_LAYOUT = "awsedftgyhujk"

const (
	KEYBOARD_BASE_KEY = 60
	KEYBOARD_VELOCITY = 100
	KEYBOARD_MIN_BASE = 0
	KEYBOARD_MAX_BASE = MIDI_KEY_COUNT - len(NOTE_KEY_LAYOUT)
)

// noteForKey maps a layout key to a MIDI key given the current octave base.
func noteForKey(r rune, base int) (uint8, bool) {
	for i, k := range NOTE_KEY_LAYOUT {
		if k == r {
			return uint8(base + i), true
		}
	}
	return 0, false
}

// shiftOctave moves base by a whole octave, staying inside the MIDI range.
func shiftOctave(base, octaves int) int {
	next := base + 12*octaves
	if next < KEYBOARD_MIN_BASE || next > KEYBOARD_MAX_BASE {
		return base
	}
	return next
}
