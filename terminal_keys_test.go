package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteForKey(t *testing.T) {
	key, ok := noteForKey('a', 60)
	require.True(t, ok)
	assert.Equal(t, uint8(60), key)

	key, ok = noteForKey('k', 60)
	require.True(t, ok)
	assert.Equal(t, uint8(72), key)

	_, ok = noteForKey('p', 60)
	assert.False(t, ok)
}

func TestShiftOctave(t *testing.T) {
	assert.Equal(t, 72, shiftOctave(60, 1))
	assert.Equal(t, 48, shiftOctave(60, -1))
	assert.Equal(t, 0, shiftOctave(0, -1), "stays inside the MIDI range")
	assert.Equal(t, 108, shiftOctave(108, 1))
}

func TestNoteKeyboard(t *testing.T) {
	s := newTestSynth(t)
	k := newNoteKeyboard(newTestController(t, s, nil, nil))

	assert.False(t, k.handleKey('h'))
	assert.Equal(t, keyFrequency(69), s.Snapshot().Osc1.Frequency)
	assert.True(t, k.holding)

	// a new note replaces the held one
	assert.False(t, k.handleKey('K'))
	assert.Equal(t, keyFrequency(72), s.Snapshot().Osc1.Frequency)
	assert.False(t, s.envelope.released)

	assert.False(t, k.handleKey(' '))
	assert.True(t, s.envelope.released)
	assert.False(t, k.holding)

	assert.False(t, k.handleKey('x'))
	assert.Equal(t, 72, k.base)
	assert.False(t, k.handleKey('a'))
	assert.Equal(t, keyFrequency(72), s.Snapshot().Osc1.Frequency)

	assert.False(t, k.handleKey('?'))
	assert.True(t, k.handleKey('q'))
	assert.True(t, s.envelope.released, "quitting releases the held note")
}

func TestNoteKeyboard_CtrlCQuits(t *testing.T) {
	s := newTestSynth(t)
	k := newNoteKeyboard(newTestController(t, s, nil, nil))
	assert.True(t, k.handleKey(KEY_CTRL_C))
}
