package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSnapshots(t *testing.T) {
	base := DefaultSnapshot()

	assert.Empty(t, diffSnapshots(base, base))

	next := base
	next.Osc2.Frequency = 900
	next.Synth.LFOEnabled = true
	assert.Equal(t, []DisplayPanel{PANEL_OSC2, PANEL_SYNTH}, diffSnapshots(base, next))

	next = base
	next.Envelope.Amplitude = 0.2
	assert.Equal(t, []DisplayPanel{PANEL_ENVELOPE}, diffSnapshots(base, next))
}

func TestPanelTracker_FirstCallReportsAll(t *testing.T) {
	var tr panelTracker
	snap := DefaultSnapshot()

	assert.Equal(t, []DisplayPanel{PANEL_OSC1, PANEL_OSC2, PANEL_LFO, PANEL_ENVELOPE, PANEL_SYNTH}, tr.changed(snap))
	assert.Empty(t, tr.changed(snap))

	snap.LFO.Waveform = WAVE_SQUARE
	assert.Equal(t, []DisplayPanel{PANEL_LFO}, tr.changed(snap))
	assert.Empty(t, tr.changed(snap))
}

func TestPanelTracker_FollowsSynth(t *testing.T) {
	s := newTestSynth(t)
	c := newTestController(t, s, nil, nil)
	var tr panelTracker
	tr.changed(s.Snapshot())

	require.NoError(t, c.ControlChange(MIDI_CC_ENV_SUSTAIN, 10))
	require.NoError(t, c.ControlChange(MIDI_CC_OSC1_AMP, 10))
	assert.Equal(t, []DisplayPanel{PANEL_OSC1, PANEL_ENVELOPE}, tr.changed(s.Snapshot()))
}

func TestPanelLines(t *testing.T) {
	snap := DefaultSnapshot()
	assert.Equal(t, []string{"WAVE sine", "FREQ 440.0 Hz", "AMP  10000"}, panelLines(PANEL_OSC1, snap))
	assert.Equal(t, []string{"LFO   OFF", "SYNC  OFF", "NOISE 0"}, panelLines(PANEL_SYNTH, snap))
	assert.Equal(t, []string{"A 0.10s  D 0.10s", "S 50%   R 1.00s"}, panelLines(PANEL_ENVELOPE, snap))
	assert.Nil(t, panelLines(panelCount, snap))
	assert.Equal(t, "ENVELOPE", PANEL_ENVELOPE.String())
}

func TestWaveformSketch(t *testing.T) {
	sq := waveformSketch(WAVE_SQUARE, 64)
	require.Len(t, sq, 64)
	assert.Greater(t, sq[0], float32(0))
	assert.Less(t, sq[63], float32(0))
}

func TestEnvelopeSketch(t *testing.T) {
	pts := envelopeSketch(EnvelopeParams{Attack: 0.25, Decay: 0.25, Sustain: 0.5, Release: 0.25, Amplitude: 1})
	require.Len(t, pts, 5)
	assert.Equal(t, [2]float32{0, 0}, pts[0])
	assert.InDelta(t, 0.25, pts[1][0], 1e-6)
	assert.InDelta(t, 0.95, pts[1][1], 1e-6)
	assert.InDelta(t, 0.5, pts[2][0], 1e-6)
	assert.InDelta(t, 0.475, pts[2][1], 1e-6)
	assert.InDelta(t, 0.75, pts[3][0], 1e-6)
	assert.Equal(t, [2]float32{1, 0}, pts[4])

	assert.Nil(t, envelopeSketch(EnvelopeParams{}))
}
