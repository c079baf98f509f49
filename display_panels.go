package main

import (
	"errors"
	"fmt"
)

// DisplayPanel is one box of the parameter display.
type DisplayPanel int

const (
	PANEL_OSC1 DisplayPanel = iota
	PANEL_OSC2
	PANEL_LFO
	PANEL_ENVELOPE
	PANEL_SYNTH
	panelCount
)

const DISPLAY_POLL_MS = 100

// errQuit is returned by an interactive front end when the user asks to
// leave. It ends the program cleanly.
var errQuit = errors.New("quit requested")

func (p DisplayPanel) String() string {
	switch p {
	case PANEL_OSC1:
		return "OSC1"
	case PANEL_OSC2:
		return "OSC2"
	case PANEL_LFO:
		return "LFO"
	case PANEL_ENVELOPE:
		return "ENVELOPE"
	case PANEL_SYNTH:
		return "SYNTH"
	}
	return fmt.Sprintf("panel(%d)", int(p))
}

// diffSnapshots lists the panels whose parameters differ between old and
// new, in panel order.
func diffSnapshots(old, new Snapshot) []DisplayPanel {
	var changed []DisplayPanel
	if old.Osc1 != new.Osc1 {
		changed = append(changed, PANEL_OSC1)
	}
	if old.Osc2 != new.Osc2 {
		changed = append(changed, PANEL_OSC2)
	}
	if old.LFO != new.LFO {
		changed = append(changed, PANEL_LFO)
	}
	if old.Envelope != new.Envelope {
		changed = append(changed, PANEL_ENVELOPE)
	}
	if old.Synth != new.Synth {
		changed = append(changed, PANEL_SYNTH)
	}
	return changed
}

// panelTracker remembers the last rendered snapshot. The first call reports
// every panel.
type panelTracker struct {
	last   Snapshot
	primed bool
}

func (t *panelTracker) changed(snap Snapshot) []DisplayPanel {
	if !t.primed {
		t.primed = true
		t.last = snap
		all := make([]DisplayPanel, 0, panelCount)
		for p := PANEL_OSC1; p < panelCount; p++ {
			all = append(all, p)
		}
		return all
	}
	changed := diffSnapshots(t.last, snap)
	t.last = snap
	return changed
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// panelLines is the text shown in a panel.
func panelLines(p DisplayPanel, s Snapshot) []string {
	osc := func(o OscillatorParams) []string {
		return []string{
			fmt.Sprintf("WAVE %s", o.Waveform),
			fmt.Sprintf("FREQ %.1f Hz", o.Frequency),
			fmt.Sprintf("AMP  %.0f", o.Amplitude),
		}
	}
	switch p {
	case PANEL_OSC1:
		return osc(s.Osc1)
	case PANEL_OSC2:
		return osc(s.Osc2)
	case PANEL_LFO:
		return osc(s.LFO)
	case PANEL_ENVELOPE:
		return []string{
			fmt.Sprintf("A %.2fs  D %.2fs", s.Envelope.Attack, s.Envelope.Decay),
			fmt.Sprintf("S %.0f%%   R %.2fs", s.Envelope.Sustain*100, s.Envelope.Release),
		}
	case PANEL_SYNTH:
		return []string{
			fmt.Sprintf("LFO   %s", onOff(s.Synth.LFOEnabled)),
			fmt.Sprintf("SYNC  %s", onOff(s.Synth.Osc2SyncEnabled)),
			fmt.Sprintf("NOISE %.0f", s.Synth.NoiseAmplitude),
		}
	}
	return nil
}

// waveformSketch returns one period of w at unit amplitude, n points long,
// for drawing.
func waveformSketch(w Waveform, n int) []float32 {
	out := make([]float32, n)
	generateWaveform(w, 1, 1, float64(n), out)
	return out
}

// envelopeSketch returns the corner points of the ADSR shape normalized to
// a unit box, with the sustain hold drawn as a fixed quarter of the width.
func envelopeSketch(p EnvelopeParams) [][2]float32 {
	total := p.Attack + p.Decay + p.Release
	if !(total > 0) {
		return nil
	}
	const hold = 0.25
	scale := (1 - hold) / total
	a := p.Attack * scale
	d := a + p.Decay*scale
	s := d + hold
	return [][2]float32{
		{0, 0},
		{a, ENVELOPE_ATTACK_PEAK},
		{d, ENVELOPE_ATTACK_PEAK * p.Sustain},
		{s, ENVELOPE_ATTACK_PEAK * p.Sustain},
		{1, 0},
	}
}
