package main

import (
	"fmt"
	"math"
)

// EnvelopeParams are the ADSR settings. Times are in seconds, sustain is a
// fraction of amplitude. Field order matches the preset blob record.
type EnvelopeParams struct {
	Attack    float32
	Decay     float32
	Sustain   float32
	Release   float32
	Amplitude float32
}

// Envelope precomputes the attack+decay curve and the release curve at
// ENVELOPE_DOWNSAMPLING and answers time-indexed lookups against the trigger
// and release marks. Not safe for concurrent use: the Synth lock guards it.
type Envelope struct {
	params EnvelopeParams

	attackDecay     []float32
	release         []float32
	attackSize      uint32
	attackDecaySize uint32
	releaseSize     uint32

	sampleRate   uint32
	downsampling uint32

	// Unset marks compare as later than every real offset.
	triggered     bool
	triggerOffset uint32
	released      bool
	releaseOffset uint32
}

func newEnvelope(sampleRate uint32, capacity int) *Envelope {
	return &Envelope{
		attackDecay:  make([]float32, capacity),
		release:      make([]float32, capacity),
		sampleRate:   sampleRate,
		downsampling: ENVELOPE_DOWNSAMPLING,
	}
}

// segmentSamples converts seconds to envelope samples, truncating.
func (e *Envelope) segmentSamples(seconds float32) uint32 {
	return uint32(float64(seconds) * float64(e.sampleRate) / float64(e.downsampling))
}

func (e *Envelope) validate(p EnvelopeParams) error {
	if !(p.Attack > 0) {
		return fmt.Errorf("%w: attack %.3fs", ErrInvalidEnvelopeParams, p.Attack)
	}
	if !(p.Decay > 0) {
		return fmt.Errorf("%w: decay %.3fs", ErrInvalidEnvelopeParams, p.Decay)
	}
	if !(p.Release > 0) {
		return fmt.Errorf("%w: release %.3fs", ErrInvalidEnvelopeParams, p.Release)
	}
	if !(p.Sustain >= 0 && p.Sustain <= 1) {
		return fmt.Errorf("%w: sustain %.3f", ErrInvalidEnvelopeParams, p.Sustain)
	}
	if !(p.Amplitude >= 0) {
		return fmt.Errorf("%w: amplitude %.3f", ErrInvalidEnvelopeParams, p.Amplitude)
	}
	// Guard the float->uint32 conversion before comparing against capacity.
	limit := float64(len(e.attackDecay)) * float64(e.downsampling) / float64(e.sampleRate)
	if float64(p.Attack)+float64(p.Decay) > 2*limit || float64(p.Release) > 2*limit {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelopeParams, ErrBufferCapacityExceeded)
	}
	attack := e.segmentSamples(p.Attack)
	decay := e.segmentSamples(p.Decay)
	if attack+decay > uint32(len(e.attackDecay)) {
		return fmt.Errorf("%w: %w: attack/decay needs %d samples, have %d",
			ErrInvalidEnvelopeParams, ErrBufferCapacityExceeded, attack+decay, len(e.attackDecay))
	}
	if attack+decay == 0 {
		return fmt.Errorf("%w: attack/decay shorter than one envelope sample", ErrInvalidEnvelopeParams)
	}
	if rel := e.segmentSamples(p.Release); rel > uint32(len(e.release)) {
		return fmt.Errorf("%w: %w: release needs %d samples, have %d",
			ErrInvalidEnvelopeParams, ErrBufferCapacityExceeded, rel, len(e.release))
	}
	return nil
}

// update validates p and recomputes both curves. Trigger and release marks
// are left alone. On error nothing changes.
func (e *Envelope) update(p EnvelopeParams) error {
	if err := e.validate(p); err != nil {
		return err
	}
	e.params = p
	e.recompute()
	return nil
}

func (e *Envelope) recompute() {
	p := e.params
	amp := float64(p.Amplitude)
	dt := float64(e.downsampling) / float64(e.sampleRate)

	e.attackSize = e.segmentSamples(p.Attack)
	e.attackDecaySize = e.attackSize + e.segmentSamples(p.Decay)
	e.releaseSize = e.segmentSamples(p.Release)

	for i := uint32(0); i < e.attackSize; i++ {
		t := float64(i) * dt
		e.attackDecay[i] = float32(amp * (1 - math.Exp(-ENVELOPE_TIME_CONSTANT*t/float64(p.Attack))))
	}
	// The attack only reaches ~95%, so decay starts from the corrected peak.
	for i := e.attackSize; i < e.attackDecaySize; i++ {
		t := float64(i-e.attackSize) * dt
		fall := (1 - float64(p.Sustain)) * (1 - math.Exp(-ENVELOPE_TIME_CONSTANT*t/float64(p.Decay)))
		e.attackDecay[i] = float32(ENVELOPE_ATTACK_PEAK * amp * (1 - fall))
	}

	last := float64(e.attackDecay[e.attackDecaySize-1])
	for i := uint32(0); i < e.releaseSize; i++ {
		t := float64(i) * dt
		e.release[i] = float32(last * math.Exp(-ENVELOPE_TIME_CONSTANT*t/float64(p.Release)))
	}
}

// trigger starts a note at globalOffset and clears any pending release.
func (e *Envelope) trigger(globalOffset uint32) {
	e.triggered = true
	e.triggerOffset = globalOffset
	e.released = false
	e.releaseOffset = 0
}

// releaseAt marks the note released. An envelope that was never triggered
// stays silent.
func (e *Envelope) releaseAt(globalOffset uint32) {
	if !e.triggered {
		return
	}
	e.released = true
	e.releaseOffset = globalOffset
}

// valueAt returns the envelope level at globalOffset: the release curve after
// a release (silence once it has run out), the attack/decay curve after a
// trigger (held at the sustain level once it has run out), else silence.
func (e *Envelope) valueAt(globalOffset uint32) float32 {
	if e.released && globalOffset > e.releaseOffset {
		elapsed := globalOffset - e.releaseOffset
		if elapsed < e.releaseSize*e.downsampling {
			return e.release[elapsed/e.downsampling]
		}
		return 0
	}
	if e.triggered && globalOffset > e.triggerOffset {
		if e.attackDecaySize == 0 {
			return 0
		}
		elapsed := globalOffset - e.triggerOffset
		if elapsed < e.attackDecaySize*e.downsampling {
			return e.attackDecay[elapsed/e.downsampling]
		}
		return e.attackDecay[e.attackDecaySize-1]
	}
	return 0
}
