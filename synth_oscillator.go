package main

import "fmt"

// OscillatorParams is shared by the two audible oscillators and the LFO.
// Field order and widths match the preset blob record.
type OscillatorParams struct {
	Amplitude float32
	Frequency float32
	Waveform  Waveform
}

// Oscillator holds one precomputed period of its waveform. The buffer is
// allocated once; regeneration only rewrites its first bufferSize entries.
// Not safe for concurrent use: the Synth lock guards every call.
type Oscillator struct {
	params       OscillatorParams
	buffer       []float32
	bufferSize   uint32
	downsampling uint32
	sampleRate   uint32
}

func newOscillator(sampleRate uint32, capacity int, downsampling uint32) *Oscillator {
	if downsampling == 0 {
		downsampling = 1
	}
	return &Oscillator{
		buffer:       make([]float32, capacity),
		downsampling: downsampling,
		sampleRate:   sampleRate,
	}
}

func (o *Oscillator) effectiveRate() float64 {
	return float64(o.sampleRate) / float64(o.downsampling)
}

// validateFrequency checks 10 Hz <= f*downsampling <= sampleRate/2. Written
// as a positive range test so NaN is rejected.
func (o *Oscillator) validateFrequency(f float32) error {
	scaled := float64(f) * float64(o.downsampling)
	if !(scaled >= MIN_OSC_FREQ && scaled <= float64(o.sampleRate)/2) {
		return fmt.Errorf("%w: %.3f Hz (x%d)", ErrInvalidFrequency, f, o.downsampling)
	}
	return nil
}

func (o *Oscillator) validate(p OscillatorParams) error {
	if err := o.validateFrequency(p.Frequency); err != nil {
		return err
	}
	if !(p.Amplitude >= 0) {
		return fmt.Errorf("%w: %.3f", ErrInvalidAmplitude, p.Amplitude)
	}
	if !p.Waveform.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWaveform, uint32(p.Waveform))
	}
	return nil
}

// update validates p and regenerates the buffer. On error nothing changes.
func (o *Oscillator) update(p OscillatorParams) error {
	if err := o.validate(p); err != nil {
		return err
	}
	o.params = p
	o.regenerate()
	return nil
}

func (o *Oscillator) regenerate() {
	n := generateWaveform(o.params.Waveform, o.params.Amplitude, o.params.Frequency, o.effectiveRate(), o.buffer)
	o.bufferSize = uint32(n)
}

// phaseIndex is the buffer position played at globalOffset.
func (o *Oscillator) phaseIndex(globalOffset uint32) uint32 {
	if o.bufferSize == 0 {
		return 0
	}
	return (globalOffset / o.downsampling) % o.bufferSize
}

// sampleAt returns the waveform value at globalOffset. An oscillator that
// never accepted parameters is silent.
func (o *Oscillator) sampleAt(globalOffset uint32) float32 {
	if o.bufferSize == 0 {
		return 0
	}
	return o.buffer[o.phaseIndex(globalOffset)]
}

// syncedSampleAt looks this oscillator up at the phase position of master,
// restarting it whenever master restarts. Only phase-exact when both share
// the same downsampling factor.
func (o *Oscillator) syncedSampleAt(master *Oscillator, globalOffset uint32) float32 {
	if o.bufferSize == 0 {
		return 0
	}
	if master.bufferSize == 0 {
		return o.sampleAt(globalOffset)
	}
	idx := ((globalOffset / master.downsampling) % master.bufferSize) % o.bufferSize
	return o.buffer[idx]
}
