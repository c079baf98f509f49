package main

import (
	"fmt"
	"math"
)

// SynthConfig describes the output device the engine renders for. It is fixed
// for the lifetime of a Synth; all sample buffers are sized from it once.
type SynthConfig struct {
	SampleRate    uint32
	PeriodSeconds float64
	Channels      int
}

func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		SampleRate:    SYNTH_SAMPLE_RATE,
		PeriodSeconds: SYNTH_PERIOD_SECONDS,
		Channels:      SYNTH_CHANNEL_COUNT,
	}
}

func (c SynthConfig) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample rate out of range: %d", c.SampleRate)
	}
	if !(c.PeriodSeconds > 0 && c.PeriodSeconds <= 0.1) {
		return fmt.Errorf("period out of range: %gs", c.PeriodSeconds)
	}
	if c.Channels < 1 || c.Channels > 8 {
		return fmt.Errorf("channel count out of range: %d", c.Channels)
	}
	if c.SamplesPerPeriod() == 0 {
		return fmt.Errorf("period of %gs holds no samples at %d Hz", c.PeriodSeconds, c.SampleRate)
	}
	return nil
}

// SamplesPerPeriod is the number of samples per channel in one period.
func (c SynthConfig) SamplesPerPeriod() int {
	return int(math.Round(c.PeriodSeconds * float64(c.SampleRate)))
}

// PeriodBytes is the size of one interleaved int16 period.
func (c SynthConfig) PeriodBytes() int {
	return c.SamplesPerPeriod() * c.Channels * OUTPUT_SAMPLE_BYTES
}

// Both buffers cover a tenth of a second at the device rate.
func (c SynthConfig) oscillatorCapacity() int {
	return int((c.SampleRate + 9) / 10)
}

func (c SynthConfig) envelopeCapacity() int {
	return int((c.SampleRate + 9) / 10)
}

// DefaultSnapshot is the patch loaded at start-up: a sine on oscillator 1
// tuned to A4, oscillator 2 muted, LFO and sync off.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Osc1: OscillatorParams{Amplitude: 10000, Frequency: 440, Waveform: WAVE_SINE},
		Osc2: OscillatorParams{Amplitude: 0, Frequency: 523.25, Waveform: WAVE_SAWTOOTH},
		LFO:  OscillatorParams{Amplitude: 1, Frequency: 10, Waveform: WAVE_SAWTOOTH},
		Envelope: EnvelopeParams{
			Attack:    0.1,
			Decay:     0.1,
			Sustain:   0.5,
			Release:   1.0,
			Amplitude: 1.0,
		},
	}
}
