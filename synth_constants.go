package main

import "math"

const (
	SYNTH_SAMPLE_RATE    = 44100 // Default device sample rate (Hz)
	SYNTH_PERIOD_SECONDS = 0.01  // One audio period (10 ms)
	SYNTH_CHANNEL_COUNT  = 2     // Interleaved output channels

	// Oscillator buffers hold one period of the slowest audible waveform.
	// The lowest frequency supported is 10 Hz, i.e. a 100 ms period.
	MIN_OSC_FREQ             = 10.0
	OSC_DOWNSAMPLING_AUDIBLE = 1
	// The LFO runs at a 100x lower effective rate so that oscillations
	// down to 0.1 Hz fit the same buffer.
	OSC_DOWNSAMPLING_LFO = 100

	// Envelope curves are stored at one sample per 100 device samples,
	// i.e. up to 10 s per buffer at 2.27 ms resolution for 44.1 kHz.
	ENVELOPE_DOWNSAMPLING = 100
	// The exponential curves reach ~95% of their target after one nominal
	// attack/decay/release time.
	ENVELOPE_TIME_CONSTANT = 3.0
	ENVELOPE_ATTACK_PEAK   = 0.95
)

// RMS values of unit-amplitude waveforms, used to give different waveforms
// the same perceived loudness at the same amplitude setting.
const (
	RMS_SINE     = 1 / math.Sqrt2
	RMS_SAWTOOTH = 0.5773502691896258 // 1/sqrt(3)
	RMS_SQUARE   = 1.0
)

const (
	NOISE_LFSR_SEED = 0x7FFFFF // 23-bit LFSR seed
	NOISE_LFSR_MASK = 0x7FFFFF // 23-bit mask
)

const (
	MIDI_KEY_A4       = 69
	MIDI_FREQ_A4      = 440.0
	MIDI_VELOCITY_MAX = 127
	MIDI_KEY_COUNT    = 128
)

const (
	OUTPUT_SAMPLE_MAX   = math.MaxInt16
	OUTPUT_SAMPLE_MIN   = math.MinInt16
	OUTPUT_SAMPLE_BYTES = 2 // int16 little-endian
)

// SINK_WRITE_TIMEOUT_MS bounds how long the producer waits for the output
// sink to accept one period before reporting an underrun.
const SINK_WRITE_TIMEOUT_MS = 100
