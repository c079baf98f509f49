package main

import (
	"fmt"
	"math"
)

// Waveform selects the shape of an oscillator. The numeric values are part of
// the preset blob format.
type Waveform uint32

const (
	WAVE_SINE Waveform = iota
	WAVE_SAWTOOTH
	WAVE_SQUARE
	waveCount
)

func (w Waveform) String() string {
	switch w {
	case WAVE_SINE:
		return "sine"
	case WAVE_SAWTOOTH:
		return "sawtooth"
	case WAVE_SQUARE:
		return "square"
	}
	return fmt.Sprintf("waveform(%d)", uint32(w))
}

func (w Waveform) valid() bool {
	return w < waveCount
}

// periodLength returns the number of samples holding one period of frequency
// at the given effective sample rate.
func periodLength(frequency float32, effectiveRate float64) int {
	return int(math.Round(effectiveRate / float64(frequency)))
}

// generateWaveform writes exactly one period of the waveform into out and
// returns its length. The caller validates frequency so that the period fits
// out; a longer period is cut at len(out).
func generateWaveform(w Waveform, amplitude, frequency float32, effectiveRate float64, out []float32) int {
	n := periodLength(frequency, effectiveRate)
	if n > len(out) {
		n = len(out)
	}
	if n <= 0 {
		return 0
	}

	amp := float64(amplitude)
	switch w {
	case WAVE_SINE:
		step := 2 * math.Pi / float64(n)
		for i := 0; i < n; i++ {
			out[i] = float32(amp * math.Sin(step*float64(i)))
		}
	case WAVE_SAWTOOTH:
		// normalized to the loudness of a sine at the same amplitude
		peak := amp * RMS_SINE / RMS_SAWTOOTH
		for i := 0; i < n; i++ {
			out[i] = float32(peak * float64(i) / float64(n))
		}
	case WAVE_SQUARE:
		level := float32(amp * RMS_SINE / RMS_SQUARE)
		half := n / 2
		for i := 0; i < half; i++ {
			out[i] = level
		}
		for i := half; i < n; i++ {
			out[i] = -level
		}
	}
	return n
}
