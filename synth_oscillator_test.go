package main

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOscillator(downsampling uint32) *Oscillator {
	cfg := DefaultSynthConfig()
	return newOscillator(cfg.SampleRate, cfg.oscillatorCapacity(), downsampling)
}

func TestOscillator_BufferSizeForValidFrequencies(t *testing.T) {
	tests := []struct {
		name         string
		downsampling uint32
		frequency    float32
		want         uint32
	}{
		{"a4", OSC_DOWNSAMPLING_AUDIBLE, 440, 100},
		{"lowest_audible", OSC_DOWNSAMPLING_AUDIBLE, 10, 4410},
		{"nyquist", OSC_DOWNSAMPLING_AUDIBLE, 22050, 2},
		{"lfo_slowest", OSC_DOWNSAMPLING_LFO, 0.1, 4410},
		{"lfo_10hz", OSC_DOWNSAMPLING_LFO, 10, 44},
		{"lfo_fastest", OSC_DOWNSAMPLING_LFO, 220.5, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			osc := newTestOscillator(tc.downsampling)
			require.NoError(t, osc.update(OscillatorParams{Amplitude: 1, Frequency: tc.frequency, Waveform: WAVE_SINE}))
			assert.Equal(t, tc.want, osc.bufferSize)
		})
	}
}

func TestOscillator_RejectsInvalidFrequencyAndKeepsState(t *testing.T) {
	tests := []struct {
		name         string
		downsampling uint32
		frequency    float32
	}{
		{"below_10hz", OSC_DOWNSAMPLING_AUDIBLE, 5},
		{"above_nyquist", OSC_DOWNSAMPLING_AUDIBLE, 30000},
		{"zero", OSC_DOWNSAMPLING_AUDIBLE, 0},
		{"negative", OSC_DOWNSAMPLING_AUDIBLE, -440},
		{"nan", OSC_DOWNSAMPLING_AUDIBLE, float32(math.NaN())},
		{"lfo_too_slow", OSC_DOWNSAMPLING_LFO, 0.05},
		{"lfo_too_fast", OSC_DOWNSAMPLING_LFO, 300},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			osc := newTestOscillator(tc.downsampling)
			valid := OscillatorParams{Amplitude: 500, Frequency: 1, Waveform: WAVE_SQUARE}
			if tc.downsampling == OSC_DOWNSAMPLING_AUDIBLE {
				valid.Frequency = 440
			}
			require.NoError(t, osc.update(valid))
			before := slices.Clone(osc.buffer)
			size := osc.bufferSize

			err := osc.update(OscillatorParams{Amplitude: 1, Frequency: tc.frequency, Waveform: WAVE_SINE})
			require.ErrorIs(t, err, ErrInvalidFrequency)
			assert.Equal(t, valid, osc.params)
			assert.Equal(t, size, osc.bufferSize)
			assert.Equal(t, before, osc.buffer)
		})
	}
}

func TestOscillator_RejectsBadAmplitudeAndWaveform(t *testing.T) {
	osc := newTestOscillator(OSC_DOWNSAMPLING_AUDIBLE)
	require.NoError(t, osc.update(OscillatorParams{Amplitude: 1, Frequency: 440}))

	err := osc.update(OscillatorParams{Amplitude: -1, Frequency: 440})
	assert.ErrorIs(t, err, ErrInvalidAmplitude)

	err = osc.update(OscillatorParams{Amplitude: 1, Frequency: 440, Waveform: Waveform(3)})
	assert.ErrorIs(t, err, ErrInvalidWaveform)

	assert.Equal(t, OscillatorParams{Amplitude: 1, Frequency: 440}, osc.params)
}

func TestOscillator_SampleAtIsIdempotentAndPeriodic(t *testing.T) {
	for _, ds := range []uint32{OSC_DOWNSAMPLING_AUDIBLE, OSC_DOWNSAMPLING_LFO} {
		osc := newTestOscillator(ds)
		freq := float32(523.25)
		if ds == OSC_DOWNSAMPLING_LFO {
			freq = 3
		}
		require.NoError(t, osc.update(OscillatorParams{Amplitude: 1000, Frequency: freq, Waveform: WAVE_SAWTOOTH}))
		span := osc.bufferSize * osc.downsampling

		for _, off := range []uint32{0, 1, 99, 4409, 123456, math.MaxUint32 - 2*span} {
			assert.Equal(t, osc.sampleAt(off), osc.sampleAt(off), "offset %d", off)
			assert.Equal(t, osc.sampleAt(off), osc.sampleAt(off+span), "offset %d ds %d", off, ds)
		}
	}
}

func TestOscillator_LFOStretchesLookup(t *testing.T) {
	osc := newTestOscillator(OSC_DOWNSAMPLING_LFO)
	require.NoError(t, osc.update(OscillatorParams{Amplitude: 1, Frequency: 1, Waveform: WAVE_SAWTOOTH}))

	// 100 consecutive device samples share one buffer entry
	assert.Equal(t, osc.sampleAt(0), osc.sampleAt(99))
	assert.NotEqual(t, osc.sampleAt(99), osc.sampleAt(100))
	assert.Equal(t, uint32(1), osc.phaseIndex(150))
}

func TestOscillator_SilentBeforeFirstUpdate(t *testing.T) {
	osc := newTestOscillator(OSC_DOWNSAMPLING_AUDIBLE)
	assert.Equal(t, float32(0), osc.sampleAt(12345))
}

func TestHardSync_RestartsWithMaster(t *testing.T) {
	master := newTestOscillator(OSC_DOWNSAMPLING_AUDIBLE)
	slave := newTestOscillator(OSC_DOWNSAMPLING_AUDIBLE)
	require.NoError(t, master.update(OscillatorParams{Amplitude: 1, Frequency: 441, Waveform: WAVE_SINE}))
	require.NoError(t, slave.update(OscillatorParams{Amplitude: 1, Frequency: 700, Waveform: WAVE_SAWTOOTH}))
	require.Equal(t, uint32(100), master.bufferSize)
	require.Equal(t, uint32(63), slave.bufferSize)

	for wrap := uint32(0); wrap < 10; wrap++ {
		off := wrap * master.bufferSize
		assert.Equal(t, slave.buffer[0], slave.syncedSampleAt(master, off), "master wrap %d", wrap)
		assert.Equal(t, slave.buffer[1], slave.syncedSampleAt(master, off+1))
	}
	// unsynced, the slave would be mid-ramp at the master's first wrap
	assert.Equal(t, slave.buffer[37], slave.sampleAt(100))
	assert.Equal(t, slave.buffer[70%63], slave.syncedSampleAt(master, 170))
}
