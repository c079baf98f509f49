package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSynth_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		config SynthConfig
	}{
		{"low_rate", SynthConfig{SampleRate: 100, PeriodSeconds: 0.01, Channels: 2}},
		{"zero_period", SynthConfig{SampleRate: 44100, PeriodSeconds: 0, Channels: 2}},
		{"no_channels", SynthConfig{SampleRate: 44100, PeriodSeconds: 0.01, Channels: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSynth(tc.config, discardLogger())
			assert.Error(t, err)
		})
	}
}

func TestSynth_FullUpdateRoundTrip(t *testing.T) {
	s := newTestSynth(t)
	snap := Snapshot{
		Osc1:     OscillatorParams{Amplitude: 8000, Frequency: 220, Waveform: WAVE_SQUARE},
		Osc2:     OscillatorParams{Amplitude: 2000, Frequency: 330, Waveform: WAVE_SINE},
		LFO:      OscillatorParams{Amplitude: 1, Frequency: 4, Waveform: WAVE_SINE},
		Envelope: EnvelopeParams{Attack: 0.2, Decay: 0.3, Sustain: 0.7, Release: 0.5, Amplitude: 0.8},
		Synth:    SynthParams{LFOEnabled: true, Osc2SyncEnabled: true, NoiseAmplitude: 100},
	}
	require.NoError(t, s.ApplyFullUpdate(snap))
	assert.Equal(t, snap, s.Snapshot())
}

func TestSynth_FullUpdateAppliesValidParts(t *testing.T) {
	s := newTestSynth(t)
	before := s.Snapshot()

	snap := before
	snap.Osc1.Amplitude = 5000
	snap.Osc2.Frequency = 5
	snap.Envelope.Sustain = 2
	snap.Synth.LFOEnabled = true

	err := s.ApplyFullUpdate(snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	assert.ErrorIs(t, err, ErrInvalidEnvelopeParams)

	got := s.Snapshot()
	assert.Equal(t, float32(5000), got.Osc1.Amplitude)
	assert.Equal(t, before.Osc2, got.Osc2)
	assert.Equal(t, before.Envelope, got.Envelope)
	assert.True(t, got.Synth.LFOEnabled)
}

func TestSynth_SettersValidate(t *testing.T) {
	s := newTestSynth(t)

	require.NoError(t, s.SetFrequency(ROLE_OSC2, 1000))
	assert.ErrorIs(t, s.SetFrequency(ROLE_OSC2, 30000), ErrInvalidFrequency)
	assert.ErrorIs(t, s.SetFrequency(ROLE_LFO, 0.05), ErrInvalidFrequency)
	assert.ErrorIs(t, s.SetAmplitude(ROLE_OSC1, -1), ErrInvalidAmplitude)
	assert.ErrorIs(t, s.SetWaveform(ROLE_LFO, Waveform(9)), ErrInvalidWaveform)
	assert.Error(t, s.SetFrequency(OscillatorRole(7), 440))
	assert.ErrorIs(t, s.SetEnvelopeSustain(1.5), ErrInvalidEnvelopeParams)
	assert.ErrorIs(t, s.SetNoiseAmplitude(float32(math.NaN())), ErrInvalidAmplitude)

	require.NoError(t, s.SetEnvelopeAttack(0.5))
	require.NoError(t, s.SetNoiseAmplitude(250))
	s.SetLFOEnabled(true)
	s.SetOsc2SyncEnabled(true)

	got := s.Snapshot()
	assert.Equal(t, float32(1000), got.Osc2.Frequency)
	assert.Equal(t, float32(0.5), got.Envelope.Attack)
	assert.Equal(t, float32(250), got.Synth.NoiseAmplitude)
	assert.True(t, got.Synth.LFOEnabled)
	assert.True(t, got.Synth.Osc2SyncEnabled)
}

func TestSynth_KeyPressAndRelease(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.KeyPress(69, 64))

	snap := s.Snapshot()
	assert.Equal(t, float32(440), snap.Osc1.Frequency)
	assert.InDelta(t, 64.0/127.0, snap.Envelope.Amplitude, 1e-6)
	assert.Equal(t, uint32(0), s.envelope.triggerOffset)

	assert.False(t, s.KeyRelease(70), "release of a different key is ignored")
	assert.False(t, s.envelope.released)

	for i := 0; i < 3; i++ {
		s.ProducePeriod()
	}
	assert.True(t, s.KeyRelease(69))
	assert.True(t, s.envelope.released)
	assert.Equal(t, s.Offset(), s.envelope.releaseOffset)
	assert.Equal(t, uint32(3*441), s.envelope.releaseOffset)
}

func TestSynth_KeyReleaseBeforeAnyPress(t *testing.T) {
	s := newTestSynth(t)
	assert.False(t, s.KeyRelease(0))
	assert.False(t, s.KeyRelease(69))
}

func TestSynth_KeyPressClampsVelocity(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.KeyPress(60, 200))
	assert.Equal(t, float32(1), s.Snapshot().Envelope.Amplitude)
}

func TestSynth_KeyPressOutOfRangeStillTriggers(t *testing.T) {
	s := newTestSynth(t)
	s.ProducePeriod()

	// key 0 sits below the lowest oscillator frequency
	err := s.KeyPress(0, 100)
	require.ErrorIs(t, err, ErrInvalidFrequency)
	assert.Equal(t, float32(440), s.Snapshot().Osc1.Frequency)
	assert.True(t, s.envelope.triggered)
	assert.Equal(t, uint32(441), s.envelope.triggerOffset)
}

func TestSynth_ProducePeriod(t *testing.T) {
	s := newTestSynth(t)

	out := s.ProducePeriod()
	require.Len(t, out, 882)
	assert.Equal(t, uint32(441), s.Offset())
	for i, v := range out {
		require.Equal(t, int16(0), v, "sample %d before any key press", i)
	}

	require.NoError(t, s.KeyPress(69, 127))
	out = s.ProducePeriod()
	assert.Equal(t, uint32(882), s.Offset())
	assert.Equal(t, int16(0), out[0], "first sample sits on the trigger mark")

	nonZero := false
	for i := 0; i < len(out); i += 2 {
		require.Equal(t, out[i], out[i+1], "channels differ at frame %d", i/2)
		if out[i] != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero)
}

func TestSynth_ProducePeriodSaturates(t *testing.T) {
	s := newTestSynth(t)
	require.NoError(t, s.SetAmplitude(ROLE_OSC1, 100000))
	require.NoError(t, s.SetWaveform(ROLE_OSC1, WAVE_SQUARE))
	require.NoError(t, s.KeyPress(69, 127))

	// run into the sustain phase
	for i := 0; i < 30; i++ {
		s.ProducePeriod()
	}
	out := s.ProducePeriod()
	var sawMax, sawMin bool
	for _, v := range out {
		sawMax = sawMax || v == OUTPUT_SAMPLE_MAX
		sawMin = sawMin || v == OUTPUT_SAMPLE_MIN
	}
	assert.True(t, sawMax)
	assert.True(t, sawMin)
}

func TestSynth_LFODisabledHasNoEffect(t *testing.T) {
	a := newTestSynth(t)
	b := newTestSynth(t)
	require.NoError(t, b.SetFrequency(ROLE_LFO, 7))
	require.NoError(t, b.SetWaveform(ROLE_LFO, WAVE_SQUARE))

	require.NoError(t, a.KeyPress(69, 100))
	require.NoError(t, b.KeyPress(69, 100))
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.ProducePeriod(), b.ProducePeriod())
	}
}

func TestToOutputSample(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"positive", 1234.9, 1234},
		{"negative", -1234.9, -1234},
		{"above_max", 40000, math.MaxInt16},
		{"below_min", -40000, math.MinInt16},
		{"nan", float32(math.NaN()), 0},
		{"positive_inf", float32(math.Inf(1)), math.MaxInt16},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toOutputSample(tc.in))
		})
	}
}

func TestSynth_NoiseIsBipolar(t *testing.T) {
	s := newTestSynth(t)
	var plus, minus int
	for i := 0; i < 10000; i++ {
		switch v := s.nextNoise(); v {
		case 1:
			plus++
		case -1:
			minus++
		default:
			t.Fatalf("noise value %f", v)
		}
	}
	assert.Greater(t, plus, 1000)
	assert.Greater(t, minus, 1000)
	assert.LessOrEqual(t, s.noiseSR, uint32(NOISE_LFSR_MASK))
}

func TestKeyFrequency(t *testing.T) {
	assert.Equal(t, float32(440), keyFrequency(69))
	assert.InDelta(t, 261.6256, keyFrequency(60), 1e-3)
	assert.InDelta(t, 880, keyFrequency(81), 1e-3)
	assert.InDelta(t, 8.1758, keyFrequency(0), 1e-3)
}

func TestOscillatorRole_String(t *testing.T) {
	assert.Equal(t, "osc1", ROLE_OSC1.String())
	assert.Equal(t, "lfo", ROLE_LFO.String())
}

// stepTestLFSR advances a copy of the 23-bit noise register.
func stepTestLFSR(sr uint32) (uint32, float32) {
	bit := ((sr >> 22) ^ (sr >> 17)) & 1
	sr = ((sr << 1) | bit) & NOISE_LFSR_MASK
	return sr, float32(sr&1)*2 - 1
}

// mixAt rebuilds one output sample from the envelope and the raw oscillator
// tables.
func mixAt(s *Synth, t uint32, noise float32) float32 {
	table := func(o *Oscillator, idx uint32) float32 { return o.buffer[idx%o.bufferSize] }

	lfo := float32(1)
	if s.params.LFOEnabled {
		lfo = table(s.lfo, t/s.lfo.downsampling)
	}
	osc1 := table(s.osc1, t/s.osc1.downsampling)
	var osc2 float32
	if s.params.Osc2SyncEnabled {
		osc2 = table(s.osc2, (t/s.osc1.downsampling)%s.osc1.bufferSize)
	} else {
		osc2 = table(s.osc2, t/s.osc2.downsampling)
	}
	return s.envelope.valueAt(t) * lfo * (osc1 + osc2 + noise*s.params.NoiseAmplitude)
}

func TestSynth_ProducePeriodMixesEverySource(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, s *Synth)
		silence bool
	}{
		{"lfo", func(t *testing.T, s *Synth) {
			require.NoError(t, s.SetFrequency(ROLE_LFO, 3))
			require.NoError(t, s.SetWaveform(ROLE_LFO, WAVE_SINE))
			s.SetLFOEnabled(true)
		}, false},
		{"sync", func(t *testing.T, s *Synth) {
			require.NoError(t, s.SetFrequency(ROLE_OSC2, 700))
			require.NoError(t, s.SetAmplitude(ROLE_OSC2, 3000))
			s.SetOsc2SyncEnabled(true)
		}, false},
		{"noise_only", func(t *testing.T, s *Synth) {
			require.NoError(t, s.SetAmplitude(ROLE_OSC1, 0))
			require.NoError(t, s.SetNoiseAmplitude(5000))
		}, false},
		{"all", func(t *testing.T, s *Synth) {
			require.NoError(t, s.SetFrequency(ROLE_LFO, 3))
			s.SetLFOEnabled(true)
			require.NoError(t, s.SetFrequency(ROLE_OSC2, 700))
			require.NoError(t, s.SetAmplitude(ROLE_OSC2, 3000))
			s.SetOsc2SyncEnabled(true)
			require.NoError(t, s.SetNoiseAmplitude(2000))
		}, false},
		{"no_key", func(t *testing.T, s *Synth) {
			require.NoError(t, s.SetNoiseAmplitude(5000))
			s.SetLFOEnabled(true)
			s.SetOsc2SyncEnabled(true)
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSynth(t)
			tc.setup(t, s)
			if !tc.silence {
				require.NoError(t, s.KeyPress(69, 127))
			}
			channels := s.config.Channels

			nonZero := 0
			for p := 0; p < 20; p++ {
				if p == 12 {
					s.KeyRelease(69)
				}
				start := s.Offset()
				sr := s.noiseSR
				out := s.ProducePeriod()
				for i := 0; i < len(out)/channels; i++ {
					var noise float32
					sr, noise = stepTestLFSR(sr)
					want := int(toOutputSample(mixAt(s, start+uint32(i), noise)))
					frame := out[i*channels : (i+1)*channels]
					require.InDelta(t, want, int(frame[0]), 1, "period %d frame %d", p, i)
					for c := 1; c < channels; c++ {
						require.Equal(t, frame[0], frame[c], "period %d frame %d channel %d", p, i, c)
					}
					if frame[0] != 0 {
						nonZero++
					}
				}
			}
			if tc.silence {
				assert.Zero(t, nonZero)
			} else {
				assert.Greater(t, nonZero, 1000)
			}
		})
	}
}
