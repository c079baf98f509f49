// synth_engine.go - Single-voice synthesis engine

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// OscillatorRole names one of the three oscillators owned by a Synth.
type OscillatorRole int

const (
	ROLE_OSC1 OscillatorRole = iota
	ROLE_OSC2
	ROLE_LFO
)

func (r OscillatorRole) String() string {
	switch r {
	case ROLE_OSC1:
		return "osc1"
	case ROLE_OSC2:
		return "osc2"
	case ROLE_LFO:
		return "lfo"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// SynthParams are the global switches of the voice.
type SynthParams struct {
	LFOEnabled      bool
	Osc2SyncEnabled bool
	NoiseAmplitude  float32
}

// Snapshot is a copy of every user-facing parameter. It is what the display
// diffs and what a preset stores.
type Snapshot struct {
	Osc1     OscillatorParams
	Osc2     OscillatorParams
	LFO      OscillatorParams
	Envelope EnvelopeParams
	Synth    SynthParams
}

// Synth is the single-voice engine: two audible oscillators, an LFO, an ADSR
// envelope and a noise source, mixed one period at a time. One mutex guards
// all of it. Control-path calls hold it briefly; ProducePeriod holds it for
// the whole period so every sample of a period sees the same parameters.
type Synth struct {
	config SynthConfig
	logger *slog.Logger

	mutex      sync.Mutex
	osc1       *Oscillator
	osc2       *Oscillator
	lfo        *Oscillator
	envelope   *Envelope
	params     SynthParams
	lastKey    uint8
	keyPressed bool
	noiseSR    uint32

	// offset counts samples per channel since start. It wraps after
	// 2^32 samples (about 27 hours at 44.1 kHz); the envelope marks are not
	// corrected for that.
	offset uint32
	period []int16

	status synthStatusStore
}

func NewSynth(config SynthConfig, logger *slog.Logger) (*Synth, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	oscCap := config.oscillatorCapacity()
	return &Synth{
		config:   config,
		logger:   logger.With("component", "synth"),
		osc1:     newOscillator(config.SampleRate, oscCap, OSC_DOWNSAMPLING_AUDIBLE),
		osc2:     newOscillator(config.SampleRate, oscCap, OSC_DOWNSAMPLING_AUDIBLE),
		lfo:      newOscillator(config.SampleRate, oscCap, OSC_DOWNSAMPLING_LFO),
		envelope: newEnvelope(config.SampleRate, config.envelopeCapacity()),
		noiseSR:  NOISE_LFSR_SEED,
		period:   make([]int16, config.SamplesPerPeriod()*config.Channels),
	}, nil
}

func (s *Synth) Config() SynthConfig {
	return s.config
}

func (s *Synth) oscillator(role OscillatorRole) *Oscillator {
	switch role {
	case ROLE_OSC1:
		return s.osc1
	case ROLE_OSC2:
		return s.osc2
	case ROLE_LFO:
		return s.lfo
	}
	return nil
}

// Snapshot copies the current parameters. Never mutates.
func (s *Synth) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return Snapshot{
		Osc1:     s.osc1.params,
		Osc2:     s.osc2.params,
		LFO:      s.lfo.params,
		Envelope: s.envelope.params,
		Synth:    s.params,
	}
}

// ApplyFullUpdate installs a complete parameter set, as done at start-up and
// when a preset is loaded. Each part is validated on its own; a rejected part
// keeps its previous value while the others are still applied.
func (s *Synth) ApplyFullUpdate(snap Snapshot) error {
	s.mutex.Lock()
	var errs []error
	noise := s.params.NoiseAmplitude
	s.params = snap.Synth
	if !(snap.Synth.NoiseAmplitude >= 0) {
		s.params.NoiseAmplitude = noise
		errs = append(errs, fmt.Errorf("noise: %w: %.3f", ErrInvalidAmplitude, snap.Synth.NoiseAmplitude))
	}
	for _, part := range []struct {
		role OscillatorRole
		p    OscillatorParams
	}{
		{ROLE_OSC1, snap.Osc1},
		{ROLE_OSC2, snap.Osc2},
		{ROLE_LFO, snap.LFO},
	} {
		if err := s.oscillator(part.role).update(part.p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", part.role, err))
		}
	}
	if err := s.envelope.update(snap.Envelope); err != nil {
		errs = append(errs, fmt.Errorf("envelope: %w", err))
	}
	s.mutex.Unlock()

	for _, err := range errs {
		s.logger.Warn("parameter update rejected", "err", err)
	}
	return errors.Join(errs...)
}

func (s *Synth) updateOscillator(role OscillatorRole, field string, mutate func(*OscillatorParams)) error {
	osc := s.oscillator(role)
	if osc == nil {
		return fmt.Errorf("unknown oscillator role %d", int(role))
	}
	s.mutex.Lock()
	p := osc.params
	mutate(&p)
	err := osc.update(p)
	s.mutex.Unlock()

	if err != nil {
		s.logger.Warn("oscillator update rejected", "role", role, "field", field, "err", err)
		return err
	}
	s.logger.Debug("oscillator updated", "role", role, "field", field,
		"frequency", p.Frequency, "amplitude", p.Amplitude, "waveform", p.Waveform)
	return nil
}

func (s *Synth) SetFrequency(role OscillatorRole, hz float32) error {
	return s.updateOscillator(role, "frequency", func(p *OscillatorParams) { p.Frequency = hz })
}

func (s *Synth) SetAmplitude(role OscillatorRole, amplitude float32) error {
	return s.updateOscillator(role, "amplitude", func(p *OscillatorParams) { p.Amplitude = amplitude })
}

func (s *Synth) SetWaveform(role OscillatorRole, w Waveform) error {
	return s.updateOscillator(role, "waveform", func(p *OscillatorParams) { p.Waveform = w })
}

func (s *Synth) updateEnvelope(field string, mutate func(*EnvelopeParams)) error {
	s.mutex.Lock()
	p := s.envelope.params
	mutate(&p)
	err := s.envelope.update(p)
	s.mutex.Unlock()

	if err != nil {
		s.logger.Warn("envelope update rejected", "field", field, "err", err)
		return err
	}
	s.logger.Debug("envelope updated", "field", field, "attack", p.Attack, "decay", p.Decay,
		"sustain", p.Sustain, "release", p.Release)
	return nil
}

func (s *Synth) SetEnvelopeAttack(seconds float32) error {
	return s.updateEnvelope("attack", func(p *EnvelopeParams) { p.Attack = seconds })
}

func (s *Synth) SetEnvelopeDecay(seconds float32) error {
	return s.updateEnvelope("decay", func(p *EnvelopeParams) { p.Decay = seconds })
}

func (s *Synth) SetEnvelopeSustain(level float32) error {
	return s.updateEnvelope("sustain", func(p *EnvelopeParams) { p.Sustain = level })
}

func (s *Synth) SetEnvelopeRelease(seconds float32) error {
	return s.updateEnvelope("release", func(p *EnvelopeParams) { p.Release = seconds })
}

func (s *Synth) SetLFOEnabled(enabled bool) {
	s.mutex.Lock()
	s.params.LFOEnabled = enabled
	s.mutex.Unlock()
}

func (s *Synth) SetOsc2SyncEnabled(enabled bool) {
	s.mutex.Lock()
	s.params.Osc2SyncEnabled = enabled
	s.mutex.Unlock()
}

func (s *Synth) SetNoiseAmplitude(amplitude float32) error {
	if !(amplitude >= 0) {
		err := fmt.Errorf("noise: %w: %.3f", ErrInvalidAmplitude, amplitude)
		s.logger.Warn("noise update rejected", "err", err)
		return err
	}
	s.mutex.Lock()
	s.params.NoiseAmplitude = amplitude
	s.mutex.Unlock()
	return nil
}

// KeyPress makes key the active note: oscillator 1 is retuned to the key,
// the envelope is rescaled to the velocity and retriggered at the current
// offset. Everything happens in one critical section so no period sees a
// half-applied note. A rejected retune or rescale is reported, the trigger
// still happens.
func (s *Synth) KeyPress(key, velocity uint8) error {
	if velocity > MIDI_VELOCITY_MAX {
		velocity = MIDI_VELOCITY_MAX
	}
	var errs []error

	s.mutex.Lock()
	s.lastKey = key
	s.keyPressed = true

	op := s.osc1.params
	op.Frequency = keyFrequency(key)
	if err := s.osc1.update(op); err != nil {
		errs = append(errs, fmt.Errorf("key %d: %w", key, err))
	}
	ep := s.envelope.params
	ep.Amplitude = float32(velocity) / MIDI_VELOCITY_MAX
	if err := s.envelope.update(ep); err != nil {
		errs = append(errs, fmt.Errorf("key %d: %w", key, err))
	}
	s.envelope.trigger(s.offset)
	at := s.offset
	s.mutex.Unlock()

	for _, err := range errs {
		s.logger.Warn("key press partially applied", "err", err)
	}
	s.logger.Debug("key press", "key", key, "velocity", velocity, "offset", at)
	return errors.Join(errs...)
}

// KeyRelease releases the envelope at the current offset if key is the last
// pressed key. Releases of any other key are ignored; it reports whether the
// release was applied.
func (s *Synth) KeyRelease(key uint8) bool {
	s.mutex.Lock()
	if !s.keyPressed || key != s.lastKey {
		s.mutex.Unlock()
		s.logger.Debug("key release ignored", "key", key)
		return false
	}
	s.envelope.releaseAt(s.offset)
	at := s.offset
	s.mutex.Unlock()

	s.logger.Debug("key release", "key", key, "offset", at)
	return true
}

// Offset is the global sample offset of the next period.
func (s *Synth) Offset() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.offset
}

// ProducePeriod renders the next period as interleaved int16 samples with the
// mono mix copied to every channel, then advances the offset. The returned
// slice is reused by the next call.
func (s *Synth) ProducePeriod() []int16 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n := s.config.SamplesPerPeriod()
	channels := s.config.Channels
	for i := 0; i < n; i++ {
		t := s.offset + uint32(i)

		env := s.envelope.valueAt(t)
		lfo := float32(1.0)
		if s.params.LFOEnabled {
			lfo = s.lfo.sampleAt(t)
		}
		var osc2 float32
		if s.params.Osc2SyncEnabled {
			osc2 = s.osc2.syncedSampleAt(s.osc1, t)
		} else {
			osc2 = s.osc2.sampleAt(t)
		}
		noise := s.nextNoise() * s.params.NoiseAmplitude

		v := toOutputSample(env * lfo * (s.osc1.sampleAt(t) + osc2 + noise))
		frame := s.period[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] = v
		}
	}
	s.offset += uint32(n)
	return s.period
}

// nextNoise steps the 23-bit LFSR (taps 23, 18) and returns -1 or +1.
func (s *Synth) nextNoise() float32 {
	newBit := ((s.noiseSR >> 22) ^ (s.noiseSR >> 17)) & 1
	s.noiseSR = ((s.noiseSR << 1) | newBit) & NOISE_LFSR_MASK
	return float32(s.noiseSR&1)*2 - 1
}

// toOutputSample saturates the mix to the int16 range.
func toOutputSample(v float32) int16 {
	switch {
	case v != v:
		return 0
	case v >= OUTPUT_SAMPLE_MAX:
		return OUTPUT_SAMPLE_MAX
	case v <= OUTPUT_SAMPLE_MIN:
		return OUTPUT_SAMPLE_MIN
	}
	return int16(v)
}

// keyFrequency maps a MIDI key to its equal-tempered frequency.
func keyFrequency(key uint8) float32 {
	if int(key) < len(keyFrequencyLUT) {
		return keyFrequencyLUT[key]
	}
	return float32(MIDI_FREQ_A4 * math.Pow(2, (float64(key)-MIDI_KEY_A4)/12))
}
