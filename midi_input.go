package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

// Control change numbers understood by the controller. The channel is
// ignored: the synth answers on every channel.
const (
	MIDI_CC_PRESET_SELECT = 0x07
	MIDI_CC_ENV_SUSTAIN   = 0x0A
	MIDI_CC_DUMP_PARAMS   = 0x42
	MIDI_CC_NOISE_AMP     = 0x43
	MIDI_CC_OSC1_AMP      = 0x44
	MIDI_CC_PRESET_SAVE   = 0x46
	MIDI_CC_OSC2_SYNC     = 0x47
	MIDI_CC_OSC2_AMP      = 0x49
	MIDI_CC_LFO_FREQ      = 0x4A
	MIDI_CC_OSC2_FREQ     = 0x4C
	MIDI_CC_LFO_ENABLE    = 0x4D
	MIDI_CC_WF_OSC1       = 0x4E
	MIDI_CC_WF_OSC2       = 0x4F
	MIDI_CC_WF_LFO        = 0x5B
	MIDI_CC_ENV_RELEASE   = 0x5C
	MIDI_CC_ENV_ATTACK    = 0x5D
	MIDI_CC_ENV_DECAY     = 0x5E
)

const (
	MIDI_DUMP_START = "MIDI_VALUES_START"
	MIDI_DUMP_END   = "MIDI_VALUES_END"

	PRESET_CC_STEP = 20
)

// Scalings from a 7-bit controller value to engine units.
func ccOsc2Frequency(v uint8) float32 { return float32(100 + float64(v)*1900/127) }
func ccAmplitude(v uint8) float32     { return float32(float64(v) * 15000 / 127) }
func ccLFOFrequency(v uint8) float32  { return float32(0.1 + float64(v)*19.9/127) }
func ccEnvelopeTime(v uint8) float32  { return float32(0.01 + float64(v)*0.99/127) }
func ccSustain(v uint8) float32       { return float32(float64(v) / 127) }
func ccWaveform(v uint8) Waveform     { return Waveform((v / 16) % 3) }
func ccPresetIndex(v uint8) int       { return int(v) / PRESET_CC_STEP }

// ccFromScaled rounds an inverse-scaled value back into 0..127.
func ccFromScaled(x float64) uint8 {
	return uint8(math.Max(0, math.Min(127, math.Round(x))))
}

func ccFromSwitch(on bool) uint8 {
	if on {
		return 127
	}
	return 0
}

func ccFromWaveform(w Waveform) uint8 { return uint8(w%3) * 16 }

// ccBinding ties a controller number to the parameter it drives. read is the
// inverse used by the dump; bindings without read are commands.
type ccBinding struct {
	cc    uint8
	apply func(c *MIDIController, v uint8) error
	read  func(c *MIDIController, snap Snapshot) uint8
}

var (
	ccBindings     []ccBinding
	ccBindingIndex map[uint8]*ccBinding
)

// The table refers back to MIDIController methods that range over it, so it
// is built in init.
func init() {
	ccBindings = []ccBinding{
		{MIDI_CC_OSC2_FREQ,
			func(c *MIDIController, v uint8) error { return c.synth.SetFrequency(ROLE_OSC2, ccOsc2Frequency(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled((float64(s.Osc2.Frequency) - 100) * 127 / 1900)
			}},
		{MIDI_CC_OSC2_AMP,
			func(c *MIDIController, v uint8) error { return c.synth.SetAmplitude(ROLE_OSC2, ccAmplitude(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled(float64(s.Osc2.Amplitude) * 127 / 15000)
			}},
		{MIDI_CC_OSC1_AMP,
			func(c *MIDIController, v uint8) error { return c.synth.SetAmplitude(ROLE_OSC1, ccAmplitude(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled(float64(s.Osc1.Amplitude) * 127 / 15000)
			}},
		{MIDI_CC_NOISE_AMP,
			func(c *MIDIController, v uint8) error { return c.synth.SetNoiseAmplitude(ccAmplitude(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled(float64(s.Synth.NoiseAmplitude) * 127 / 15000)
			}},
		{MIDI_CC_LFO_FREQ,
			func(c *MIDIController, v uint8) error { return c.synth.SetFrequency(ROLE_LFO, ccLFOFrequency(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled((float64(s.LFO.Frequency) - 0.1) * 127 / 19.9)
			}},
		{MIDI_CC_LFO_ENABLE,
			func(c *MIDIController, v uint8) error { c.synth.SetLFOEnabled(v != 0); return nil },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromSwitch(s.Synth.LFOEnabled) }},
		{MIDI_CC_OSC2_SYNC,
			func(c *MIDIController, v uint8) error { c.synth.SetOsc2SyncEnabled(v != 0); return nil },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromSwitch(s.Synth.Osc2SyncEnabled) }},
		{MIDI_CC_WF_OSC1,
			func(c *MIDIController, v uint8) error { return c.synth.SetWaveform(ROLE_OSC1, ccWaveform(v)) },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromWaveform(s.Osc1.Waveform) }},
		{MIDI_CC_WF_OSC2,
			func(c *MIDIController, v uint8) error { return c.synth.SetWaveform(ROLE_OSC2, ccWaveform(v)) },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromWaveform(s.Osc2.Waveform) }},
		{MIDI_CC_WF_LFO,
			func(c *MIDIController, v uint8) error { return c.synth.SetWaveform(ROLE_LFO, ccWaveform(v)) },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromWaveform(s.LFO.Waveform) }},
		{MIDI_CC_ENV_ATTACK,
			func(c *MIDIController, v uint8) error { return c.synth.SetEnvelopeAttack(ccEnvelopeTime(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled((float64(s.Envelope.Attack) - 0.01) * 127 / 0.99)
			}},
		{MIDI_CC_ENV_DECAY,
			func(c *MIDIController, v uint8) error { return c.synth.SetEnvelopeDecay(ccEnvelopeTime(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled((float64(s.Envelope.Decay) - 0.01) * 127 / 0.99)
			}},
		{MIDI_CC_ENV_SUSTAIN,
			func(c *MIDIController, v uint8) error { return c.synth.SetEnvelopeSustain(ccSustain(v)) },
			func(c *MIDIController, s Snapshot) uint8 { return ccFromScaled(float64(s.Envelope.Sustain) * 127) }},
		{MIDI_CC_ENV_RELEASE,
			func(c *MIDIController, v uint8) error { return c.synth.SetEnvelopeRelease(ccEnvelopeTime(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				return ccFromScaled((float64(s.Envelope.Release) - 0.01) * 127 / 0.99)
			}},
		{MIDI_CC_PRESET_SELECT,
			func(c *MIDIController, v uint8) error { return c.selectPreset(ccPresetIndex(v)) },
			func(c *MIDIController, s Snapshot) uint8 {
				if c.presets == nil {
					return 0
				}
				return ccFromScaled(float64(c.presets.Current() * PRESET_CC_STEP))
			}},
		{MIDI_CC_PRESET_SAVE,
			func(c *MIDIController, v uint8) error { return c.savePreset() },
			nil},
		{MIDI_CC_DUMP_PARAMS,
			func(c *MIDIController, v uint8) error { return c.DumpParameters() },
			nil},
	}

	ccBindingIndex = make(map[uint8]*ccBinding, len(ccBindings))
	for i := range ccBindings {
		ccBindingIndex[ccBindings[i].cc] = &ccBindings[i]
	}
}

// MIDIController turns MIDI messages into synth operations. It is shared by
// every note source (MIDI port, keyboard, script, display) and is safe for
// concurrent use.
type MIDIController struct {
	synth   *Synth
	presets *PresetBank
	logger  *slog.Logger

	dumpMu sync.Mutex
	dump   io.Writer
}

// NewMIDIController wires a controller. presets may be nil, in which case
// the preset CCs are ignored; dump receives the parameter dump (nil discards).
func NewMIDIController(synth *Synth, presets *PresetBank, dump io.Writer, logger *slog.Logger) *MIDIController {
	if logger == nil {
		logger = slog.Default()
	}
	if dump == nil {
		dump = io.Discard
	}
	return &MIDIController{
		synth:   synth,
		presets: presets,
		dump:    dump,
		logger:  logger.With("component", "midi"),
	}
}

// HandleMessage dispatches one message. Note-on with velocity 0 counts as a
// note-off. Messages the synth has no use for are ignored.
func (c *MIDIController) HandleMessage(msg midi.Message) error {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		c.logger.Debug("note on", "channel", channel, "key", key, "velocity", velocity)
		return c.synth.KeyPress(key, velocity)
	case msg.GetNoteEnd(&channel, &key):
		c.logger.Debug("note off", "channel", channel, "key", key)
		c.synth.KeyRelease(key)
		return nil
	case msg.GetControlChange(&channel, &controller, &value):
		c.logger.Debug("control change", "cc", fmt.Sprintf("%02X", controller), "value", value)
		return c.ControlChange(controller, value)
	}
	return nil
}

// ControlChange applies controller number cc with value v. Unknown numbers
// are ignored.
func (c *MIDIController) ControlChange(cc, v uint8) error {
	b, ok := ccBindingIndex[cc]
	if !ok {
		return nil
	}
	return b.apply(c, v)
}

func (c *MIDIController) selectPreset(index int) error {
	if c.presets == nil {
		c.logger.Warn("preset select ignored, no preset store", "index", index)
		return nil
	}
	return c.presets.Select(index)
}

func (c *MIDIController) savePreset() error {
	if c.presets == nil {
		c.logger.Warn("preset save ignored, no preset store")
		return nil
	}
	return c.presets.Save()
}

// ParameterDump renders the current parameters as controller values, one
// "CC:VV" hex line each, framed by the start and end markers.
func (c *MIDIController) ParameterDump() string {
	snap := c.synth.Snapshot()
	var sb strings.Builder
	sb.WriteString(MIDI_DUMP_START + "\n")
	for _, b := range ccBindings {
		if b.read == nil {
			continue
		}
		fmt.Fprintf(&sb, "%02X:%02X\n", b.cc, b.read(c, snap))
	}
	sb.WriteString(MIDI_DUMP_END + "\n")
	return sb.String()
}

// DumpParameters writes ParameterDump to the controller's dump writer.
func (c *MIDIController) DumpParameters() error {
	dump := c.ParameterDump()
	c.dumpMu.Lock()
	defer c.dumpMu.Unlock()
	if _, err := io.WriteString(c.dump, dump); err != nil {
		return fmt.Errorf("parameter dump: %w", err)
	}
	return nil
}

// RunMIDIInput reads a raw MIDI byte stream (a serial port or rawmidi node)
// and feeds every complete message to c. It returns nil at EOF or when ctx
// is cancelled. The blocked read is abandoned on cancel; closing r ends it.
func RunMIDIInput(ctx context.Context, r io.Reader, c *MIDIController) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)
	go func() {
		for {
			buf := make([]byte, 64)
			n, err := r.Read(buf)
			select {
			case chunks <- chunk{buf[:n], err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var framer MIDIFramer
	emit := func(msg midi.Message) {
		if err := c.HandleMessage(msg); err != nil {
			c.logger.Debug("midi message rejected", "msg", msg.String(), "err", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ch := <-chunks:
			framer.Write(ch.data, emit)
			if ch.err != nil {
				if errors.Is(ch.err, io.EOF) {
					c.logger.Info("midi input closed")
					return nil
				}
				return fmt.Errorf("midi input: %w", ch.err)
			}
		}
	}
}
