package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Preset blobs are the five parameter records written back to back in
// little-endian order with no framing.
const (
	PRESET_OSC_RECORD_SIZE      = 12
	PRESET_ENVELOPE_RECORD_SIZE = 20
	PRESET_SYNTH_RECORD_SIZE    = 8
	PRESET_BLOB_SIZE            = 3*PRESET_OSC_RECORD_SIZE + PRESET_ENVELOPE_RECORD_SIZE + PRESET_SYNTH_RECORD_SIZE

	// Older blobs carry only the two switches in the synth record.
	PRESET_LEGACY_SYNTH_RECORD_SIZE = 2
	PRESET_LEGACY_BLOB_SIZE         = 3*PRESET_OSC_RECORD_SIZE + PRESET_ENVELOPE_RECORD_SIZE + PRESET_LEGACY_SYNTH_RECORD_SIZE
)

type presetSynthRecord struct {
	LFOEnabled      uint8
	Osc2SyncEnabled uint8
	_               [2]uint8
	NoiseAmplitude  float32
}

type presetLegacySynthRecord struct {
	LFOEnabled      uint8
	Osc2SyncEnabled uint8
}

type presetRecords struct {
	Osc1     OscillatorParams
	Osc2     OscillatorParams
	LFO      OscillatorParams
	Envelope EnvelopeParams
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// EncodePreset serializes snap in the current blob layout.
func EncodePreset(snap Snapshot) []byte {
	var buf bytes.Buffer
	buf.Grow(PRESET_BLOB_SIZE)
	// bytes.Buffer writes cannot fail
	_ = binary.Write(&buf, binary.LittleEndian, presetRecords{
		Osc1:     snap.Osc1,
		Osc2:     snap.Osc2,
		LFO:      snap.LFO,
		Envelope: snap.Envelope,
	})
	_ = binary.Write(&buf, binary.LittleEndian, presetSynthRecord{
		LFOEnabled:      boolByte(snap.Synth.LFOEnabled),
		Osc2SyncEnabled: boolByte(snap.Synth.Osc2SyncEnabled),
		NoiseAmplitude:  snap.Synth.NoiseAmplitude,
	})
	return buf.Bytes()
}

// DecodePreset parses a current or legacy blob. Values are not validated
// here; applying them to a Synth does that.
func DecodePreset(blob []byte) (Snapshot, error) {
	if len(blob) != PRESET_BLOB_SIZE && len(blob) != PRESET_LEGACY_BLOB_SIZE {
		return Snapshot{}, fmt.Errorf("%w: %d bytes", ErrInvalidPreset, len(blob))
	}

	r := bytes.NewReader(blob)
	var rec presetRecords
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	snap := Snapshot{Osc1: rec.Osc1, Osc2: rec.Osc2, LFO: rec.LFO, Envelope: rec.Envelope}

	if len(blob) == PRESET_LEGACY_BLOB_SIZE {
		var legacy presetLegacySynthRecord
		if err := binary.Read(r, binary.LittleEndian, &legacy); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
		}
		snap.Synth = SynthParams{
			LFOEnabled:      legacy.LFOEnabled != 0,
			Osc2SyncEnabled: legacy.Osc2SyncEnabled != 0,
		}
		return snap, nil
	}

	var synth presetSynthRecord
	if err := binary.Read(r, binary.LittleEndian, &synth); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	snap.Synth = SynthParams{
		LFOEnabled:      synth.LFOEnabled != 0,
		Osc2SyncEnabled: synth.Osc2SyncEnabled != 0,
		NoiseAmplitude:  synth.NoiseAmplitude,
	}
	return snap, nil
}
