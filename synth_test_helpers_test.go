package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSynth returns a synth at the default device settings with the
// start-up patch applied.
func newTestSynth(t *testing.T) *Synth {
	t.Helper()
	s, err := NewSynth(DefaultSynthConfig(), discardLogger())
	require.NoError(t, err)
	require.NoError(t, s.ApplyFullUpdate(DefaultSnapshot()))
	return s
}

func newTestController(t *testing.T, s *Synth, bank *PresetBank, dump io.Writer) *MIDIController {
	t.Helper()
	return NewMIDIController(s, bank, dump, discardLogger())
}
