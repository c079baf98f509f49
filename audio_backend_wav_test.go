package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wav "github.com/youpy/go-wav"
)

const wavHeaderBytes = 44

// readWAV decodes buf and returns the format and the left-channel samples.
func readWAV(t *testing.T, buf []byte) (*wav.WavFormat, []int) {
	t.Helper()
	r := wav.NewReader(bytes.NewReader(buf))
	format, err := r.Format()
	require.NoError(t, err)

	var left []int
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		for _, s := range samples {
			left = append(left, r.IntValue(s, 0))
		}
	}
	return format, left
}

func TestWAVSink_WritesWholeFrames(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultSynthConfig()
	sink, err := NewWAVSink(&buf, cfg, 441)
	require.NoError(t, err)

	samples := make([]int16, 882)
	for i := range samples {
		samples[i] = int16(i/2 - 220)
	}
	n, err := sink.WritePeriod(encodePeriod(nil, samples))
	require.NoError(t, err)
	assert.Equal(t, 1764, n)
	assert.Equal(t, uint32(0), sink.Remaining())
	require.NoError(t, sink.Close())
	assert.Equal(t, wavHeaderBytes+1764, buf.Len())

	format, left := readWAV(t, buf.Bytes())
	assert.Equal(t, uint16(2), format.NumChannels)
	assert.Equal(t, uint32(44100), format.SampleRate)
	assert.Equal(t, uint16(16), format.BitsPerSample)
	require.Len(t, left, 441)
	assert.Equal(t, -220, left[0])
	assert.Equal(t, 220, left[440])
}

func TestWAVSink_DropsPastDeclaredLength(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewWAVSink(&buf, DefaultSynthConfig(), 100)
	require.NoError(t, err)

	n, err := sink.WritePeriod(make([]byte, 1764))
	require.NoError(t, err)
	assert.Equal(t, 1764, n, "a full sink never reports an underrun")
	assert.Equal(t, wavHeaderBytes+400, buf.Len())
}

func TestWAVSink_RejectsSurround(t *testing.T) {
	_, err := NewWAVSink(io.Discard, SynthConfig{SampleRate: 44100, PeriodSeconds: 0.01, Channels: 6}, 1)
	assert.Error(t, err)
}

func TestRenderToWAV_Silence(t *testing.T) {
	s := newTestSynth(t)
	var buf bytes.Buffer
	require.NoError(t, RenderToWAV(context.Background(), s, newTestController(t, s, nil, nil), &buf, 0.01, "", discardLogger()))
	assert.Equal(t, wavHeaderBytes+1764, buf.Len())

	_, left := readWAV(t, buf.Bytes())
	require.Len(t, left, 441)
	for _, v := range left {
		require.Equal(t, 0, v)
	}
}

func TestRenderToWAV_Script(t *testing.T) {
	script := filepath.Join(t.TempDir(), "tune.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
note_on(69, 127)
sleep(50)
note_off(69)
sleep(1000)
note_on(72)
`), 0o644))

	s := newTestSynth(t)
	var buf bytes.Buffer
	require.NoError(t, RenderToWAV(context.Background(), s, newTestController(t, s, nil, nil), &buf, 0.1, script, discardLogger()))

	_, left := readWAV(t, buf.Bytes())
	require.Len(t, left, 4410)
	nonZero := 0
	for _, v := range left[:2205] {
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 1000, "the note sounds during the first 50 ms")
	assert.Equal(t, uint32(4410), s.Offset())
	assert.Equal(t, float32(440), s.Snapshot().Osc1.Frequency, "script stopped before the last note")
}

func TestRenderToWAV_RejectsBadLength(t *testing.T) {
	s := newTestSynth(t)
	err := RenderToWAV(context.Background(), s, newTestController(t, s, nil, nil), io.Discard, 0, "", nil)
	assert.Error(t, err)
}
