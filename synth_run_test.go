package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSink accepts half a period on every shortEvery-th write and
// cancels the run after stopAfter writes.
type scriptedSink struct {
	mu         sync.Mutex
	writes     int
	bytes      int
	shortEvery int
	stopAfter  int
	cancel     context.CancelFunc
	err        error
}

func (s *scriptedSink) WritePeriod(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.writes++
	if s.writes >= s.stopAfter && s.cancel != nil {
		s.cancel()
	}
	n := len(p)
	if s.shortEvery > 0 && s.writes%s.shortEvery == 0 {
		n /= 2
	}
	s.bytes += n
	return n, nil
}

func (s *scriptedSink) Close() error { return nil }

func TestSynthRun_CountsUnderruns(t *testing.T) {
	s := newTestSynth(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &scriptedSink{shortEvery: 2, stopAfter: 4, cancel: cancel}
	require.NoError(t, s.Run(ctx, sink))

	stats := s.Stats()
	assert.Equal(t, uint64(4), stats.Periods)
	assert.Equal(t, uint64(2), stats.Underruns)
	assert.Equal(t, uint32(4*441), stats.Offset)
	assert.Equal(t, 4*1764-2*882, sink.bytes)
}

func TestSynthRun_ReturnsSinkError(t *testing.T) {
	s := newTestSynth(t)
	boom := errors.New("device gone")
	err := s.Run(context.Background(), &scriptedSink{err: boom})
	require.ErrorIs(t, err, boom)
}

func TestSynthRun_StopsOnCancelledContext(t *testing.T) {
	s := newTestSynth(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx, &scriptedSink{stopAfter: 1}))
	assert.Equal(t, uint32(0), s.Offset())
}

func TestRenderPeriods_ShortWriteIsUnderrun(t *testing.T) {
	s := newTestSynth(t)
	err := s.RenderPeriods(&scriptedSink{shortEvery: 3, stopAfter: 100}, 5)
	require.ErrorIs(t, err, ErrOutputUnderrun)
	assert.Equal(t, uint64(2), s.Stats().Periods)
}

func TestEncodePeriod_LittleEndian(t *testing.T) {
	out := encodePeriod(nil, []int16{1, -1, 0x1234, -32768})
	assert.Equal(t, []byte{0x01, 0x00, 0xFF, 0xFF, 0x34, 0x12, 0x00, 0x80}, out)

	reused := encodePeriod(out, []int16{2})
	assert.Equal(t, []byte{0x02, 0x00}, reused)
}

func TestNullSink_CloseUnblocks(t *testing.T) {
	sink := NewNullSink(SynthConfig{SampleRate: 44100, PeriodSeconds: 0.1, Channels: 2})
	require.NoError(t, sink.Close())
	_, err := sink.WritePeriod(make([]byte, 4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAudioSink_UnknownBackend(t *testing.T) {
	_, err := OpenAudioSink("pulse", DefaultSynthConfig(), "")
	assert.Error(t, err)
}
