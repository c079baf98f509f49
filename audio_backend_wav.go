package main

import (
	"encoding/binary"
	"fmt"
	"io"

	wav "github.com/youpy/go-wav"
)

// WAVSink writes periods into a 16-bit PCM WAV stream. go-wav needs the
// sample count up front, so the sink is sized for the whole render and drops
// anything past it.
type WAVSink struct {
	writer     *wav.Writer
	channels   int
	remaining  uint32
	samples    []wav.Sample
	frameBytes int
}

func NewWAVSink(w io.Writer, config SynthConfig, frames uint32) (*WAVSink, error) {
	if config.Channels > 2 {
		return nil, fmt.Errorf("wav output supports at most 2 channels, got %d", config.Channels)
	}
	return &WAVSink{
		writer:     wav.NewWriter(w, frames, uint16(config.Channels), config.SampleRate, 16),
		channels:   config.Channels,
		remaining:  frames,
		samples:    make([]wav.Sample, config.SamplesPerPeriod()),
		frameBytes: config.Channels * OUTPUT_SAMPLE_BYTES,
	}, nil
}

// WritePeriod accepts whole frames only. It never underruns.
func (s *WAVSink) WritePeriod(p []byte) (int, error) {
	frames := len(p) / s.frameBytes
	if uint32(frames) > s.remaining {
		frames = int(s.remaining)
	}
	if frames == 0 {
		return len(p), nil
	}
	if cap(s.samples) < frames {
		s.samples = make([]wav.Sample, frames)
	}
	samples := s.samples[:frames]
	for i := range samples {
		frame := p[i*s.frameBytes:]
		for c := 0; c < s.channels; c++ {
			samples[i].Values[c] = int(int16(binary.LittleEndian.Uint16(frame[c*OUTPUT_SAMPLE_BYTES:])))
		}
	}
	if err := s.writer.WriteSamples(samples); err != nil {
		return 0, fmt.Errorf("wav write: %w", err)
	}
	s.remaining -= uint32(frames)
	return len(p), nil
}

// Remaining is the number of frames still expected by the WAV header.
func (s *WAVSink) Remaining() uint32 {
	return s.remaining
}

func (s *WAVSink) Close() error {
	return nil
}
