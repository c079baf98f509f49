package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// AudioSink consumes periods of interleaved little-endian int16 samples.
// WritePeriod returns how many bytes were accepted; fewer than len(p) is an
// underrun and the remainder is lost.
type AudioSink interface {
	WritePeriod(p []byte) (int, error)
	Close() error
}

const (
	BACKEND_OTO  = "oto"
	BACKEND_ALSA = "alsa"
	BACKEND_NULL = "null"
)

// encodePeriod writes samples into dst as int16 LE and returns the filled
// prefix. dst is grown if needed.
func encodePeriod(dst []byte, samples []int16) []byte {
	need := len(samples) * OUTPUT_SAMPLE_BYTES
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*OUTPUT_SAMPLE_BYTES:], uint16(s))
	}
	return dst
}

// OpenAudioSink opens the named live backend for config.
func OpenAudioSink(backend string, config SynthConfig, alsaDevice string) (AudioSink, error) {
	switch backend {
	case BACKEND_OTO:
		sink, err := NewOtoSink(config)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case BACKEND_ALSA:
		sink, err := NewALSASink(alsaDevice, config)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case BACKEND_NULL:
		return NewNullSink(config), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

// NullSink discards audio at the real-time rate. It stands in for a device
// when none is wanted, pacing the producer like a device would.
type NullSink struct {
	ticker *time.Ticker
	ctx    context.Context
	cancel context.CancelFunc
}

func NewNullSink(config SynthConfig) *NullSink {
	period := time.Duration(config.PeriodSeconds * float64(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	return &NullSink{
		ticker: time.NewTicker(period),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *NullSink) WritePeriod(p []byte) (int, error) {
	select {
	case <-s.ticker.C:
		return len(p), nil
	case <-s.ctx.Done():
		return 0, s.ctx.Err()
	}
}

func (s *NullSink) Close() error {
	s.cancel()
	s.ticker.Stop()
	return nil
}
