//go:build headless

package main

import (
	"context"
	"time"
)

func init() {
	compiledFeatures = append(compiledFeatures, "audio:oto-headless")
}

// OtoSink in headless builds drains its ring at the real-time rate instead
// of handing it to a device.
type OtoSink struct {
	ring    *AudioRingBuffer
	timeout time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

const OTO_RING_PERIODS = 4

func NewOtoSink(config SynthConfig) (*OtoSink, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &OtoSink{
		ring:    NewAudioRingBuffer(OTO_RING_PERIODS * config.PeriodBytes()),
		timeout: SINK_WRITE_TIMEOUT_MS * time.Millisecond,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.drain(ctx, config)
	return s, nil
}

func (s *OtoSink) drain(ctx context.Context, config SynthConfig) {
	defer close(s.done)
	ticker := time.NewTicker(time.Duration(config.PeriodSeconds * float64(time.Second)))
	defer ticker.Stop()
	buf := make([]byte, config.PeriodBytes())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ring.Read(buf); err != nil {
				return
			}
		}
	}
}

func (s *OtoSink) WritePeriod(p []byte) (int, error) {
	return s.ring.WriteTimeout(p, s.timeout)
}

func (s *OtoSink) Close() error {
	s.cancel()
	s.ring.Close()
	<-s.done
	return nil
}
