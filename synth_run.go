package main

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Run is the real-time producer: it renders a period, hands it to sink and
// repeats until ctx is done. A short write is counted as an underrun and the
// loop carries on with the next period. Sink errors end the loop.
func (s *Synth) Run(ctx context.Context, sink AudioSink) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	periodBudget := time.Duration(s.config.PeriodSeconds * float64(time.Second))
	var (
		buf         []byte
		busy        time.Duration
		elapsed     time.Duration
		lastReport  = time.Now()
		reportEvery = time.Second
	)

	s.logger.Info("producer started", "sample_rate", s.config.SampleRate,
		"period_samples", s.config.SamplesPerPeriod(), "channels", s.config.Channels)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("producer stopped", "periods", s.status.snapshot().Periods)
			return nil
		}

		start := time.Now()
		buf = encodePeriod(buf, s.ProducePeriod())
		busy += time.Since(start)
		elapsed += periodBudget

		n, err := sink.WritePeriod(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("audio sink: %w", err)
		}
		underrun := n < len(buf)
		if underrun {
			s.logger.Warn("output underrun", "err", ErrOutputUnderrun, "requested", len(buf), "accepted", n)
		}
		s.status.recordPeriod(s.Offset(), underrun)

		if time.Since(lastReport) >= reportEvery {
			load := 100 * busy.Seconds() / elapsed.Seconds()
			s.status.setLoad(load)
			s.logger.Info("calculation load", "load_percent", fmt.Sprintf("%.2f", load))
			busy, elapsed = 0, 0
			lastReport = time.Now()
		}
	}
}

// Stats returns the producer counters.
func (s *Synth) Stats() SynthStats {
	return s.status.snapshot()
}

// RenderPeriods produces n periods into sink without pacing. Used for
// offline rendering; an underrun here is an error.
func (s *Synth) RenderPeriods(sink AudioSink, n int) error {
	var buf []byte
	for i := 0; i < n; i++ {
		buf = encodePeriod(buf, s.ProducePeriod())
		written, err := sink.WritePeriod(buf)
		if err != nil {
			return err
		}
		if written < len(buf) {
			return fmt.Errorf("%w: accepted %d of %d bytes", ErrOutputUnderrun, written, len(buf))
		}
		s.status.recordPeriod(s.Offset(), false)
	}
	return nil
}
