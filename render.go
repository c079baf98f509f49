package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// RenderToWAV renders seconds of audio from synth into w as a 16-bit WAV.
// A non-empty script drives the notes, its sleeps advancing the render
// instead of waiting; whatever time the script leaves is rendered after it.
func RenderToWAV(ctx context.Context, synth *Synth, ctrl *MIDIController, w io.Writer, seconds float64, script string, logger *slog.Logger) error {
	if !(seconds > 0) {
		return fmt.Errorf("render length must be positive, got %g", seconds)
	}
	if logger == nil {
		logger = slog.Default()
	}
	config := synth.Config()
	periods := int(math.Ceil(seconds / config.PeriodSeconds))
	frames := uint32(periods * config.SamplesPerPeriod())

	sink, err := NewWAVSink(w, config, frames)
	if err != nil {
		return err
	}
	defer sink.Close()

	clock := &renderClock{synth: synth, sink: sink, remaining: periods}
	if script != "" {
		player := NewScriptPlayer(ctrl, clock, logger)
		if err := player.RunFile(ctx, script); err != nil && !errors.Is(err, errRenderComplete) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := synth.RenderPeriods(sink, clock.remaining); err != nil {
		return err
	}
	if left := sink.Remaining(); left != 0 {
		return fmt.Errorf("render stopped %d frames short of the wav header", left)
	}
	logger.Info("render complete", "component", "render", "seconds", seconds,
		"frames", frames, "periods", periods)
	return nil
}
