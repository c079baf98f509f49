package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
	"gitlab.com/gomidi/midi/v2"
)

// errRenderComplete stops a script once the render length is reached.
var errRenderComplete = errors.New("render length reached")

// scriptClock is how a script's sleep passes time.
type scriptClock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// wallClock sleeps in real time, for scripts driving live playback.
type wallClock struct{}

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// renderClock passes time by rendering periods into a sink. Fractions of a
// period are carried to the next sleep.
type renderClock struct {
	synth     *Synth
	sink      AudioSink
	remaining int // periods left in the render
	pending   float64
}

func (c *renderClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.pending += d.Seconds() / c.synth.Config().PeriodSeconds
	periods := int(c.pending)
	c.pending -= float64(periods)

	exhausted := periods >= c.remaining
	if exhausted {
		periods = c.remaining
	}
	if err := c.synth.RenderPeriods(c.sink, periods); err != nil {
		return err
	}
	c.remaining -= periods
	if exhausted {
		return errRenderComplete
	}
	return nil
}

// ScriptPlayer runs Lua note sequences against a MIDIController. Scripts see
// these globals:
//
//	note_on(key [, velocity])  velocity defaults to 100
//	note_off(key)
//	cc(controller, value)
//	preset(index)
//	sleep(ms)
type ScriptPlayer struct {
	ctrl   *MIDIController
	clock  scriptClock
	logger *slog.Logger

	stopErr error
}

func NewScriptPlayer(ctrl *MIDIController, clock scriptClock, logger *slog.Logger) *ScriptPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = wallClock{}
	}
	return &ScriptPlayer{
		ctrl:   ctrl,
		clock:  clock,
		logger: logger.With("component", "script"),
	}
}

// RunFile executes the script at path. It returns nil when ctx is cancelled
// mid-script.
func (p *ScriptPlayer) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return p.RunString(ctx, path, string(src))
}

func (p *ScriptPlayer) RunString(ctx context.Context, name, src string) error {
	return p.run(ctx, name, func(L *lua.LState) error { return L.DoString(src) })
}

func (p *ScriptPlayer) run(ctx context.Context, name string, exec func(*lua.LState) error) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	p.stopErr = nil
	p.register(ctx, L)

	p.logger.Info("script started", "script", name)
	err := exec(L)
	switch {
	case p.stopErr != nil:
		if errors.Is(p.stopErr, context.Canceled) || errors.Is(p.stopErr, context.DeadlineExceeded) {
			return nil
		}
		return p.stopErr
	case ctx.Err() != nil:
		return nil
	case err != nil:
		return fmt.Errorf("script %s: %w", name, err)
	}
	p.logger.Info("script finished", "script", name)
	return nil
}

func checkMIDIValue(L *lua.LState, n int) uint8 {
	v := L.CheckInt(n)
	if v < 0 || v > 127 {
		L.ArgError(n, "value out of MIDI range 0..127")
	}
	return uint8(v)
}

func (p *ScriptPlayer) send(msg midi.Message) {
	if err := p.ctrl.HandleMessage(msg); err != nil {
		p.logger.Debug("script message rejected", "msg", msg.String(), "err", err)
	}
}

func (p *ScriptPlayer) register(ctx context.Context, L *lua.LState) {
	L.SetGlobal("note_on", L.NewFunction(func(L *lua.LState) int {
		key := checkMIDIValue(L, 1)
		vel := uint8(KEYBOARD_VELOCITY)
		if L.GetTop() >= 2 {
			vel = checkMIDIValue(L, 2)
		}
		p.send(midi.NoteOn(0, key, vel))
		return 0
	}))
	L.SetGlobal("note_off", L.NewFunction(func(L *lua.LState) int {
		p.send(midi.NoteOff(0, checkMIDIValue(L, 1)))
		return 0
	}))
	L.SetGlobal("cc", L.NewFunction(func(L *lua.LState) int {
		p.send(midi.ControlChange(0, checkMIDIValue(L, 1), checkMIDIValue(L, 2)))
		return 0
	}))
	L.SetGlobal("preset", L.NewFunction(func(L *lua.LState) int {
		index := L.CheckInt(1)
		if index < 0 || index >= PRESET_COUNT {
			L.ArgError(1, fmt.Sprintf("preset index must be 0..%d", PRESET_COUNT-1))
		}
		p.send(midi.ControlChange(0, MIDI_CC_PRESET_SELECT, uint8(index*PRESET_CC_STEP)))
		return 0
	}))
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		if ms < 0 {
			L.ArgError(1, "negative sleep")
		}
		d := time.Duration(float64(ms) * float64(time.Millisecond))
		if err := p.clock.Sleep(ctx, d); err != nil {
			p.stopErr = err
			L.RaiseError("%v", err)
		}
		return 0
	}))
}
