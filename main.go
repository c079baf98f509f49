// main.go - Main entry point for the Synthesmaller synthesizer

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147mSynthesmaller\033[0m \033[38;2;255;170;147msingle voice synthesizer\033[0m " + Version)
	fmt.Println("Two oscillators, an LFO, an ADSR envelope and a noise source.")
	fmt.Println("License: GPLv3 or later")
}

type options struct {
	sampleRate  uint
	periodMS    float64
	channels    int
	backend     string
	alsaDevice  string
	presetDir   string
	midiPath    string
	keyboard    bool
	display     bool
	script      string
	renderPath  string
	seconds     float64
	logLevel    string
	features    bool
	dumpToStdio bool
	control     bool
	controlPath string
	remote      string
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func main() {
	var opts options

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.UintVar(&opts.sampleRate, "rate", SYNTH_SAMPLE_RATE, "Output sample rate in Hz")
	flagSet.Float64Var(&opts.periodMS, "period-ms", SYNTH_PERIOD_SECONDS*1000, "Period length in milliseconds")
	flagSet.IntVar(&opts.channels, "channels", SYNTH_CHANNEL_COUNT, "Output channel count")
	flagSet.StringVar(&opts.backend, "backend", BACKEND_OTO, "Audio backend: oto, alsa or null")
	flagSet.StringVar(&opts.alsaDevice, "alsa-device", "default", "ALSA PCM device")
	flagSet.StringVar(&opts.presetDir, "presets", "presets", "Preset directory")
	flagSet.StringVar(&opts.midiPath, "midi", "", "Raw MIDI input device or file (e.g. /dev/snd/midiC1D0)")
	flagSet.BoolVar(&opts.keyboard, "keyboard", false, "Play notes from the computer keyboard")
	flagSet.BoolVar(&opts.display, "display", false, "Open the parameter panel window")
	flagSet.StringVar(&opts.script, "script", "", "Lua note sequence to play")
	flagSet.StringVar(&opts.renderPath, "render", "", "Render to a WAV file instead of playing")
	flagSet.Float64Var(&opts.seconds, "seconds", 10, "Render length in seconds")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.features, "features", false, "Print compiled features and exit")
	flagSet.BoolVar(&opts.dumpToStdio, "dump-stdout", true, "Write parameter dumps (CC 0x42) to stdout")
	flagSet.BoolVar(&opts.control, "control", false, "Accept commands from other processes on the control socket")
	flagSet.StringVar(&opts.controlPath, "control-socket", resolveControlSocketPath(), "Control socket path")
	flagSet.StringVar(&opts.remote, "remote", "", `Send a command to the running instance, e.g. "cc 76 127" or "script tune.lua"`)

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./synthesmaller [-backend oto|alsa|null] [-midi DEV] [-keyboard] [-display] [-script FILE.lua] [-render OUT.wav -seconds N] [-control] [-remote CMD]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if opts.features {
		printFeatures()
		return
	}

	if opts.remote != "" {
		req, err := parseControlCommand(strings.Fields(opts.remote))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		msg, err := SendControl(opts.controlPath, req)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(msg)
		return
	}

	level, err := parseLogLevel(opts.logLevel)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if opts.renderPath == "" {
		boilerPlate()
	}

	if err := run(opts, logger); err != nil {
		logger.Error("synthesmaller stopped", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	config := SynthConfig{
		SampleRate:    uint32(opts.sampleRate),
		PeriodSeconds: opts.periodMS / 1000,
		Channels:      opts.channels,
	}
	synth, err := NewSynth(config, logger)
	if err != nil {
		return fmt.Errorf("synth config: %w", err)
	}
	if err := synth.ApplyFullUpdate(DefaultSnapshot()); err != nil {
		return fmt.Errorf("default patch: %w", err)
	}

	store, err := NewPresetStore(opts.presetDir)
	if err != nil {
		return err
	}
	bank := NewPresetBank(store, synth, logger)

	var dump io.Writer
	if opts.dumpToStdio {
		dump = os.Stdout
	}
	ctrl := NewMIDIController(synth, bank, dump, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.renderPath != "" {
		return renderFile(ctx, opts, synth, ctrl, logger)
	}
	return play(ctx, opts, synth, ctrl, logger)
}

func renderFile(ctx context.Context, opts options, synth *Synth, ctrl *MIDIController, logger *slog.Logger) error {
	f, err := os.Create(opts.renderPath)
	if err != nil {
		return err
	}
	if err := RenderToWAV(ctx, synth, ctrl, f, opts.seconds, opts.script, logger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func play(ctx context.Context, opts options, synth *Synth, ctrl *MIDIController, logger *slog.Logger) error {
	var (
		server *ControlServer
		runCtx context.Context
	)
	if opts.control {
		scripts := func(path string) error {
			go func() {
				if err := NewScriptPlayer(ctrl, wallClock{}, logger).RunFile(runCtx, path); err != nil {
					logger.Warn("remote script failed", "component", "control", "script", path, "err", err)
				}
			}()
			return nil
		}
		var err error
		server, err = NewControlServer(opts.controlPath, ctrl, scripts, logger)
		if errors.Is(err, errControlBusy) && opts.script != "" {
			// hand the script to the instance that is already playing
			req, perr := parseControlCommand([]string{"script", opts.script})
			if perr != nil {
				return perr
			}
			if _, err := SendControl(opts.controlPath, req); err != nil {
				return err
			}
			logger.Info("script sent to running instance", "component", "control", "script", req.Path)
			return nil
		}
		if err != nil {
			return err
		}
		defer server.Stop()
	}

	var midiIn *os.File
	if opts.midiPath != "" {
		dev, err := os.Open(opts.midiPath)
		if err != nil {
			return fmt.Errorf("midi input: %w", err)
		}
		midiIn = dev
	}

	sink, err := OpenAudioSink(opts.backend, synth.Config(), opts.alsaDevice)
	if err != nil {
		if midiIn != nil {
			midiIn.Close()
		}
		return err
	}
	defer sink.Close()
	logger.Info("audio backend ready", "component", "audio", "backend", opts.backend)

	g, ctx := errgroup.WithContext(ctx)
	runCtx = ctx
	if server != nil {
		server.Start()
	}
	g.Go(func() error {
		return synth.Run(ctx, sink)
	})

	if midiIn != nil {
		g.Go(func() error {
			return RunMIDIInput(ctx, midiIn, ctrl)
		})
		g.Go(func() error {
			// unblocks the pending read once everything is shutting down
			<-ctx.Done()
			return midiIn.Close()
		})
	}
	if opts.keyboard {
		g.Go(func() error {
			return NewTerminalKeyboard(ctrl).Run(ctx)
		})
	}
	if opts.script != "" {
		g.Go(func() error {
			return NewScriptPlayer(ctrl, wallClock{}, logger).RunFile(ctx, opts.script)
		})
	}
	if opts.display {
		g.Go(func() error {
			return NewPanelDisplay(synth, ctrl, logger).Run(ctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}
