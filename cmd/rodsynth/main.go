// Command rodsynth runs the instrument live: MIDI in, rods and distance from
// the computer keyboard, sound out through ebiten or oto.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"github.com/abcs/rodsynth"
	"github.com/abcs/rodsynth/internal/config"
	"github.com/abcs/rodsynth/internal/controls"
	"github.com/abcs/rodsynth/internal/distance"
	"github.com/abcs/rodsynth/internal/engine"
	"github.com/abcs/rodsynth/internal/keys"
	"github.com/abcs/rodsynth/internal/midiin"
	"github.com/abcs/rodsynth/internal/sensor"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		configPath = flag.String("config", "rodsynth.json", "config file; written with defaults if missing")
		debug      = flag.Bool("debug", false, "enable debug logging (adds source location)")
		backend    = flag.String("audio", "ebiten", "audio backend: ebiten|oto")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (0 = from config)")
		midiPort   = flag.String("midi", "", "MIDI input port name substring (overrides config)")
		noMIDI     = flag.Bool("no-midi", false, "do not open a MIDI input")
		listMIDI   = flag.Bool("list-midi", false, "print MIDI input ports and exit")
		noKeys     = flag.Bool("no-keys", false, "do not read the terminal keyboard")
	)
	flag.Parse()
	initLogger(*debug)
	defer midi.CloseDriver()

	if *listMIDI {
		for i, name := range midiin.Ports() {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	if err := run(*configPath, *backend, *sampleRate, *midiPort, !*noMIDI, !*noKeys); err != nil {
		logger.Error("rodsynth stopped", "err", err)
		os.Exit(1)
	}
}

func run(configPath, backend string, sampleRate int, midiPort string, useMIDI, useKeys bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if sampleRate > 0 {
		cfg.SampleRate = sampleRate
	}
	if strings.TrimSpace(midiPort) != "" {
		cfg.MIDIPort = midiPort
	}
	presets, err := cfg.ToPresets()
	if err != nil {
		return err
	}
	logger.Info("rodsynth starting",
		"config", configPath,
		"sample_rate", cfg.SampleRate,
		"capacity", cfg.Capacity,
		"audio", backend,
		"midi_port", cfg.MIDIPort,
	)

	distCfg := cfg.DistanceConfig()
	rods := sensor.NewVirtual(engine.NumRods)
	ranges := distance.NewVirtual(len(distCfg.Mapping), int(distCfg.MaxMM))
	gainPot := controls.NewVirtualPot(1 - cfg.MasterGain)

	opts := []rodsynth.Option{
		rodsynth.WithParams(engine.Params{Capacity: cfg.Capacity, MasterGain: cfg.MasterGain}),
		rodsynth.WithPresets(presets),
		rodsynth.WithSensorSource(rods),
		rodsynth.WithDistance(ranges, distCfg),
		rodsynth.WithRangeEvery(cfg.Distance.UpdateEvery),
		rodsynth.WithPots(controls.Pots{Gain: gainPot}),
		rodsynth.WithLogger(logger),
	}
	if useMIDI {
		in, err := midiin.Open(cfg.MIDIPort, logger)
		if err != nil {
			logger.Warn("no MIDI input, continuing with the keyboard only", "err", err)
		} else {
			defer in.Close()
			opts = append(opts, rodsynth.WithEventSource(in))
		}
	}
	var kb *keys.Keyboard
	if useKeys {
		kb = keys.New(rods, engine.NumRods,
			keys.WithRanges(ranges, distCfg.Mapping),
			keys.WithGainPot(gainPot),
			keys.WithLogger(logger),
		)
		opts = append(opts, rodsynth.WithEventSource(kb))
	}

	inst, err := rodsynth.New(cfg.SampleRate, opts...)
	if err != nil {
		return err
	}
	pl, err := rodsynth.NewPlayer(inst, backend)
	if err != nil {
		return err
	}
	if err := pl.Play(); err != nil {
		return fmt.Errorf("start audio: %w", err)
	}
	defer func() {
		if err := pl.Stop(); err != nil {
			logger.Warn("audio stop", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return inst.Run(ctx)
	})
	if kb != nil {
		g.Go(func() error {
			err := keys.RunTerminal(ctx, kb)
			if errors.Is(err, keys.ErrNotTerminal) {
				logger.Warn("keyboard disabled", "err", err)
				return nil
			}
			// A quit key ends the whole instrument.
			cancel()
			return err
		})
	}
	if cfg.Watch {
		g.Go(func() error {
			return config.Watch(ctx, configPath, logger, func(c *config.Config) {
				p, err := c.ToPresets()
				if err == nil {
					err = inst.SetPresets(p)
				}
				if err != nil {
					logger.Warn("presets not applied", "err", err)
					return
				}
				logger.Info("presets applied", "channels", len(p.ByChannel))
			})
		})
	}
	logger.Info("rodsynth running; press q to quit")
	err = g.Wait()
	logger.Info("rodsynth shutting down")
	return err
}
