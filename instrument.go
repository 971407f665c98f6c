// Package rodsynth is a four-rod polyphonic instrument: MIDI notes drive a
// shared voice pool, and each spinning rod plays the held chord at its own
// harmonic with its own waveform, modulation and distance-controlled pitch.
package rodsynth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abcs/rodsynth/internal/controls"
	"github.com/abcs/rodsynth/internal/dispatch"
	"github.com/abcs/rodsynth/internal/distance"
	"github.com/abcs/rodsynth/internal/engine"
	"github.com/abcs/rodsynth/internal/sensor"
)

// EventSource yields decoded MIDI events without blocking.
type EventSource interface {
	Poll(dst []dispatch.Event) []dispatch.Event
}

type Option func(*instrumentConfig)

type instrumentConfig struct {
	params      engine.Params
	presets     *dispatch.Presets
	ranger      distance.Ranger
	distance    distance.Config
	source      sensor.Source
	pots        *controls.Pots
	events      []EventSource
	logger      *slog.Logger
	interval    time.Duration
	rangeEvery  int
	statsPeriod time.Duration
	sampleTap   func([]float32)
}

func defaultInstrumentConfig() instrumentConfig {
	return instrumentConfig{
		params:      engine.DefaultParams(),
		distance:    distance.DefaultConfig(),
		logger:      slog.Default(),
		interval:    time.Millisecond,
		rangeEvery:  10,
		statsPeriod: 5 * time.Second,
	}
}

func WithParams(p engine.Params) Option {
	return func(cfg *instrumentConfig) { cfg.params = p }
}

// WithPresets replaces the factory channel-to-preset table.
func WithPresets(p dispatch.Presets) Option {
	return func(cfg *instrumentConfig) { cfg.presets = &p }
}

// WithDistance attaches time-of-flight sensors. Without it every rod plays
// at full range.
func WithDistance(r distance.Ranger, c distance.Config) Option {
	return func(cfg *instrumentConfig) {
		cfg.ranger = r
		cfg.distance = c
	}
}

// WithSensorSource sets where rod encoder, button and beam reads come from.
func WithSensorSource(src sensor.Source) Option {
	return func(cfg *instrumentConfig) { cfg.source = src }
}

// WithPots attaches the gain and envelope potentiometers.
func WithPots(p controls.Pots) Option {
	return func(cfg *instrumentConfig) { cfg.pots = &p }
}

// WithEventSource adds a MIDI event source polled by the control loop.
func WithEventSource(src EventSource) Option {
	return func(cfg *instrumentConfig) {
		if src != nil {
			cfg.events = append(cfg.events, src)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *instrumentConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithLoopInterval sets the control loop period.
func WithLoopInterval(d time.Duration) Option {
	return func(cfg *instrumentConfig) { cfg.interval = d }
}

// WithRangeEvery sets how many control loop iterations pass between
// distance sensor sweeps.
func WithRangeEvery(n int) Option {
	return func(cfg *instrumentConfig) { cfg.rangeEvery = n }
}

// WithStatsPeriod sets how often Run logs engine counters at Debug level.
// Zero disables it.
func WithStatsPeriod(d time.Duration) Option {
	return func(cfg *instrumentConfig) { cfg.statsPeriod = d }
}

// WithSampleTap installs a callback invoked with each rendered stereo
// buffer. The callback runs on the audio goroutine; keep it brief.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *instrumentConfig) { cfg.sampleTap = tap }
}

// Instrument wires the engine to its control-side collaborators. Process is
// called by the audio sink; Step and Run belong to one control goroutine.
type Instrument struct {
	engine     *engine.Engine
	dispatcher *dispatch.Dispatcher
	ranges     *distance.Manager
	panel      *controls.Panel
	events     []EventSource
	logger     *slog.Logger
	sampleTap  func([]float32)

	interval    time.Duration
	rangeEvery  int
	statsPeriod time.Duration
	iter        int
	buf         []dispatch.Event
}

func New(sampleRate int, opts ...Option) (*Instrument, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultInstrumentConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.params.Capacity <= 0 {
		cfg.params.Capacity = engine.DefaultParams().Capacity
	}
	if cfg.interval <= 0 {
		return nil, errors.New("loop interval must be positive")
	}
	if cfg.rangeEvery < 1 {
		cfg.rangeEvery = 1
	}

	presets := dispatch.DefaultPresets(cfg.params.Capacity)
	if cfg.presets != nil {
		presets = *cfg.presets
	}
	if err := presets.Validate(cfg.params.Capacity); err != nil {
		return nil, err
	}

	in := &Instrument{
		logger:      cfg.logger,
		events:      cfg.events,
		sampleTap:   cfg.sampleTap,
		interval:    cfg.interval,
		rangeEvery:  cfg.rangeEvery,
		statsPeriod: cfg.statsPeriod,
	}
	engineOpts := []engine.Option{engine.WithSource(cfg.source)}
	if cfg.ranger != nil {
		m, err := distance.NewManager(cfg.ranger, cfg.distance)
		if err != nil {
			return nil, err
		}
		in.ranges = m
		engineOpts = append(engineOpts, engine.WithRanges(m))
	}
	eng, err := engine.New(sampleRate, cfg.params, engineOpts...)
	if err != nil {
		return nil, err
	}
	in.engine = eng
	if cfg.pots != nil {
		in.panel = controls.NewPanel(*cfg.pots)
	}
	in.dispatcher = dispatch.New(eng, presets, cfg.logger)
	in.dispatcher.Start()
	return in, nil
}

// Process renders interleaved stereo into dst.
func (in *Instrument) Process(dst []float32) {
	in.engine.Process(dst)
	if in.sampleTap != nil {
		in.sampleTap(dst)
	}
}

func (in *Instrument) Engine() *engine.Engine { return in.engine }

// Handle applies one MIDI event.
func (in *Instrument) Handle(ev dispatch.Event) { in.dispatcher.Handle(ev) }

// SetPresets swaps the channel-to-preset table, as on a config reload.
func (in *Instrument) SetPresets(p dispatch.Presets) error {
	if err := p.Validate(in.engine.Capacity()); err != nil {
		return err
	}
	in.dispatcher.SetPresets(p)
	return nil
}

// Step runs one control loop iteration: pending MIDI, then the pots, then a
// distance sweep every rangeEvery iterations.
func (in *Instrument) Step() {
	in.buf = in.buf[:0]
	for _, src := range in.events {
		in.buf = src.Poll(in.buf)
	}
	for _, ev := range in.buf {
		in.dispatcher.Handle(ev)
	}
	if in.panel != nil {
		in.panel.Poll(in.engine)
	}
	if in.ranges != nil && in.iter%in.rangeEvery == 0 {
		if err := in.ranges.UpdateRanges(); err != nil {
			in.logger.Debug("distance sweep incomplete", "err", err)
		}
	}
	in.iter++
}

// Run drives Step until ctx is done.
func (in *Instrument) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(in.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				in.Step()
			}
		}
	})
	if in.statsPeriod > 0 {
		g.Go(func() error {
			in.logStats(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (in *Instrument) logStats(ctx context.Context) {
	ticker := time.NewTicker(in.statsPeriod)
	defer ticker.Stop()
	var lastDropped uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		e := in.engine
		dropped := e.Dropped()
		attrs := []any{
			"active", e.ActiveVoices(),
			"polyphony", e.Polyphony(),
			"mode", in.dispatcher.Mode(),
			"elapsed", e.Elapsed().Round(time.Millisecond),
		}
		for i := 0; i < engine.NumRods; i++ {
			r := e.Rod(i)
			attrs = append(attrs, slog.Group("rod"+strconv.Itoa(i),
				"harmonic", r.Harmonic,
				"wave", r.Waveform.String(),
				"target", r.Target.String(),
				"rps", r.Speed,
				"gain", r.Gain,
			))
		}
		in.logger.Debug("engine", attrs...)
		if dropped != lastDropped {
			in.logger.Warn("engine commands dropped", "total", dropped, "new", dropped-lastDropped)
			lastDropped = dropped
		}
	}
}
