// Package engine runs the instrument's audio path. It owns the voice pool,
// the four rod banks and their sensors, and renders interleaved stereo in
// blocks of four frames. Control goroutines talk to it through a bounded
// command queue that the audio goroutine drains at each block boundary.
package engine

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/abcs/rodsynth/internal/dsp"
	"github.com/abcs/rodsynth/internal/rod"
	"github.com/abcs/rodsynth/internal/sensor"
	"github.com/abcs/rodsynth/internal/voice"
)

const (
	NumRods   = 4
	BlockSize = 4
)

// Waveforms maps a sensor waveform index to an oscillator shape.
var Waveforms = [sensor.NumWaveforms]dsp.Waveform{
	dsp.WaveSine,
	dsp.WaveTriangle,
	dsp.WaveSaw,
	dsp.WaveSquare,
}

// Ranges supplies one normalized distance per rod. Reads happen on the audio
// goroutine and must not block.
type Ranges interface {
	GetNormalizedRange(rod int) float64
}

type fullRange struct{}

func (fullRange) GetNormalizedRange(int) float64 { return 1 }

type Params struct {
	Capacity   int
	MasterGain float64
	QueueSize  int
}

func DefaultParams() Params {
	return Params{Capacity: 5, MasterGain: 1, QueueSize: 256}
}

type Option func(*Engine)

// WithSource sets where rod pin reads come from. The default is a rod that
// never moves.
func WithSource(src sensor.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.source = src
		}
	}
}

// WithRanges sets the distance collaborator. The default reports full range
// for every rod.
func WithRanges(r Ranges) Option {
	return func(e *Engine) {
		if r != nil {
			e.ranges = r
		}
	}
}

// RodStatus is a snapshot of one rod published after every Process call.
type RodStatus struct {
	Harmonic int
	Waveform dsp.Waveform
	Target   rod.Target
	Speed    float64
	Gain     float64
}

type rodStatus struct {
	harmonic atomic.Int32
	waveform atomic.Int32
	target   atomic.Int32
	speed    atomic.Uint64
	gain     atomic.Uint64
}

type Engine struct {
	sampleRate float64
	pool       *voice.Pool
	banks      [NumRods]*rod.Bank
	sensors    [NumRods]sensor.Sensor
	source     sensor.Source
	ranges     Ranges
	amps       []float64
	cmds       *ring
	frames     uint64
	blockPos   int

	masterGain uint64
	dropped    atomic.Uint64
	elapsed    atomic.Uint64
	active     atomic.Int32
	polyphony  atomic.Int32
	status     [NumRods]rodStatus
}

func New(sampleRate int, params Params, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if params.Capacity <= 0 {
		params.Capacity = DefaultParams().Capacity
	}
	if params.QueueSize <= 0 {
		params.QueueSize = DefaultParams().QueueSize
	}
	sr := float64(sampleRate)
	pool, err := voice.NewPool(params.Capacity, sr)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		sampleRate: sr,
		pool:       pool,
		source:     sensor.Idle{},
		ranges:     fullRange{},
		amps:       make([]float64, params.Capacity),
		cmds:       newRing(params.QueueSize),
	}
	for i := range e.banks {
		b, err := rod.New(params.Capacity, sr)
		if err != nil {
			return nil, err
		}
		b.SetHarmonic(i + 1)
		e.banks[i] = b
		e.sensors[i] = sensor.New(i + 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetMasterGain(params.MasterGain)
	e.publish()
	return e, nil
}

func (e *Engine) SampleRate() int { return int(e.sampleRate) }
func (e *Engine) Capacity() int   { return e.pool.Capacity() }

// SetMasterGain takes effect on the next Process call.
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// Process renders len(dst)/2 interleaved stereo frames. Both channels carry
// the same mono mix. It must only be called from the audio goroutine.
func (e *Engine) Process(dst []float32) {
	gain := e.MasterGain() / NumRods
	for i := 0; i+1 < len(dst); i += 2 {
		if e.blockPos == 0 {
			e.runBlock()
		}
		e.pool.Process(e.amps)
		var sum float64
		for _, b := range e.banks {
			sum += b.Process(e.amps)
		}
		s := float32(sum * gain)
		dst[i], dst[i+1] = s, s

		e.frames++
		e.blockPos++
		if e.blockPos == BlockSize {
			e.blockPos = 0
		}
	}
	e.publish()
}

// now is the engine clock, derived from frames rendered.
func (e *Engine) now() time.Duration {
	return time.Duration(float64(e.frames) / e.sampleRate * float64(time.Second))
}

func (e *Engine) runBlock() {
	e.drain()
	now := e.now()
	for i, b := range e.banks {
		s := &e.sensors[i]
		s.Process(now, e.source.Read(i, now))
		b.SetLfoFreq(s.RotationSpeed())
		b.SetHarmonic(s.HarmonicIndex())
		b.SetOscWaveform(Waveforms[s.WaveformIndex()])
		b.SetRange(e.ranges.GetNormalizedRange(i))
		if s.LongPressEdge() {
			b.IncrementLfoTarget()
		}
		b.Tick()
	}
}

func (e *Engine) publish() {
	e.elapsed.Store(e.frames)
	e.active.Store(int32(e.pool.ActiveCount()))
	e.polyphony.Store(int32(e.pool.Polyphony()))
	for i, b := range e.banks {
		st := &e.status[i]
		st.harmonic.Store(int32(b.Harmonic()))
		st.waveform.Store(int32(b.Waveform()))
		st.target.Store(int32(b.LfoTarget()))
		st.speed.Store(math.Float64bits(e.sensors[i].RotationSpeed()))
		st.gain.Store(math.Float64bits(b.Gain()))
	}
}

// ActiveVoices is the number of sounding voices as of the last Process call.
func (e *Engine) ActiveVoices() int { return int(e.active.Load()) }

// Polyphony is the usable voice count as of the last Process call.
func (e *Engine) Polyphony() int { return int(e.polyphony.Load()) }

// Dropped counts commands rejected because the queue was full.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// Pending is the number of queued commands not yet applied.
func (e *Engine) Pending() int { return e.cmds.len() }

// Elapsed is the audio time rendered so far.
func (e *Engine) Elapsed() time.Duration {
	return time.Duration(float64(e.elapsed.Load()) / e.sampleRate * float64(time.Second))
}

// Rod returns the last published status of rod i.
func (e *Engine) Rod(i int) RodStatus {
	if i < 0 || i >= NumRods {
		return RodStatus{}
	}
	st := &e.status[i]
	return RodStatus{
		Harmonic: int(st.harmonic.Load()),
		Waveform: dsp.Waveform(st.waveform.Load()),
		Target:   rod.Target(st.target.Load()),
		Speed:    math.Float64frombits(st.speed.Load()),
		Gain:     math.Float64frombits(st.gain.Load()),
	}
}
