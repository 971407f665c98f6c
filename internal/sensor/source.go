package sensor

import (
	"math"
	"sync/atomic"
	"time"
)

// Source supplies raw pin reads. Read is called from the audio goroutine once
// per rod per block and must not block.
type Source interface {
	Read(rod int, now time.Duration) Inputs
}

// Idle is a Source whose rods never move.
type Idle struct{}

func (Idle) Read(int, time.Duration) Inputs { return IdleInputs() }

// encoderHold is the number of reads each quadrature state is held for.
const encoderHold = 2

type phase struct{ a, b bool }

var (
	// B leads: counts +1.
	detentUp = [4]phase{{true, false}, {false, false}, {false, true}, {true, true}}
	// A leads: counts -1.
	detentDown = [4]phase{{false, true}, {false, false}, {true, false}, {true, true}}
)

// Virtual is a Source driven from software: keyboard handlers or scripted
// renders turn encoders, hold buttons and spin rods, and the audio goroutine
// synthesizes the matching pin waveforms. Setters may be called from any
// goroutine; Read must only be called from one.
type Virtual struct {
	rods []virtualRod
}

type virtualRod struct {
	detents atomic.Int32
	button  atomic.Bool
	spin    atomic.Uint64

	// owned by the reader
	seq       *[4]phase
	step      int
	beamPhase float64
	lastRead  time.Duration
}

func NewVirtual(rods int) *Virtual {
	return &Virtual{rods: make([]virtualRod, rods)}
}

func (v *Virtual) valid(rod int) bool { return rod >= 0 && rod < len(v.rods) }

// Turn queues n encoder detents. Positive n moves the harmonic index down.
func (v *Virtual) Turn(rod, n int) {
	if v.valid(rod) {
		v.rods[rod].detents.Add(int32(n))
	}
}

// SetButton holds or releases the encoder button.
func (v *Virtual) SetButton(rod int, down bool) {
	if v.valid(rod) {
		v.rods[rod].button.Store(down)
	}
}

func (v *Virtual) Button(rod int) bool {
	return v.valid(rod) && v.rods[rod].button.Load()
}

// SetSpin sets the rod speed in revolutions per second.
func (v *Virtual) SetSpin(rod int, rps float64) {
	if !v.valid(rod) {
		return
	}
	if rps < 0 {
		rps = 0
	}
	v.rods[rod].spin.Store(math.Float64bits(rps))
}

func (v *Virtual) Spin(rod int) float64 {
	if !v.valid(rod) {
		return 0
	}
	return math.Float64frombits(v.rods[rod].spin.Load())
}

func (v *Virtual) Read(rod int, now time.Duration) Inputs {
	if !v.valid(rod) {
		return IdleInputs()
	}
	r := &v.rods[rod]
	in := Inputs{Button: r.button.Load()}
	in.EncoderA, in.EncoderB = r.encoder()

	dt := now - r.lastRead
	r.lastRead = now
	if rps := math.Float64frombits(r.spin.Load()); rps > 0 && dt > 0 {
		r.beamPhase += rps * PulsesPerRevolution * dt.Seconds()
		r.beamPhase = math.Mod(r.beamPhase, 2)
	}
	in.Beam = r.beamPhase >= 1
	return in
}

func (r *virtualRod) encoder() (a, b bool) {
	if r.seq == nil {
		switch d := r.detents.Load(); {
		case d > 0:
			r.detents.Add(-1)
			r.seq = &detentUp
		case d < 0:
			r.detents.Add(1)
			r.seq = &detentDown
		default:
			return true, true
		}
		r.step = 0
	}
	p := r.seq[r.step/encoderHold]
	r.step++
	if r.step == len(r.seq)*encoderHold {
		r.seq = nil
	}
	return p.a, p.b
}
