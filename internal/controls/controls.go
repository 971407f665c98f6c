// Package controls reads the instrument's front-panel potentiometers and
// turns them into master gain and envelope changes, with hysteresis against
// pot jitter.
package controls

import (
	"math"
	"sync/atomic"
)

const (
	// Hysteresis is the smallest pot movement that counts as a change.
	Hysteresis = 0.03

	gainFloor = 0.04
	timeScale = 5.0
)

// Pot is a normalized [0, 1] analog reading.
type Pot interface {
	Value() float64
}

// VirtualPot is a Pot set from software. It is safe for concurrent use.
type VirtualPot struct {
	bits atomic.Uint64
}

func NewVirtualPot(v float64) *VirtualPot {
	p := &VirtualPot{}
	p.Set(v)
	return p
}

func (p *VirtualPot) Set(v float64) {
	p.bits.Store(math.Float64bits(clamp01(v)))
}

// Add moves the pot by delta, clamped, and returns the new position.
func (p *VirtualPot) Add(delta float64) float64 {
	v := clamp01(p.Value() + delta)
	p.Set(v)
	return v
}

func (p *VirtualPot) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Knob reports a pot's value only when it has moved by more than its
// threshold since the last reported value. The first poll always reports.
type Knob struct {
	pot       Pot
	threshold float64
	last      float64
	primed    bool
}

func NewKnob(p Pot, threshold float64) *Knob {
	return &Knob{pot: p, threshold: threshold}
}

// Poll returns the pot value and whether it changed enough to propagate.
func (k *Knob) Poll() (float64, bool) {
	v := clamp01(k.pot.Value())
	if k.primed && math.Abs(v-k.last) <= k.threshold {
		return k.last, false
	}
	k.primed = true
	k.last = v
	return v, true
}

// Sink receives panel changes. The engine satisfies it.
type Sink interface {
	SetMasterGain(gain float64)
	SetAttack(seconds float64) bool
	SetDecay(seconds float64) bool
	SetSustain(level float64) bool
	SetRelease(seconds float64) bool
}

// Panel is the gain pot plus the optional four envelope pots. Any pot may be
// nil.
type Panel struct {
	gain    *Knob
	attack  *Knob
	decay   *Knob
	sustain *Knob
	release *Knob
}

type Pots struct {
	Gain, Attack, Decay, Sustain, Release Pot
}

func NewPanel(p Pots) *Panel {
	knob := func(pot Pot, threshold float64) *Knob {
		if pot == nil {
			return nil
		}
		return NewKnob(pot, threshold)
	}
	return &Panel{
		gain:    knob(p.Gain, 0),
		attack:  knob(p.Attack, Hysteresis),
		decay:   knob(p.Decay, Hysteresis),
		sustain: knob(p.Sustain, Hysteresis),
		release: knob(p.Release, Hysteresis),
	}
}

// MasterGain maps the gain pot, which reads 0 fully clockwise, to output
// gain. The last few percent snap to silence.
func MasterGain(pot float64) float64 {
	g := 1 - clamp01(pot)
	if g < gainFloor {
		return 0
	}
	return g
}

// Poll reads every pot once and pushes changed values to s. It returns the
// number of changes pushed.
func (p *Panel) Poll(s Sink) int {
	n := 0
	if v, ok := poll(p.gain); ok {
		s.SetMasterGain(MasterGain(v))
		n++
	}
	if v, ok := poll(p.attack); ok {
		s.SetAttack(v * timeScale)
		n++
	}
	if v, ok := poll(p.decay); ok {
		s.SetDecay(v * timeScale)
		n++
	}
	if v, ok := poll(p.sustain); ok {
		s.SetSustain(v)
		n++
	}
	if v, ok := poll(p.release); ok {
		s.SetRelease(v * timeScale)
		n++
	}
	return n
}

func poll(k *Knob) (float64, bool) {
	if k == nil {
		return 0, false
	}
	return k.Poll()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
