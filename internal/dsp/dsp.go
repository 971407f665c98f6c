// Package dsp holds the per-sample building blocks shared by the rod banks:
// band-limited oscillators, a resonant state-variable low-pass, a linear ramp
// and a one-pole smoother.
package dsp

import "math"

const twoPi = math.Pi * 2

// NoteToFreq converts a (possibly fractional) MIDI note number to Hz, A4 = 440.
func NoteToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Smoother is a one-pole lowpass that moves a fraction of the way toward its
// target on every Step.
type Smoother struct {
	coef  float64
	value float64
}

func NewSmoother(coef, initial float64) Smoother {
	return Smoother{coef: Clamp(coef, 0, 1), value: initial}
}

// Step mixes target into the held value: value = target*coef + value*(1-coef).
func (s *Smoother) Step(target float64) float64 {
	s.value = target*s.coef + s.value*(1-s.coef)
	return s.value
}

func (s *Smoother) Value() float64 { return s.value }

// Line is a linear ramp generator with an explicit completion flag.
type Line struct {
	sampleRate float64
	value      float64
	end        float64
	step       float64
	remaining  int
}

func NewLine(sampleRate float64, initial float64) Line {
	return Line{sampleRate: sampleRate, value: initial, end: initial}
}

// Start ramps from start to end over seconds. A zero duration jumps on the
// next Process call.
func (l *Line) Start(start, end, seconds float64) {
	n := int(seconds * l.sampleRate)
	if n < 1 {
		n = 1
	}
	l.value = start
	l.end = end
	l.step = (end - start) / float64(n)
	l.remaining = n
}

// Process advances the ramp by one sample and reports whether it has reached
// its end value.
func (l *Line) Process() (float64, bool) {
	if l.remaining <= 0 {
		return l.value, true
	}
	l.remaining--
	if l.remaining == 0 {
		l.value = l.end
		return l.value, true
	}
	l.value += l.step
	return l.value, false
}
