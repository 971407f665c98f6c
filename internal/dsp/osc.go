package dsp

import "math"

type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSaw
	WaveSquare
)

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveTriangle:
		return "triangle"
	case WaveSaw:
		return "saw"
	case WaveSquare:
		return "square"
	}
	return "unknown"
}

// Oscillator is a phase-accumulator oscillator. Saw and square are corrected
// with PolyBLEP at their discontinuities; sine and triangle are generated
// directly.
type Oscillator struct {
	sampleRate float64
	freq       float64
	amp        float64
	phase      float64 // [0, 1)
	inc        float64
	waveform   Waveform
}

func NewOscillator(sampleRate float64) Oscillator {
	return Oscillator{sampleRate: sampleRate, amp: 1}
}

func (o *Oscillator) SetFreq(freq float64) {
	if freq == o.freq {
		return
	}
	o.freq = freq
	o.inc = freq / o.sampleRate
}

func (o *Oscillator) Freq() float64 { return o.freq }

func (o *Oscillator) SetAmp(amp float64) { o.amp = amp }

func (o *Oscillator) Amp() float64 { return o.amp }

func (o *Oscillator) SetWaveform(w Waveform) {
	if w < WaveSine || w > WaveSquare {
		w = WaveSine
	}
	o.waveform = w
}

func (o *Oscillator) Waveform() Waveform { return o.waveform }

// Process returns the next sample and advances the phase.
func (o *Oscillator) Process() float64 {
	p := o.phase
	dt := math.Abs(o.inc)
	var v float64
	switch o.waveform {
	case WaveTriangle:
		if p < 0.5 {
			v = 4*p - 1
		} else {
			v = 3 - 4*p
		}
	case WaveSaw:
		v = 2*p - 1 - polyBLEP(p, dt)
	case WaveSquare:
		if p < 0.5 {
			v = 1
		} else {
			v = -1
		}
		v += polyBLEP(p, dt)
		v -= polyBLEP(math.Mod(p+0.5, 1), dt)
	default:
		v = math.Sin(twoPi * p)
	}
	o.phase += o.inc
	if o.phase >= 1 || o.phase < 0 {
		o.phase -= math.Floor(o.phase)
	}
	return v * o.amp
}

// polyBLEP returns the residual that smooths a unit step at phase 0.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
