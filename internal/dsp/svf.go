package dsp

import "math"

// SVF is a trapezoidal (zero-delay-feedback) state-variable filter. Only the
// low-pass output is exposed.
type SVF struct {
	sampleRate float64
	freq       float64
	res        float64
	a1, a2, a3 float64
	ic1eq      float64
	ic2eq      float64
}

func NewSVF(sampleRate float64, freq, res float64) SVF {
	f := SVF{sampleRate: sampleRate, freq: freq, res: Clamp(res, 0, 0.98)}
	f.update()
	return f
}

// SetFreq sets the cutoff in Hz. Cutoffs at or above Nyquist are pulled just
// under it.
func (f *SVF) SetFreq(freq float64) {
	if freq == f.freq {
		return
	}
	f.freq = freq
	f.update()
}

func (f *SVF) Freq() float64 { return f.freq }

// SetRes sets resonance in [0, 0.98]; 0 is critically damped.
func (f *SVF) SetRes(res float64) {
	res = Clamp(res, 0, 0.98)
	if res == f.res {
		return
	}
	f.res = res
	f.update()
}

func (f *SVF) update() {
	ratio := Clamp(f.freq/f.sampleRate, 0, 0.499)
	g := math.Tan(math.Pi * ratio)
	k := 2 - 2*f.res
	f.a1 = 1 / (1 + g*(g+k))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

// Process filters one sample and returns the low-pass output.
func (f *SVF) Process(in float64) float64 {
	v3 := in - f.ic2eq
	v1 := f.a1*f.ic1eq + f.a2*v3
	v2 := f.ic2eq + f.a2*f.ic1eq + f.a3*v3
	f.ic1eq = 2*v1 - f.ic1eq
	f.ic2eq = 2*v2 - f.ic2eq
	return v2
}

func (f *SVF) Reset() {
	f.ic1eq = 0
	f.ic2eq = 0
}
