package lfo

// LFO is a low-frequency quadrature oscillator built from the coupled
// recurrence
//
//	sin += rate*cos
//	cos -= rate*sin
//
// which costs two multiply-adds per sample instead of a trig call. The update
// uses the new sin in the cos step, so the pair stays on a closed orbit and the
// amplitude does not drift for rate < 2. Rate is the angular increment per
// sample in radians; it is accurate for small values.
type LFO struct {
	rate float64
	sin  float64
	cos  float64
}

// New returns an LFO at phase zero (sin=0, cos=1).
func New() LFO {
	return LFO{cos: 1}
}

// SetRate sets the angular increment per sample.
func (l *LFO) SetRate(rate float64) {
	l.rate = rate
}

func (l *LFO) Rate() float64 { return l.rate }

// Sample advances the recurrence by one sample and returns the sine output.
func (l *LFO) Sample() float64 {
	l.sin += l.rate * l.cos
	l.cos -= l.rate * l.sin
	return l.sin
}

// Value returns the current sine output without advancing.
func (l *LFO) Value() float64 { return l.sin }

// Active returns true if the LFO is moving.
func (l *LFO) Active() bool {
	return l.rate != 0
}

// Reset returns the oscillator to phase zero.
func (l *LFO) Reset() {
	l.sin = 0
	l.cos = 1
}
