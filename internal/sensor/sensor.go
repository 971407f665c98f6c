// Package sensor turns raw rod inputs (encoder phases, encoder button, beam)
// into the control values the oscillator banks consume: rotation speed,
// harmonic index, waveform index and long-press edges.
package sensor

import "time"

const (
	NumWaveforms = 4
	NumHarmonics = 10

	// LongPress is how long the encoder button must be held before it
	// toggles the modulation target.
	LongPress = 700 * time.Millisecond
)

// Inputs is one raw read of a rod's pins. Encoder phases idle high.
type Inputs struct {
	EncoderA bool
	EncoderB bool
	Button   bool
	Beam     bool
}

// IdleInputs is a rod at rest: encoder parked, button up, beam clear.
func IdleInputs() Inputs {
	return Inputs{EncoderA: true, EncoderB: true}
}

// Sensor holds the debounced state of one rod. It is advanced once per audio
// block by Process and is otherwise read-only.
type Sensor struct {
	enc  Encoder
	beam Switch
	tach Tachometer

	harmonic int
	waveform int

	long          bool
	prevLong      bool
	longEdge      bool
	waveformArmed bool
}

// New returns a sensor whose harmonic index starts at initialHarmonic.
func New(initialHarmonic int) Sensor {
	return Sensor{
		enc:      newEncoder(),
		tach:     newTachometer(),
		harmonic: wrap(initialHarmonic, NumHarmonics),
	}
}

// Process debounces one read taken at now and updates every derived value.
func (s *Sensor) Process(now time.Duration, in Inputs) {
	s.enc.Debounce(now, in.EncoderA, in.EncoderB, in.Button)
	s.beam.Debounce(now, in.Beam)

	if s.enc.RisingEdge() {
		s.waveformArmed = true
	}
	s.long = s.enc.TimeHeld(now) > LongPress
	s.longEdge = s.long && !s.prevLong
	// A long press disarms the waveform step until the next press.
	if s.long {
		s.waveformArmed = false
	}
	if s.waveformArmed && s.enc.FallingEdge() {
		s.waveform = wrap(s.waveform+1, NumWaveforms)
	}
	s.prevLong = s.long

	s.harmonic = wrap(s.harmonic-s.enc.Increment(), NumHarmonics)

	s.tach.Update(now)
	if s.beam.RisingEdge() || s.beam.FallingEdge() {
		s.tach.Pulse(now)
	}
}

// RotationSpeed is the rod speed in revolutions per second.
func (s *Sensor) RotationSpeed() float64 { return s.tach.Speed() }

// HarmonicIndex is in [0, 10).
func (s *Sensor) HarmonicIndex() int { return s.harmonic }

// WaveformIndex is in [0, NumWaveforms).
func (s *Sensor) WaveformIndex() int { return s.waveform }

// LongPressEdge is true for exactly one Process call when a press crosses
// the long-press threshold.
func (s *Sensor) LongPressEdge() bool { return s.longEdge }

func (s *Sensor) Pulse() bool { return s.beam.Pressed() }

func (s *Sensor) PressTime(now time.Duration) time.Duration {
	return s.enc.TimeHeld(now)
}

func wrap(v, n int) int {
	return (v%n + n) % n
}
