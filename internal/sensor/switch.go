package sensor

import "time"

// Switch debounces a binary input with an 8-read shift register. The switch
// is pressed after eight consistent high reads; the edges fire on the first
// read of a new run that follows seven of the opposite level.
type Switch struct {
	state    uint8
	risingAt time.Duration
}

// Debounce shifts in one raw read taken at now.
func (s *Switch) Debounce(now time.Duration, raw bool) {
	s.state <<= 1
	if raw {
		s.state |= 1
	}
	if s.state == 0x7f {
		s.risingAt = now
	}
}

func (s *Switch) Pressed() bool     { return s.state == 0xff }
func (s *Switch) RisingEdge() bool  { return s.state == 0x7f }
func (s *Switch) FallingEdge() bool { return s.state == 0x80 }

// TimeHeld returns how long the switch has been pressed, or zero if it is
// not pressed.
func (s *Switch) TimeHeld(now time.Duration) time.Duration {
	if !s.Pressed() {
		return 0
	}
	return now - s.risingAt
}

// Encoder decodes a quadrature encoder with a push button. A and B idle high;
// one detent produces a single ±1 increment.
type Encoder struct {
	a, b   uint8
	inc    int
	button Switch
}

func newEncoder() Encoder {
	return Encoder{a: 0xff, b: 0xff}
}

// Debounce samples both phases and the button once.
func (e *Encoder) Debounce(now time.Duration, a, b, button bool) {
	e.button.Debounce(now, button)
	e.a = e.a<<1 | bit(a)
	e.b = e.b<<1 | bit(b)
	e.inc = 0
	switch {
	case e.a&0x03 == 0x02 && e.b&0x03 == 0x00:
		e.inc = 1
	case e.b&0x03 == 0x02 && e.a&0x03 == 0x00:
		e.inc = -1
	}
}

// Increment is the detent movement seen by the last Debounce: -1, 0 or 1.
func (e *Encoder) Increment() int { return e.inc }

func (e *Encoder) Pressed() bool     { return e.button.Pressed() }
func (e *Encoder) RisingEdge() bool  { return e.button.RisingEdge() }
func (e *Encoder) FallingEdge() bool { return e.button.FallingEdge() }

func (e *Encoder) TimeHeld(now time.Duration) time.Duration {
	return e.button.TimeHeld(now)
}

func bit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
