package sensor

import "time"

const (
	// PulsesPerRevolution is the number of beam edges one rod revolution makes.
	PulsesPerRevolution = 3

	// ZeroTimeout is how long the beam may stay still before the rod counts
	// as stopped.
	ZeroTimeout = 500 * time.Millisecond

	zeroDebounce = 2 * time.Millisecond
	rpmReadings  = 10
	maxWindow    = 10
	slowPeriod   = 40 * time.Millisecond
	fastPeriod   = 5 * time.Millisecond
)

// Tachometer estimates rotation speed from beam edge timing. Inter-pulse
// periods are averaged over a window that grows from 1 to 10 pulses as the
// rod speeds up, and the derived RPM is smoothed over the last 10 updates.
type Tachometer struct {
	lastPulse  time.Duration
	period     time.Duration
	periodAvg  time.Duration
	periodSum  time.Duration
	pulseCount int
	window     int
	zeroExtra  time.Duration

	readings [rpmReadings]float64
	next     int
	average  float64
}

func newTachometer() Tachometer {
	return Tachometer{
		period:     ZeroTimeout + 10*time.Microsecond,
		periodAvg:  ZeroTimeout + 10*time.Microsecond,
		pulseCount: 1,
		window:     1,
	}
}

// Pulse records a beam edge at now.
func (t *Tachometer) Pulse(now time.Duration) {
	t.period = now - t.lastPulse
	t.lastPulse = now
	if t.pulseCount >= t.window {
		t.periodAvg = t.periodSum / time.Duration(t.window)
		t.pulseCount = 1
		t.periodSum = t.period
		t.window = windowFor(t.period)
		return
	}
	t.pulseCount++
	t.periodSum += t.period
}

// windowFor maps a pulse period linearly from 40ms→1 to 5ms→10 readings.
func windowFor(period time.Duration) int {
	slow, fast := slowPeriod.Microseconds(), fastPeriod.Microseconds()
	n := (period.Microseconds()-slow)*(maxWindow-1)/(fast-slow) + 1
	if n < 1 {
		return 1
	}
	if n > maxWindow {
		return maxWindow
	}
	return int(n)
}

// Update folds one RPM reading into the rolling average. A rod whose last
// pulse is older than ZeroTimeout reads as stopped; once stopped it has to
// beat the timeout by a further 2ms to count as moving again.
func (t *Tachometer) Update(now time.Duration) {
	limit := ZeroTimeout - t.zeroExtra
	var rpm float64
	switch {
	case t.period > limit || now-t.lastPulse > limit:
		t.zeroExtra = zeroDebounce
	case t.periodAvg <= 0:
		// Pulses arrived with no measurable period.
		t.zeroExtra = 0
	default:
		t.zeroExtra = 0
		hz := float64(time.Second) / float64(t.periodAvg)
		rpm = hz / PulsesPerRevolution * 60
	}
	t.readings[t.next] = rpm
	t.next = (t.next + 1) % rpmReadings
	var sum float64
	for _, r := range t.readings {
		sum += r
	}
	t.average = sum / rpmReadings
}

// RPM is the smoothed rotation rate in revolutions per minute.
func (t *Tachometer) RPM() float64 { return t.average }

// Speed is the smoothed rotation rate in revolutions per second.
func (t *Tachometer) Speed() float64 { return t.average / 60 }
