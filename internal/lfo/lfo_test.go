package lfo

import (
	"math"
	"testing"
)

func TestLFOZeroRateHoldsPhase(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		if v := l.Sample(); v != 0 {
			t.Fatalf("zero rate should hold sin at 0, got %f", v)
		}
	}
	if l.Active() {
		t.Error("zero-rate LFO should not be active")
	}
}

func TestLFOPeriodMatchesRate(t *testing.T) {
	l := New()
	rate := 0.001
	l.SetRate(rate)
	period := 2 * math.Pi / rate // ~6283 samples

	// Count upward zero crossings over ten periods.
	crossings := 0
	prev := l.Value()
	n := int(period * 10)
	for i := 0; i < n; i++ {
		v := l.Sample()
		if prev < 0 && v >= 0 {
			crossings++
		}
		prev = v
	}
	if crossings < 9 || crossings > 10 {
		t.Fatalf("got %d upward crossings in ten periods", crossings)
	}
}

func TestLFOAmplitudeStaysBounded(t *testing.T) {
	for _, rate := range []float64{0.0001, 0.001, 0.01, 0.1} {
		l := New()
		l.SetRate(rate)
		var maxAbs float64
		for i := 0; i < 1_000_000; i++ {
			if a := math.Abs(l.Sample()); a > maxAbs {
				maxAbs = a
			}
		}
		if maxAbs > 1.06 || maxAbs < 0.94 {
			t.Errorf("rate %f: peak = %f, want ~1", rate, maxAbs)
		}
	}
}

func TestLFOReset(t *testing.T) {
	l := New()
	l.SetRate(0.05)
	for i := 0; i < 37; i++ {
		l.Sample()
	}
	l.Reset()
	if l.Value() != 0 {
		t.Fatalf("reset should return sin to 0, got %f", l.Value())
	}
	if got := l.Sample(); math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("first sample after reset = %f, want rate*cos = 0.05", got)
	}
}
