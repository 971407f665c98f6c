package controls

import (
	"math"
	"testing"
)

type recorder struct {
	gain    []float64
	attack  []float64
	decay   []float64
	sustain []float64
	release []float64
}

func (r *recorder) SetMasterGain(g float64) { r.gain = append(r.gain, g) }

func (r *recorder) SetAttack(v float64) bool {
	r.attack = append(r.attack, v)
	return true
}

func (r *recorder) SetDecay(v float64) bool {
	r.decay = append(r.decay, v)
	return true
}

func (r *recorder) SetSustain(v float64) bool {
	r.sustain = append(r.sustain, v)
	return true
}

func (r *recorder) SetRelease(v float64) bool {
	r.release = append(r.release, v)
	return true
}

func TestKnobHysteresis(t *testing.T) {
	pot := NewVirtualPot(0.5)
	k := NewKnob(pot, Hysteresis)
	if v, ok := k.Poll(); !ok || v != 0.5 {
		t.Fatalf("first poll = %f,%v", v, ok)
	}
	pot.Set(0.52)
	if _, ok := k.Poll(); ok {
		t.Fatal("0.02 move should be ignored")
	}
	pot.Set(0.525)
	if _, ok := k.Poll(); ok {
		t.Fatal("drift is measured from the last reported value, 0.025 should be ignored")
	}
	pot.Set(0.54)
	if v, ok := k.Poll(); !ok || v != 0.54 {
		t.Fatalf("0.04 move: got %f,%v", v, ok)
	}
}

func TestMasterGainCurve(t *testing.T) {
	cases := []struct {
		pot, want float64
	}{
		{0, 1},
		{0.5, 0.5},
		{0.96, 0.04},
		{0.97, 0},
		{1, 0},
		{-2, 1},
	}
	for _, c := range cases {
		if got := MasterGain(c.pot); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("MasterGain(%g) = %f, want %f", c.pot, got, c.want)
		}
	}
}

func TestPanelPoll(t *testing.T) {
	gain := NewVirtualPot(0.25)
	attack := NewVirtualPot(0.1)
	sustain := NewVirtualPot(0.6)
	p := NewPanel(Pots{Gain: gain, Attack: attack, Sustain: sustain})
	var r recorder
	if n := p.Poll(&r); n != 3 {
		t.Fatalf("first poll pushed %d changes, want 3", n)
	}
	if r.gain[0] != 0.75 {
		t.Errorf("gain = %f, want 0.75", r.gain[0])
	}
	if math.Abs(r.attack[0]-0.5) > 1e-12 {
		t.Errorf("attack = %f, want 0.5s", r.attack[0])
	}
	if r.sustain[0] != 0.6 {
		t.Errorf("sustain = %f", r.sustain[0])
	}
	if n := p.Poll(&r); n != 0 {
		t.Fatalf("idle poll pushed %d changes", n)
	}
	// Gain has no hysteresis; envelope pots do.
	gain.Set(0.26)
	attack.Set(0.12)
	if n := p.Poll(&r); n != 1 || len(r.gain) != 2 {
		t.Fatalf("poll pushed %d changes, gain updates %d", n, len(r.gain))
	}
}

func TestVirtualPotClamps(t *testing.T) {
	p := NewVirtualPot(2)
	if p.Value() != 1 {
		t.Fatalf("Value = %f", p.Value())
	}
	if got := p.Add(-1.5); got != 0 {
		t.Fatalf("Add = %f, want 0", got)
	}
}
