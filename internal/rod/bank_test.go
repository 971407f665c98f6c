package rod

import (
	"math"
	"testing"

	"github.com/abcs/rodsynth/internal/dsp"
)

const testRate = 48000.0

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	b, err := New(5, testRate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewRejectsBadArgs(t *testing.T) {
	if _, err := New(0, testRate); err == nil {
		t.Error("capacity 0 should fail")
	}
	if _, err := New(5, -1); err == nil {
		t.Error("negative sample rate should fail")
	}
}

func TestHarmonicClamp(t *testing.T) {
	b := newTestBank(t)
	b.SetFundamentalFreq(100, 0)

	b.SetHarmonic(15)
	if got := b.Harmonic(); got != 10 {
		t.Fatalf("SetHarmonic(15) -> %d, want 10", got)
	}
	if got := b.Freq(0); got != 1000 {
		t.Fatalf("freq at harmonic 10 = %f, want 1000", got)
	}
	b.SetHarmonic(0)
	if got := b.Harmonic(); got != 1 {
		t.Fatalf("SetHarmonic(0) -> %d, want 1", got)
	}
	if got := b.Freq(0); got != 100 {
		t.Fatalf("freq at harmonic 1 = %f, want 100", got)
	}
}

func TestFundamentalRecomputesAllSlots(t *testing.T) {
	b := newTestBank(t)
	b.SetHarmonic(3)
	b.SetFundamentalFreq(110, 0)
	b.SetFundamentalFreq(220, 4)
	b.SetFundamentalFreq(999, 5)
	if got := b.Freq(0); got != 330 {
		t.Errorf("slot 0 = %f, want 330", got)
	}
	if got := b.Freq(4); got != 660 {
		t.Errorf("slot 4 = %f, want 660", got)
	}
	if got := b.vibrato[4]; math.Abs(got-660*0.015) > 1e-9 {
		t.Errorf("vibrato depth = %f, want %f", got, 660*0.015)
	}
}

func TestGainMuteBoundary(t *testing.T) {
	b := newTestBank(t)
	b.SetRange(0.04)
	if got := b.GainTarget(); got != 0 {
		t.Fatalf("SetRange(0.04) gain target = %f, want 0", got)
	}
	b.SetRange(0.05)
	if got := b.GainTarget(); got != 0.05 {
		t.Fatalf("SetRange(0.05) gain target = %f, want 0.05", got)
	}

	b.SetOscWaveform(dsp.WaveSaw)
	b.SetRange(0.3)
	if got := b.GainTarget(); got != 1 {
		t.Fatalf("saw gain target = %f, want 1", got)
	}
	b.SetRange(0.01)
	if got := b.GainTarget(); got != 0 {
		t.Fatalf("saw near-zero range gain target = %f, want 0", got)
	}
}

func TestRangeCutoffMapping(t *testing.T) {
	b := newTestBank(t)
	b.SetRange(0)
	if got, want := b.CutoffTarget(), dsp.NoteToFreq(50); math.Abs(got-want) > 1e-9 {
		t.Errorf("cutoff(0) = %f, want %f", got, want)
	}
	b.SetRange(1)
	if got, want := b.CutoffTarget(), dsp.NoteToFreq(130); math.Abs(got-want) > 1e-9 {
		t.Errorf("cutoff(1) = %f, want %f", got, want)
	}
	b.SetRange(2)
	if got, want := b.CutoffTarget(), dsp.NoteToFreq(130); math.Abs(got-want) > 1e-9 {
		t.Errorf("out-of-range input should clamp: cutoff = %f", got)
	}
}

func TestCutoffSmoothing(t *testing.T) {
	b := newTestBank(t)
	b.SetRange(0)
	target := b.CutoffTarget()
	b.Tick()
	want := target*0.08 + 15000*0.92
	if got := b.Cutoff(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("first tick cutoff = %f, want %f", got, want)
	}
	for i := 0; i < 500; i++ {
		b.Tick()
	}
	if got := b.Cutoff(); math.Abs(got-target) > 0.01 {
		t.Fatalf("cutoff = %f, want it to settle on %f", got, target)
	}
}

func TestGainRamp(t *testing.T) {
	b := newTestBank(t)
	amps := make([]float64, b.Capacity())
	b.SetRange(0.5)
	half := int(0.1 * testRate)
	for i := 0; i < half; i++ {
		b.Process(amps)
	}
	if got := b.Gain(); math.Abs(got-0.75) > 0.01 {
		t.Fatalf("gain halfway through ramp = %f, want ~0.75", got)
	}
	// Same target: the running ramp continues rather than restarting.
	b.SetRange(0.5)
	for i := 0; i < half+1; i++ {
		b.Process(amps)
	}
	if got := b.Gain(); got != 0.5 {
		t.Fatalf("gain after ramp = %f, want 0.5", got)
	}
}

func TestLfoTargetParity(t *testing.T) {
	b := newTestBank(t)
	start := b.LfoTarget()
	if start != Tremolo {
		t.Fatalf("initial target = %v, want tremolo", start)
	}
	b.IncrementLfoTarget()
	if b.LfoTarget() == start {
		t.Fatal("one increment should change target")
	}
	for i := 0; i < 3; i++ {
		b.IncrementLfoTarget()
	}
	if got := b.LfoTarget(); got != start {
		t.Fatalf("after four increments target = %v, want %v", got, start)
	}
}

func TestLfoFreqAndDepth(t *testing.T) {
	b := newTestBank(t)
	b.SetLfoFreq(2)
	if got := b.LfoRate(); got != 2.0/10000 {
		t.Errorf("rate = %g, want %g", got, 2.0/10000)
	}
	if got, want := b.LfoDepth(), 0.5*0.05; math.Abs(got-want) > 1e-12 {
		t.Errorf("depth after one update = %f, want %f", got, want)
	}
	for i := 0; i < 1000; i++ {
		b.SetLfoFreq(40)
	}
	if got := b.LfoDepth(); math.Abs(got-1) > 1e-6 {
		t.Errorf("depth should saturate at 1, got %f", got)
	}
}

func TestWaveformAmps(t *testing.T) {
	b := newTestBank(t)
	cases := []struct {
		w    dsp.Waveform
		want float64
	}{
		{dsp.WaveSaw, 0.7},
		{dsp.WaveSquare, 0.8},
		{dsp.WaveTriangle, 1},
		{dsp.WaveSine, 1},
	}
	for _, c := range cases {
		t.Run(c.w.String(), func(t *testing.T) {
			b.SetOscWaveform(c.w)
			for i := range b.oscs {
				if got := b.oscs[i].Amp(); got != c.want {
					t.Fatalf("osc %d amp = %f, want %f", i, got, c.want)
				}
				if got := b.oscs[i].Waveform(); got != c.w {
					t.Fatalf("osc %d waveform = %v", i, got)
				}
			}
		})
	}
}

func TestFilterOnlyAffectsSawAndSquare(t *testing.T) {
	render := func(w dsp.Waveform) float64 {
		b := newTestBank(t)
		b.SetOscWaveform(w)
		b.SetFundamentalFreq(2000, 0)
		b.SetRange(0.05) // lowest cutoff that is not muted
		for i := 0; i < 200; i++ {
			b.Tick()
		}
		amps := []float64{1, 0, 0, 0, 0}
		var energy float64
		for i := 0; i < int(0.5*testRate); i++ {
			s := b.Process(amps)
			energy += s * s
		}
		return energy
	}
	sq := render(dsp.WaveSquare)
	sine := render(dsp.WaveSine)
	// Sine at gain 0.05 bypasses the filter; square keeps gain 1 but loses
	// almost everything above a ~160 Hz cutoff.
	if sq <= 0 || sine <= 0 {
		t.Fatalf("expected output, got square=%g sine=%g", sq, sine)
	}
	b := newTestBank(t)
	b.SetOscWaveform(dsp.WaveSquare)
	b.SetFundamentalFreq(2000, 0)
	amps := []float64{1, 0, 0, 0, 0}
	var open float64
	for i := 0; i < int(0.5*testRate); i++ {
		s := b.Process(amps)
		open += s * s
	}
	if sq > open*0.1 {
		t.Fatalf("closed filter energy %g not well below open %g", sq, open)
	}
}

func TestPitchBendScalesOscillators(t *testing.T) {
	b := newTestBank(t)
	b.SetFundamentalFreq(440, 1)
	b.SetPitchBend(math.Pow(2, 1.0/12))
	if got, want := b.oscs[1].Freq(), 440*math.Pow(2, 1.0/12); math.Abs(got-want) > 1e-9 {
		t.Fatalf("bent freq = %f, want %f", got, want)
	}
	if got := b.Freq(1); got != 440 {
		t.Fatalf("unbent freq should stay 440, got %f", got)
	}
	b.SetPitchBend(0)
	if got := b.PitchBend(); got != 1 {
		t.Fatalf("non-positive bend should reset to 1, got %f", got)
	}
}

func TestVibratoModulatesPitch(t *testing.T) {
	b := newTestBank(t)
	b.SetLfoTarget(Vibrato)
	b.SetFundamentalFreq(440, 0)
	for i := 0; i < 200; i++ {
		b.SetLfoFreq(8)
	}
	amps := []float64{1, 0, 0, 0, 0}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < int(testRate); i++ {
		b.Process(amps)
		f := b.oscs[0].Freq()
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if hi-lo < 440*0.015 {
		t.Fatalf("vibrato swing %f too small", hi-lo)
	}
	b.IncrementLfoTarget()
	if got := b.oscs[0].Freq(); got != 440 {
		t.Fatalf("leaving vibrato should restore pitch, got %f", got)
	}
}

func TestSilentWithoutVoices(t *testing.T) {
	b := newTestBank(t)
	b.SetFundamentalFreq(440, 0)
	amps := make([]float64, 5)
	for i := 0; i < 1000; i++ {
		if s := b.Process(amps); s != 0 {
			t.Fatalf("sample %d = %f with zero amplitudes", i, s)
		}
	}
}
