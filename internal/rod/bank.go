// Package rod implements the per-rod oscillator bank: one oscillator per voice
// slot, harmonic scaling, a quadrature LFO that drives either vibrato or
// tremolo, a low-pass that only colours saw and square, and a ramped output
// gain driven by the rod's distance reading.
package rod

import (
	"errors"

	"github.com/abcs/rodsynth/internal/dsp"
	"github.com/abcs/rodsynth/internal/lfo"
)

// Target selects what the LFO modulates.
type Target int

const (
	Vibrato Target = iota
	Tremolo

	numTargets = 2
)

func (t Target) String() string {
	if t == Vibrato {
		return "vibrato"
	}
	return "tremolo"
}

const (
	MinHarmonic = 1
	MaxHarmonic = 10

	// vibratoRatio is the peak vibrato excursion as a fraction of pitch.
	vibratoRatio = 0.015

	lfoRateScale   = 10000.0
	lfoDepthCoef   = 0.05
	cutoffCoef     = 0.08
	initialCutoff  = 15000.0
	filterRes      = 0.1
	gainRampTime   = 0.2
	muteRange      = 0.05
	rangeBaseNote  = 50.0
	rangeNoteSpan  = 80.0
	sawAmp         = 0.7
	squareAmp      = 0.8
	defaultOscAmp  = 1.0
	defaultGain    = 1.0
	defaultBend    = 1.0
	defaultHarmony = MinHarmonic
)

// Bank is the oscillator bank for one rod. Setters run at block rate from the
// engine; Process runs once per output sample. A Bank is owned by a single
// goroutine and is not safe for concurrent use.
type Bank struct {
	oscs         []dsp.Oscillator
	fundamentals []float64
	realFreqs    []float64
	vibrato      []float64
	norm         float64

	harmonic int
	waveform dsp.Waveform
	target   Target
	bend     float64

	lfo      lfo.LFO
	lfoDepth dsp.Smoother

	filter       dsp.SVF
	cutoff       dsp.Smoother
	cutoffTarget float64

	gainLine   dsp.Line
	gain       float64
	gainTarget float64
	gainDone   bool
}

// New returns a bank with one oscillator per voice slot. The summed voices
// are divided by capacity so a full chord cannot clip the bank.
func New(capacity int, sampleRate float64) (*Bank, error) {
	if capacity < 1 {
		return nil, errors.New("rod bank needs at least one voice slot")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	b := &Bank{
		oscs:         make([]dsp.Oscillator, capacity),
		fundamentals: make([]float64, capacity),
		realFreqs:    make([]float64, capacity),
		vibrato:      make([]float64, capacity),
		norm:         1 / float64(capacity),
		harmonic:     defaultHarmony,
		waveform:     dsp.WaveSine,
		target:       Tremolo,
		bend:         defaultBend,
		lfo:          lfo.New(),
		lfoDepth:     dsp.NewSmoother(lfoDepthCoef, 0),
		filter:       dsp.NewSVF(sampleRate, initialCutoff, filterRes),
		cutoff:       dsp.NewSmoother(cutoffCoef, initialCutoff),
		cutoffTarget: initialCutoff,
		gainLine:     dsp.NewLine(sampleRate, defaultGain),
		gain:         defaultGain,
		gainTarget:   defaultGain,
		gainDone:     true,
	}
	for i := range b.oscs {
		b.oscs[i] = dsp.NewOscillator(sampleRate)
		b.oscs[i].SetAmp(defaultOscAmp)
		b.oscs[i].SetWaveform(b.waveform)
	}
	return b, nil
}

func (b *Bank) Capacity() int { return len(b.oscs) }

// SetHarmonic clamps h to [1, 10] and rescales every voice when it changes.
func (b *Bank) SetHarmonic(h int) {
	if h < MinHarmonic {
		h = MinHarmonic
	}
	if h > MaxHarmonic {
		h = MaxHarmonic
	}
	if h == b.harmonic {
		return
	}
	b.harmonic = h
	b.updateFreqs()
}

func (b *Bank) Harmonic() int { return b.harmonic }

// SetFundamentalFreq stores the fundamental for voice slot i. Out-of-range
// slots are ignored.
func (b *Bank) SetFundamentalFreq(freq float64, i int) {
	if i < 0 || i >= len(b.fundamentals) {
		return
	}
	if freq < 0 {
		freq = 0
	}
	b.fundamentals[i] = freq
	b.updateFreqs()
}

func (b *Bank) updateFreqs() {
	h := float64(b.harmonic)
	for i, f := range b.fundamentals {
		fq := f * h
		b.realFreqs[i] = fq
		b.vibrato[i] = fq * vibratoRatio
		b.oscs[i].SetFreq(fq * b.bend)
	}
}

// Freq returns the harmonic-scaled frequency of slot i before bend and
// vibrato.
func (b *Bank) Freq(i int) float64 { return b.realFreqs[i] }

// SetOscWaveform switches every oscillator to w and rebalances their level:
// saw 0.7, square 0.8, sine and triangle 1.
func (b *Bank) SetOscWaveform(w dsp.Waveform) {
	if w == b.waveform {
		return
	}
	b.waveform = w
	amp := waveformAmp(w)
	for i := range b.oscs {
		b.oscs[i].SetWaveform(w)
		b.oscs[i].SetAmp(amp)
	}
}

func (b *Bank) Waveform() dsp.Waveform { return b.waveform }

func waveformAmp(w dsp.Waveform) float64 {
	switch w {
	case dsp.WaveSaw:
		return sawAmp
	case dsp.WaveSquare:
		return squareAmp
	default:
		return defaultOscAmp
	}
}

func filtered(w dsp.Waveform) bool {
	return w == dsp.WaveSaw || w == dsp.WaveSquare
}

// SetLfoFreq sets the LFO from a rotation speed in revolutions per second.
// Faster rotation also deepens the modulation, up to full depth at 4 rev/s.
func (b *Bank) SetLfoFreq(freq float64) {
	if freq < 0 {
		freq = 0
	}
	b.lfo.SetRate(freq / lfoRateScale)
	b.lfoDepth.Step(dsp.Clamp(freq/4, 0, 1))
}

func (b *Bank) LfoRate() float64  { return b.lfo.Rate() }
func (b *Bank) LfoDepth() float64 { return b.lfoDepth.Value() }

// SetPitchBend stores a frequency multiplier applied to every voice.
func (b *Bank) SetPitchBend(mult float64) {
	if mult <= 0 {
		mult = defaultBend
	}
	if mult == b.bend {
		return
	}
	b.bend = mult
	b.updateFreqs()
}

func (b *Bank) PitchBend() float64 { return b.bend }

// SetRange maps a normalized distance onto the filter cutoff and gain target.
// Filtered waveforms keep full gain and rely on the cutoff; sine and triangle
// get quieter as the range shrinks. Below 0.05 the rod is muted.
func (b *Bank) SetRange(r float64) {
	r = dsp.Clamp(r, 0, 1)
	b.cutoffTarget = dsp.NoteToFreq(r*rangeNoteSpan + rangeBaseNote)

	target := r
	if filtered(b.waveform) {
		target = 1
	}
	if r < muteRange {
		target = 0
	}
	b.SetGain(target)
}

// SetGain ramps the output gain to target over 0.2 s. Re-sending the current
// target leaves a running ramp alone.
func (b *Bank) SetGain(target float64) {
	target = dsp.Clamp(target, 0, 1)
	if target == b.gainTarget {
		return
	}
	b.gainTarget = target
	b.gainLine.Start(b.gain, target, gainRampTime)
	b.gainDone = false
}

func (b *Bank) GainTarget() float64 { return b.gainTarget }
func (b *Bank) Gain() float64       { return b.gain }

// IncrementLfoTarget toggles between vibrato and tremolo.
func (b *Bank) IncrementLfoTarget() {
	b.SetLfoTarget(b.target + 1)
}

// SetLfoTarget wraps t into the two targets. Leaving vibrato puts every
// oscillator back on its unmodulated pitch.
func (b *Bank) SetLfoTarget(t Target) {
	b.target = ((t % numTargets) + numTargets) % numTargets
	if b.target != Vibrato {
		b.updateFreqs()
	}
}

func (b *Bank) LfoTarget() Target { return b.target }

// Tick runs the block-rate smoothing of the filter cutoff.
func (b *Bank) Tick() {
	b.filter.SetFreq(b.cutoff.Step(b.cutoffTarget))
}

func (b *Bank) Cutoff() float64       { return b.cutoff.Value() }
func (b *Bank) CutoffTarget() float64 { return b.cutoffTarget }

// Process renders one sample. amps holds one envelope amplitude per voice
// slot and must be at least Capacity long.
func (b *Bank) Process(amps []float64) float64 {
	sinZ := b.lfo.Sample()

	if !b.gainDone {
		b.gain, b.gainDone = b.gainLine.Process()
	}

	depth := b.lfoDepth.Value()
	var sum float64
	for i := range b.oscs {
		if b.target == Vibrato {
			b.oscs[i].SetFreq(b.realFreqs[i]*b.bend + depth*b.vibrato[i]*sinZ)
		}
		sum += b.oscs[i].Process() * amps[i]
	}
	sig := sum * b.norm

	if b.target == Tremolo {
		mod := sinZ*0.5 + 1
		sig = sig*(1-depth) + sig*mod*depth
	}

	if filtered(b.waveform) {
		sig = b.filter.Process(sig)
	}
	return sig * b.gain
}
