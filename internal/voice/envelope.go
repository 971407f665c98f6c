package voice

// ADSR holds envelope timing in seconds and the sustain level in [0, 1].
type ADSR struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultADSR is the shape a voice starts with before any preset is applied.
func DefaultADSR() ADSR {
	return ADSR{Attack: 0.005, Decay: 0.1, Sustain: 0.5, Release: 0.2}
}

func (a ADSR) clamped() ADSR {
	if a.Attack < 0 {
		a.Attack = 0
	}
	if a.Decay < 0 {
		a.Decay = 0
	}
	if a.Release < 0 {
		a.Release = 0
	}
	if a.Sustain < 0 {
		a.Sustain = 0
	}
	if a.Sustain > 1 {
		a.Sustain = 1
	}
	return a
}

type segment int

const (
	segIdle segment = iota
	segAttack
	segDecay
	segSustain
	segRelease
)

// releaseFloor is the level under which a releasing envelope counts as silent.
const releaseFloor = 0.0001

// Envelope is a linear four-segment generator. Timing is read from the shared
// params only when a segment starts, so parameter changes land on the next
// segment boundary of a running envelope.
type Envelope struct {
	sampleRate float64
	params     *ADSR
	seg        segment
	level      float64
	step       float64
	sustain    float64
}

func newEnvelope(sampleRate float64, params *ADSR) Envelope {
	return Envelope{sampleRate: sampleRate, params: params}
}

// Retrigger restarts the attack segment. A soft retrigger ramps up from the
// current level; a hard one drops to zero first.
func (e *Envelope) Retrigger(hard bool) {
	if hard {
		e.level = 0
	}
	e.seg = segAttack
	e.step = segmentStep(1, e.params.Attack, e.sampleRate)
}

// Process advances one sample. Dropping the gate while in attack, decay or
// sustain enters the release segment.
func (e *Envelope) Process(gate bool) float64 {
	if !gate && (e.seg == segAttack || e.seg == segDecay || e.seg == segSustain) {
		e.seg = segRelease
		e.step = segmentStep(e.level, e.params.Release, e.sampleRate)
	}
	switch e.seg {
	case segAttack:
		e.level += e.step
		if e.level >= 1 {
			e.level = 1
			e.sustain = e.params.Sustain
			e.seg = segDecay
			e.step = segmentStep(1-e.sustain, e.params.Decay, e.sampleRate)
		}
	case segDecay:
		e.level -= e.step
		if e.level <= e.sustain {
			e.level = e.sustain
			e.seg = segSustain
		}
	case segSustain:
		e.level = e.sustain
	case segRelease:
		e.level -= e.step
		if e.level <= releaseFloor {
			e.level = 0
			e.seg = segIdle
		}
	default:
		e.level = 0
	}
	return e.level
}

// IsRunning is true until the release segment reaches silence.
func (e *Envelope) IsRunning() bool {
	return e.seg != segIdle
}

func (e *Envelope) Level() float64 { return e.level }

func (e *Envelope) reset() {
	e.seg = segIdle
	e.level = 0
	e.step = 0
}

// segmentStep returns the per-sample increment that covers distance in the
// given time. Segments shorter than one sample complete immediately.
func segmentStep(distance, seconds, sampleRate float64) float64 {
	n := seconds * sampleRate
	if distance <= 0 {
		return 1
	}
	if n < 1 {
		return distance
	}
	return distance / n
}
