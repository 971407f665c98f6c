package voice

import "errors"

// Handle indexes a voice slot in a Pool. Every Handle a Pool hands out is
// valid: allocation falls back to stealing, so there is no "no voice" result.
type Handle int

// Pool is a fixed-capacity arena of voices. All voices are allocated by
// NewPool; nothing on the per-sample path allocates.
//
// A Pool is not safe for concurrent use. The engine mutates it only from the
// audio callback.
type Pool struct {
	voices []Voice
	params ADSR
	active int
	clock  uint64
}

func NewPool(capacity int, sampleRate float64) (*Pool, error) {
	if capacity < 1 {
		return nil, errors.New("voice pool capacity must be at least 1")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	p := &Pool{
		voices: make([]Voice, capacity),
		params: DefaultADSR(),
		active: capacity,
	}
	for i := range p.voices {
		p.voices[i].env = newEnvelope(sampleRate, &p.params)
		p.voices[i].note = noNote
	}
	return p, nil
}

// Capacity is the number of voice slots.
func (p *Pool) Capacity() int { return len(p.voices) }

// Polyphony is the number of slots notes may use, at most Capacity.
func (p *Pool) Polyphony() int { return p.active }

// Voice returns the slot behind h for inspection.
func (p *Pool) Voice(h Handle) *Voice { return &p.voices[h] }

// Note returns the note bound to slot h, or -1 if it was never bound.
func (p *Pool) Note(h Handle) int { return p.voices[h].note }

// FindFreeVoice picks the slot for note among the current polyphony. First
// match wins:
//  1. a voice already bound to note (retrigger)
//  2. an inactive voice
//  3. a voice whose gate is released but still in its release tail
//  4. the voice triggered longest ago
//
// With polyphony 1 it always returns slot 0.
func (p *Pool) FindFreeVoice(note int) Handle {
	if p.active == 1 {
		return 0
	}
	voices := p.voices[:p.active]
	for i := range voices {
		if voices[i].note == note {
			return Handle(i)
		}
	}
	for i := range voices {
		if !voices[i].active {
			return Handle(i)
		}
	}
	for i := range voices {
		if !voices[i].gate {
			return Handle(i)
		}
	}
	oldest := 0
	for i := 1; i < len(voices); i++ {
		if voices[i].triggeredAt < voices[oldest].triggeredAt {
			oldest = i
		}
	}
	return Handle(oldest)
}

// NoteOn selects a voice for note and binds it. The envelope does not start
// until TriggerNote.
func (p *Pool) NoteOn(note int, velocity int) Handle {
	h := p.FindFreeVoice(note)
	p.voices[h].OnNoteOn(note, velocity)
	return h
}

// TriggerNote starts the envelope of a staged voice.
func (p *Pool) TriggerNote(h Handle) {
	p.clock++
	p.voices[h].TriggerNote(p.clock)
}

// NoteOff releases every sounding voice bound to note.
func (p *Pool) NoteOff(note int) {
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.note == note {
			v.OnNoteOff()
		}
	}
}

// FreeAll releases the gate of every voice.
func (p *Pool) FreeAll() {
	for i := range p.voices {
		p.voices[i].OnNoteOff()
	}
}

// Process advances each voice within the current polyphony by one sample and
// writes its amplitude to amps. Slots beyond the polyphony are zeroed.
// amps must hold at least Capacity values.
func (p *Pool) Process(amps []float64) {
	for i := range p.voices {
		if i < p.active {
			amps[i] = p.voices[i].Process()
		} else {
			amps[i] = 0
		}
	}
}

// SetPolyphony releases every voice and then sets the number of usable slots,
// clamped to [1, Capacity]. Slots beyond the new count are silenced and
// unbound since they will no longer be processed.
func (p *Pool) SetPolyphony(n int) {
	if n < 1 {
		n = 1
	}
	if n > len(p.voices) {
		n = len(p.voices)
	}
	p.FreeAll()
	for i := n; i < len(p.voices); i++ {
		p.voices[i].silence()
	}
	p.active = n
}

// ActiveCount returns the number of voices whose envelope is still running.
func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// SetADSR replaces the envelope shape of every voice, including those beyond
// the current polyphony.
func (p *Pool) SetADSR(a ADSR) { p.params = a.clamped() }

func (p *Pool) ADSR() ADSR { return p.params }

func (p *Pool) SetAttack(seconds float64) {
	a := p.params
	a.Attack = seconds
	p.SetADSR(a)
}

func (p *Pool) SetDecay(seconds float64) {
	a := p.params
	a.Decay = seconds
	p.SetADSR(a)
}

func (p *Pool) SetSustain(level float64) {
	a := p.params
	a.Sustain = level
	p.SetADSR(a)
}

func (p *Pool) SetRelease(seconds float64) {
	a := p.params
	a.Release = seconds
	p.SetADSR(a)
}
