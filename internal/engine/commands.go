package engine

import (
	"github.com/abcs/rodsynth/internal/dsp"
	"github.com/abcs/rodsynth/internal/voice"
)

type commandKind uint8

const (
	cmdNoteOn commandKind = iota + 1
	cmdNoteOff
	cmdAllNotesOff
	cmdADSR
	cmdAttack
	cmdDecay
	cmdSustain
	cmdRelease
	cmdPolyphony
	cmdPitchBend
)

type command struct {
	kind     commandKind
	note     int
	velocity int
	value    float64
	adsr     voice.ADSR
}

func (e *Engine) submit(c command) bool {
	if e.cmds.push(c) {
		return true
	}
	e.dropped.Add(1)
	return false
}

// The methods below queue a change for the audio goroutine and are safe to
// call from any goroutine. Each reports false if the queue was full and the
// change was dropped.

// NoteOn allocates a voice for note and starts it. Velocity 0 and notes
// outside 0..127 are ignored.
func (e *Engine) NoteOn(note, velocity int) bool {
	if velocity <= 0 || note < 0 || note > 127 {
		return true
	}
	if velocity > 127 {
		velocity = 127
	}
	return e.submit(command{kind: cmdNoteOn, note: note, velocity: velocity})
}

func (e *Engine) NoteOff(note int) bool {
	return e.submit(command{kind: cmdNoteOff, note: note})
}

// AllNotesOff releases the gate of every voice.
func (e *Engine) AllNotesOff() bool {
	return e.submit(command{kind: cmdAllNotesOff})
}

func (e *Engine) SetADSR(a voice.ADSR) bool {
	return e.submit(command{kind: cmdADSR, adsr: a})
}

func (e *Engine) SetAttack(seconds float64) bool {
	return e.submit(command{kind: cmdAttack, value: seconds})
}

func (e *Engine) SetDecay(seconds float64) bool {
	return e.submit(command{kind: cmdDecay, value: seconds})
}

func (e *Engine) SetSustain(level float64) bool {
	return e.submit(command{kind: cmdSustain, value: level})
}

func (e *Engine) SetRelease(seconds float64) bool {
	return e.submit(command{kind: cmdRelease, value: seconds})
}

// SetPolyphony releases every voice and resizes the pool, clamped to
// [1, Capacity].
func (e *Engine) SetPolyphony(n int) bool {
	return e.submit(command{kind: cmdPolyphony, note: n})
}

// SetPitchBend sets the frequency multiplier on every rod.
func (e *Engine) SetPitchBend(mult float64) bool {
	return e.submit(command{kind: cmdPitchBend, value: mult})
}

func (e *Engine) drain() {
	for {
		c, ok := e.cmds.pop()
		if !ok {
			return
		}
		e.apply(c)
	}
}

func (e *Engine) apply(c command) {
	switch c.kind {
	case cmdNoteOn:
		h := e.pool.NoteOn(c.note, c.velocity)
		e.broadcastNotes()
		e.pool.TriggerNote(h)
	case cmdNoteOff:
		e.pool.NoteOff(c.note)
	case cmdAllNotesOff:
		e.pool.FreeAll()
	case cmdADSR:
		e.pool.SetADSR(c.adsr)
	case cmdAttack:
		e.pool.SetAttack(c.value)
	case cmdDecay:
		e.pool.SetDecay(c.value)
	case cmdSustain:
		e.pool.SetSustain(c.value)
	case cmdRelease:
		e.pool.SetRelease(c.value)
	case cmdPolyphony:
		e.pool.SetPolyphony(c.note)
	case cmdPitchBend:
		for _, b := range e.banks {
			b.SetPitchBend(c.value)
		}
	}
}

// broadcastNotes pushes the pitch of every bound voice slot to every rod, so
// all rods follow the whole chord and not only the newest note.
func (e *Engine) broadcastNotes() {
	for i := 0; i < e.pool.Polyphony(); i++ {
		note := e.pool.Note(voice.Handle(i))
		if note < 0 {
			continue
		}
		freq := dsp.NoteToFreq(float64(note))
		for _, b := range e.banks {
			b.SetFundamentalFreq(freq, i)
		}
	}
}
