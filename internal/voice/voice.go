// Package voice implements the polyphonic voice pool: fixed envelope voices,
// note binding, and the allocation and stealing policy.
package voice

import "math"

// noNote marks a voice that has never been bound to a note.
const noNote = -1

// Voice is one envelope-driven note slot. It carries no oscillator; its
// amplitude is applied to every rod bank's oscillator at the same slot.
type Voice struct {
	env         Envelope
	note        int
	velocity    float64
	active      bool
	gate        bool
	triggeredAt uint64
}

// OnNoteOn binds the voice to note and latches the velocity curve without
// starting the envelope.
func (v *Voice) OnNoteOn(note int, velocity int) {
	v.note = note
	v.velocity = VelocityScalar(velocity)
}

// TriggerNote starts the envelope. A voice that is still sounding retriggers
// from its current level rather than dropping to zero.
func (v *Voice) TriggerNote(stamp uint64) {
	if v.active {
		v.env.Retrigger(false)
	} else {
		v.env.Retrigger(true)
	}
	v.active = true
	v.gate = true
	v.triggeredAt = stamp
}

// OnNoteOff drops the gate; the envelope enters release on the next sample.
func (v *Voice) OnNoteOff() {
	v.gate = false
}

// Process returns the voice amplitude for one sample.
func (v *Voice) Process() float64 {
	if !v.active {
		return 0
	}
	amp := v.env.Process(v.gate)
	if !v.env.IsRunning() {
		v.active = false
	}
	return amp * v.velocity
}

func (v *Voice) silence() {
	v.env.reset()
	v.active = false
	v.gate = false
	v.note = noNote
}

// IsActive reports whether the voice is sounding, including its release.
func (v *Voice) IsActive() bool { return v.active }

// IsGated reports whether the key is still held.
func (v *Voice) IsGated() bool { return v.gate }

func (v *Voice) Note() int { return v.note }

// Velocity is the curved velocity scalar in [0, 1].
func (v *Voice) Velocity() float64 { return v.velocity }

// TriggeredAt is the pool stamp of the last note-on, used to find the oldest
// voice.
func (v *Voice) TriggeredAt() uint64 { return v.triggeredAt }

func (v *Voice) EnvelopeLevel() float64 { return v.env.Level() }

// VelocityScalar maps MIDI velocity to amplitude with a square-root loudness
// curve: sqrt(velocity/127).
func VelocityScalar(velocity int) float64 {
	if velocity <= 0 {
		return 0
	}
	if velocity >= 127 {
		return 1
	}
	return math.Sqrt(float64(velocity) / 127)
}
