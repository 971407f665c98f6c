// Package dispatch applies decoded MIDI events to the engine: notes, envelope
// controllers, pitch bend, and the per-channel envelope/polyphony presets.
package dispatch

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/abcs/rodsynth/internal/voice"
)

type Kind int

const (
	NoteOn Kind = iota + 1
	NoteOff
	ControlChange
	PitchBend
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case ControlChange:
		return "control-change"
	case PitchBend:
		return "pitch-bend"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one decoded MIDI message. Channel is the zero-based wire channel.
// Bend is signed around the centre, -8192..8191.
type Event struct {
	Kind       Kind
	Channel    int
	Note       int
	Velocity   int
	Controller int
	Value      int
	Bend       int16
}

// Controller numbers mapped onto the envelope.
const (
	CCAttack  = 1
	CCDecay   = 2
	CCSustain = 3
	CCRelease = 4
)

// bendSemitones is the pitch-bend range either side of centre.
const bendSemitones = 1.0

// Submitter is the engine's command surface.
type Submitter interface {
	NoteOn(note, velocity int) bool
	NoteOff(note int) bool
	SetADSR(a voice.ADSR) bool
	SetAttack(seconds float64) bool
	SetDecay(seconds float64) bool
	SetSustain(level float64) bool
	SetRelease(seconds float64) bool
	SetPolyphony(n int) bool
	SetPitchBend(mult float64) bool
}

// Dispatcher turns events into engine commands. Handle is called from one
// goroutine; SetPresets may be called from another.
type Dispatcher struct {
	target Submitter
	logger *slog.Logger

	mu        sync.Mutex
	presets   Presets
	mode      int
	stale     bool
	polyphony int
}

func New(target Submitter, presets Presets, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{target: target, presets: presets, logger: logger}
}

// Start applies the channel 1 preset, so the instrument comes up in the same
// mode a channel 1 note would select.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectMode(1, true)
}

// Mode is the one-based channel whose preset is active, or 0 before Start.
func (d *Dispatcher) Mode() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// SetPresets swaps the preset table and re-applies the active channel's
// preset from it.
func (d *Dispatcher) SetPresets(p Presets) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presets = p
	if d.mode != 0 {
		d.selectMode(d.mode, true)
	}
}

func (d *Dispatcher) Handle(ev Event) {
	switch ev.Kind {
	case NoteOn:
		// Velocity 0 is ignored rather than read as note-off, and it does
		// not switch presets either.
		if ev.Velocity == 0 {
			return
		}
		d.mu.Lock()
		d.selectMode(ev.Channel+1, false)
		d.mu.Unlock()
		d.check(ev, d.target.NoteOn(ev.Note, ev.Velocity))
	case NoteOff:
		d.check(ev, d.target.NoteOff(ev.Note))
	case ControlChange:
		d.controlChange(ev)
	case PitchBend:
		d.check(ev, d.target.SetPitchBend(BendMultiplier(ev.Bend)))
	}
}

func (d *Dispatcher) controlChange(ev Event) {
	n := float64(ev.Value) / 127
	var ok bool
	switch ev.Controller {
	case CCAttack:
		ok = d.target.SetAttack(n*5 + 0.002)
	case CCDecay:
		ok = d.target.SetDecay(n*5 + 0.05)
	case CCSustain:
		ok = d.target.SetSustain(n)
	case CCRelease:
		ok = d.target.SetRelease(n*5 + 0.002)
	default:
		return
	}
	d.check(ev, ok)
}

// selectMode applies the preset for channel if it is not already active.
// Polyphony is only resized when it changes, since resizing releases every
// voice. A preset the engine queue could not take stays stale and is sent
// again by the next note. d.mu must be held.
func (d *Dispatcher) selectMode(channel int, force bool) {
	if channel == d.mode && !d.stale && !force {
		return
	}
	p := d.presets.For(channel)
	d.mode = channel
	d.stale = true
	if !d.target.SetADSR(p.ADSR) {
		d.logger.Warn("engine queue full, preset dropped", "channel", channel, "preset", p.Name)
		return
	}
	if p.Polyphony != d.polyphony {
		if !d.target.SetPolyphony(p.Polyphony) {
			d.logger.Warn("engine queue full, polyphony dropped", "channel", channel, "polyphony", p.Polyphony)
			return
		}
		d.polyphony = p.Polyphony
	}
	d.stale = false
	d.logger.Debug("preset selected", "channel", channel, "preset", p.Name, "polyphony", p.Polyphony)
}

func (d *Dispatcher) check(ev Event, ok bool) {
	if !ok {
		d.logger.Warn("engine queue full, event dropped", "event", ev.Kind, "channel", ev.Channel+1, "note", ev.Note)
	}
}

// BendMultiplier converts a signed 14-bit bend into a frequency multiplier
// over one semitone. The positive side tops out at 8191, so it uses its own
// divisor to reach a full semitone.
func BendMultiplier(bend int16) float64 {
	v := float64(bend)
	div := 8192.0
	if v > 0 {
		div = 8191
	}
	return math.Pow(2, v/div*bendSemitones/12)
}
