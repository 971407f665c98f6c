// Package keys turns computer keystrokes into MIDI events and rod gestures,
// standing in for a keyboard controller and the rod hardware.
//
//	a w s e d f t g y h u j k   notes, one octave from C
//	z x                         octave down / up
//	1..5                        MIDI channel (selects the preset)
//	tab                         next rod
//	, .                         harmonic down / up on the selected rod
//	/ ?                         short / long press on the selected rod
//	- =                         spin the selected rod slower / faster
//	[ ]                         move the hand closer / further
//	9 0                         volume down / up
//	space                       release every note
//	q, ctrl-c                   quit
package keys

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abcs/rodsynth/internal/dispatch"
)

const (
	pianoRow = "awsedftgyhujk"

	// Terminals send no key-up, so a note is held until auto-repeat stops
	// arriving.
	noteHold   = 600 * time.Millisecond
	shortPress = 100 * time.Millisecond
	longPress  = 900 * time.Millisecond

	spinStep   = 0.5
	maxSpin    = 20
	rangeStep  = 10
	volumeStep = 0.05
	velocity   = 100
)

type Rods interface {
	Turn(rod, n int)
	SetButton(rod int, down bool)
	SetSpin(rod int, rps float64)
	Spin(rod int) float64
}

type Ranges interface {
	Nudge(channel, delta int) int
}

type Pot interface {
	Add(delta float64) float64
}

type Option func(*Keyboard)

// WithRanges routes [ and ] to the distance sensor channel of the selected
// rod, looked up through mapping.
func WithRanges(r Ranges, mapping []int) Option {
	return func(k *Keyboard) {
		k.ranges = r
		k.mapping = append([]int(nil), mapping...)
	}
}

// WithGainPot routes 9 and 0 to the master gain pot. The pot is inverted,
// so volume up lowers it.
func WithGainPot(p Pot) Option {
	return func(k *Keyboard) { k.gain = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(k *Keyboard) { k.logger = l }
}

func withClock(now func() time.Time) Option {
	return func(k *Keyboard) { k.now = now }
}

// Keyboard is fed bytes by Key and drained by Poll. Both may be called from
// different goroutines.
type Keyboard struct {
	rods    Rods
	numRods int
	ranges  Ranges
	mapping []int
	gain    Pot
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	octave    int
	channel   int
	rod       int
	held      map[int]time.Time
	buttonsUp []time.Time
	pending   []dispatch.Event
	quit      chan struct{}
	quitOnce  sync.Once
}

func New(rods Rods, numRods int, opts ...Option) *Keyboard {
	if numRods < 1 {
		numRods = 1
	}
	k := &Keyboard{
		rods:      rods,
		numRods:   numRods,
		logger:    slog.Default(),
		now:       time.Now,
		octave:    4,
		held:      make(map[int]time.Time),
		buttonsUp: make([]time.Time, numRods),
		quit:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Done is closed once a quit key has been seen.
func (k *Keyboard) Done() <-chan struct{} { return k.quit }

// Rod is the rod the gesture keys act on.
func (k *Keyboard) Rod() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.rod
}

// Key applies one keystroke.
func (k *Keyboard) Key(b byte) {
	now := k.now()
	k.mu.Lock()
	defer k.mu.Unlock()

	if i := strings.IndexByte(pianoRow, b); i >= 0 {
		k.noteKey(12*(k.octave+1)+i, now)
		return
	}
	switch b {
	case 'q', 0x03:
		k.quitOnce.Do(func() { close(k.quit) })
	case 'z':
		k.setOctave(k.octave - 1)
	case 'x':
		k.setOctave(k.octave + 1)
	case '1', '2', '3', '4', '5':
		k.releaseAll()
		k.channel = int(b - '1')
		k.logger.Info("keyboard channel", "channel", k.channel+1)
	case '\t':
		k.rod = (k.rod + 1) % k.numRods
		k.logger.Info("keyboard rod", "rod", k.rod)
	case ',':
		k.rods.Turn(k.rod, 1)
	case '.':
		k.rods.Turn(k.rod, -1)
	case '/':
		k.press(now, shortPress)
	case '?':
		k.press(now, longPress)
	case '-':
		k.spin(-spinStep)
	case '=':
		k.spin(spinStep)
	case '[':
		k.nudgeRange(-rangeStep)
	case ']':
		k.nudgeRange(rangeStep)
	case '9':
		if k.gain != nil {
			k.gain.Add(volumeStep)
		}
	case '0':
		if k.gain != nil {
			k.gain.Add(-volumeStep)
		}
	case ' ':
		k.releaseAll()
	}
}

// Poll appends the events produced since the last call, including the
// note-offs of notes whose hold has run out, and lets go of timed button
// presses.
func (k *Keyboard) Poll(dst []dispatch.Event) []dispatch.Event {
	now := k.now()
	k.mu.Lock()
	defer k.mu.Unlock()

	expired := make([]int, 0, len(k.held))
	for note, until := range k.held {
		if !now.Before(until) {
			expired = append(expired, note)
		}
	}
	sort.Ints(expired)
	for _, note := range expired {
		k.noteOff(note)
	}
	for rod, up := range k.buttonsUp {
		if !up.IsZero() && !now.Before(up) {
			k.rods.SetButton(rod, false)
			k.buttonsUp[rod] = time.Time{}
		}
	}
	dst = append(dst, k.pending...)
	k.pending = k.pending[:0]
	return dst
}

func (k *Keyboard) noteKey(note int, now time.Time) {
	if _, ok := k.held[note]; !ok {
		k.pending = append(k.pending, dispatch.Event{Kind: dispatch.NoteOn, Channel: k.channel, Note: note, Velocity: velocity})
	}
	k.held[note] = now.Add(noteHold)
}

func (k *Keyboard) noteOff(note int) {
	delete(k.held, note)
	k.pending = append(k.pending, dispatch.Event{Kind: dispatch.NoteOff, Channel: k.channel, Note: note})
}

func (k *Keyboard) releaseAll() {
	notes := make([]int, 0, len(k.held))
	for note := range k.held {
		notes = append(notes, note)
	}
	sort.Ints(notes)
	for _, note := range notes {
		k.noteOff(note)
	}
}

func (k *Keyboard) setOctave(o int) {
	if o < 0 || o > 8 {
		return
	}
	k.octave = o
	k.logger.Info("keyboard octave", "octave", o)
}

func (k *Keyboard) press(now time.Time, hold time.Duration) {
	k.rods.SetButton(k.rod, true)
	k.buttonsUp[k.rod] = now.Add(hold)
}

func (k *Keyboard) spin(delta float64) {
	rps := k.rods.Spin(k.rod) + delta
	if rps < 0 {
		rps = 0
	}
	if rps > maxSpin {
		rps = maxSpin
	}
	k.rods.SetSpin(k.rod, rps)
	k.logger.Debug("rod spin", "rod", k.rod, "rps", rps)
}

func (k *Keyboard) nudgeRange(delta int) {
	if k.ranges == nil || k.rod >= len(k.mapping) {
		return
	}
	mm := k.ranges.Nudge(k.mapping[k.rod], delta)
	k.logger.Debug("rod distance", "rod", k.rod, "mm", mm)
}
