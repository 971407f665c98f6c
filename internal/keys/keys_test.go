package keys

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/abcs/rodsynth/internal/controls"
	"github.com/abcs/rodsynth/internal/dispatch"
	"github.com/abcs/rodsynth/internal/distance"
	"github.com/abcs/rodsynth/internal/sensor"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func quiet() Option                      { return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func newTestKeyboard(opts ...Option) (*Keyboard, *sensor.Virtual, *clock) {
	c := &clock{t: time.Unix(1000, 0)}
	rods := sensor.NewVirtual(4)
	k := New(rods, 4, append([]Option{withClock(c.now), quiet()}, opts...)...)
	return k, rods, c
}

func TestNoteHeldUntilRepeatsStop(t *testing.T) {
	k, _, c := newTestKeyboard()
	k.Key('a')
	got := k.Poll(nil)
	if len(got) != 1 || got[0] != (dispatch.Event{Kind: dispatch.NoteOn, Note: 60, Velocity: velocity}) {
		t.Fatalf("first poll = %+v", got)
	}

	// Auto-repeat extends the hold without a second note-on.
	c.advance(noteHold / 2)
	k.Key('a')
	c.advance(noteHold / 2)
	if got := k.Poll(nil); len(got) != 0 {
		t.Fatalf("repeat produced %+v", got)
	}

	c.advance(noteHold / 2)
	got = k.Poll(nil)
	if len(got) != 1 || got[0].Kind != dispatch.NoteOff || got[0].Note != 60 {
		t.Fatalf("release poll = %+v", got)
	}
}

func TestOctaveAndChannel(t *testing.T) {
	k, _, _ := newTestKeyboard()
	k.Key('x')
	k.Key('4')
	k.Key('k')
	got := k.Poll(nil)
	if len(got) != 1 || got[0].Note != 84 || got[0].Channel != 3 {
		t.Fatalf("poll = %+v", got)
	}
	for i := 0; i < 10; i++ {
		k.Key('z')
	}
	k.Key('a')
	got = k.Poll(nil)
	if last := got[len(got)-1]; last.Note != 12 {
		t.Fatalf("lowest octave note = %d, want 12", last.Note)
	}
}

func TestChannelChangeReleasesHeldNotes(t *testing.T) {
	k, _, _ := newTestKeyboard()
	k.Key('a')
	k.Key('d')
	k.Poll(nil)
	k.Key('2')
	got := k.Poll(nil)
	if len(got) != 2 || got[0].Kind != dispatch.NoteOff || got[0].Note != 60 || got[1].Note != 64 {
		t.Fatalf("poll = %+v", got)
	}
	if got[0].Channel != 0 {
		t.Fatalf("note-off sent on channel %d, want the old channel", got[0].Channel)
	}
}

func TestRodGestures(t *testing.T) {
	k, rods, c := newTestKeyboard()
	k.Key('\t')
	if k.Rod() != 1 {
		t.Fatalf("Rod = %d, want 1", k.Rod())
	}
	k.Key('=')
	k.Key('=')
	k.Key('-')
	if got := rods.Spin(1); math.Abs(got-spinStep) > 1e-9 {
		t.Fatalf("spin = %f, want %f", got, spinStep)
	}
	for i := 0; i < 5; i++ {
		k.Key('-')
	}
	if rods.Spin(1) != 0 {
		t.Fatalf("spin went below zero: %f", rods.Spin(1))
	}

	k.Key('/')
	if !rods.Button(1) {
		t.Fatal("short press did not hold the button")
	}
	c.advance(shortPress - time.Millisecond)
	k.Poll(nil)
	if !rods.Button(1) {
		t.Fatal("button released early")
	}
	c.advance(time.Millisecond)
	k.Poll(nil)
	if rods.Button(1) {
		t.Fatal("button still held after short press")
	}

	k.Key('?')
	c.advance(sensor.LongPress)
	k.Poll(nil)
	if !rods.Button(1) {
		t.Fatal("long press released before the long-press threshold")
	}
	if rods.Button(0) {
		t.Fatal("gesture leaked onto rod 0")
	}
}

func TestRangeAndVolumeKeys(t *testing.T) {
	ranges := distance.NewVirtual(4, 60)
	pot := controls.NewVirtualPot(0.5)
	k, _, _ := newTestKeyboard(WithRanges(ranges, []int{0, 1, 3, 2}), WithGainPot(pot))
	k.Key('\t')
	k.Key('\t')
	k.Key(']')
	if mm, _ := ranges.ReadRange(3); mm != 60+rangeStep {
		t.Fatalf("rod 2 channel 3 reads %d mm", mm)
	}
	if mm, _ := ranges.ReadRange(2); mm != 60 {
		t.Fatalf("channel 2 moved to %d mm", mm)
	}
	k.Key('0')
	if got := pot.Value(); math.Abs(got-(0.5-volumeStep)) > 1e-9 {
		t.Fatalf("pot = %f after volume up", got)
	}
}

func TestQuit(t *testing.T) {
	k, _, _ := newTestKeyboard()
	select {
	case <-k.Done():
		t.Fatal("done before quit")
	default:
	}
	k.Key('q')
	k.Key(0x03)
	select {
	case <-k.Done():
	default:
		t.Fatal("quit key did not close Done")
	}
}
