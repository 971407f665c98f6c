package midiin

import (
	"io"
	"log/slog"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/abcs/rodsynth/internal/dispatch"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		msg  midi.Message
		want dispatch.Event
	}{
		{"note on", midi.NoteOn(2, 60, 100), dispatch.Event{Kind: dispatch.NoteOn, Channel: 2, Note: 60, Velocity: 100}},
		{"note on velocity 0", midi.NoteOn(0, 61, 0), dispatch.Event{Kind: dispatch.NoteOn, Note: 61}},
		{"note off", midi.NoteOffVelocity(1, 62, 40), dispatch.Event{Kind: dispatch.NoteOff, Channel: 1, Note: 62, Velocity: 40}},
		{"control change", midi.ControlChange(0, 3, 127), dispatch.Event{Kind: dispatch.ControlChange, Controller: 3, Value: 127}},
		{"pitch bend up", midi.Pitchbend(0, 8191), dispatch.Event{Kind: dispatch.PitchBend, Bend: 8191}},
		{"pitch bend down", midi.Pitchbend(5, -8192), dispatch.Event{Kind: dispatch.PitchBend, Channel: 5, Bend: -8192}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Decode(c.msg)
			if !ok {
				t.Fatal("Decode rejected message")
			}
			if got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
	if _, ok := Decode(midi.ProgramChange(0, 5)); ok {
		t.Fatal("program change should not decode")
	}
}

func TestPollDrainsWithoutBlocking(t *testing.T) {
	tr := newTransport(4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := tr.Poll(nil); len(got) != 0 {
		t.Fatalf("empty poll returned %d events", len(got))
	}
	tr.deliver(midi.NoteOn(0, 60, 90))
	tr.deliver(midi.NoteOff(0, 60))
	got := tr.Poll(nil)
	if len(got) != 2 || got[0].Kind != dispatch.NoteOn || got[1].Kind != dispatch.NoteOff {
		t.Fatalf("poll = %+v", got)
	}
	if got := tr.Poll(got[:0]); len(got) != 0 {
		t.Fatalf("second poll returned %d events", len(got))
	}
}

func TestDeliverDropsWhenFull(t *testing.T) {
	tr := newTransport(2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < 5; i++ {
		tr.deliver(midi.NoteOn(0, uint8(60+i), 90))
	}
	if got := tr.Dropped(); got != 3 {
		t.Fatalf("Dropped = %d, want 3", got)
	}
	if got := tr.Poll(nil); len(got) != 2 || got[0].Note != 60 {
		t.Fatalf("poll = %+v", got)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close on unopened transport: %v", err)
	}
}
