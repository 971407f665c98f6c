package rodsynth

import (
	"strings"
	"testing"
	"time"

	"github.com/abcs/rodsynth/internal/dsp"
)

const testScript = `
# chord on channel 1
0    spin  0 4
50   on    1 60 100
50   on    1 64 100   # third
100  press 0 50
300  off   1 60
300  off   1 64
`

func TestParseCues(t *testing.T) {
	cues, err := ParseCues(testScript)
	if err != nil {
		t.Fatalf("ParseCues: %v", err)
	}
	// press expands to a down and an up cue
	if len(cues) != 7 {
		t.Fatalf("len = %d, want 7", len(cues))
	}
	if cues[1].At != 50*time.Millisecond || cues[4].At != 150*time.Millisecond {
		t.Fatalf("times = %v, %v", cues[1].At, cues[4].At)
	}

	rig, err := NewRig(48000)
	if err != nil {
		t.Fatalf("NewRig: %v", err)
	}
	out := rig.Render(cues, 0.25)
	if rms(out) == 0 {
		t.Fatal("script rendered silence")
	}
	if got := rig.Engine().Rod(0).Waveform; got != dsp.WaveTriangle {
		t.Fatalf("rod 0 waveform = %v, want triangle", got)
	}
	if got := rig.Engine().ActiveVoices(); got != 2 {
		t.Fatalf("ActiveVoices = %d, want 2 before the note-offs", got)
	}
}

func TestParseCuesErrors(t *testing.T) {
	cases := []struct {
		script, want string
	}{
		{"10 on 1 60", "takes 3 arguments"},
		{"x on 1 60 10", "bad time"},
		{"10 hum 1", "unknown command"},
		{"10 on 0 60 10", "outside 1..16"},
		{"10 bend 1 9000", "outside -8192..8191"},
		{"10 spin 0 fast", "bad speed"},
		{"10 turn 0 one", "bad number"},
		{"\n\n10", "line 3"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			_, err := ParseCues(c.script)
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("err = %v, want mention of %q", err, c.want)
			}
		})
	}
}
