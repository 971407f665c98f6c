package rodsynth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseCues reads a cue script, one cue per line:
//
//	<ms> on    <channel> <note> <velocity>
//	<ms> off   <channel> <note>
//	<ms> cc    <channel> <controller> <value>
//	<ms> bend  <channel> <value>        signed, -8192..8191
//	<ms> spin  <rod> <rps>
//	<ms> turn  <rod> <detents>          positive lowers the harmonic
//	<ms> press <rod> <hold ms>
//	<ms> dist  <rod> <mm>
//
// Channels are 1..16 as printed on a keyboard. Blank lines and text after
// '#' are ignored.
func ParseCues(script string) ([]Cue, error) {
	var cues []Cue
	for n, line := range strings.Split(script, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		parsed, err := parseCue(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		cues = append(cues, parsed...)
	}
	return cues, nil
}

var cueArity = map[string]int{
	"on": 3, "off": 2, "cc": 3, "bend": 2,
	"spin": 2, "turn": 2, "press": 2, "dist": 2,
}

func parseCue(f []string) ([]Cue, error) {
	if len(f) < 2 {
		return nil, fmt.Errorf("missing command")
	}
	ms, err := strconv.ParseFloat(f[0], 64)
	if err != nil || ms < 0 {
		return nil, fmt.Errorf("bad time %q", f[0])
	}
	at := time.Duration(ms * float64(time.Millisecond))
	cmd := strings.ToLower(f[1])
	want, ok := cueArity[cmd]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", f[1])
	}
	args := f[2:]
	if len(args) != want {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", cmd, want, len(args))
	}

	ints := make([]int, 0, len(args))
	if cmd != "spin" {
		for _, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("%s: bad number %q", cmd, a)
			}
			ints = append(ints, v)
		}
	}
	channel := func() (int, error) {
		if ints[0] < 1 || ints[0] > 16 {
			return 0, fmt.Errorf("%s: channel %d outside 1..16", cmd, ints[0])
		}
		return ints[0] - 1, nil
	}

	switch cmd {
	case "on", "off", "cc", "bend":
		ch, err := channel()
		if err != nil {
			return nil, err
		}
		switch cmd {
		case "on":
			return []Cue{NoteOn(at, ch, ints[1], ints[2])}, nil
		case "off":
			return []Cue{NoteOff(at, ch, ints[1])}, nil
		case "cc":
			return []Cue{ControlChange(at, ch, ints[1], ints[2])}, nil
		default:
			if ints[1] < -8192 || ints[1] > 8191 {
				return nil, fmt.Errorf("bend %d outside -8192..8191", ints[1])
			}
			return []Cue{PitchBend(at, ch, int16(ints[1]))}, nil
		}
	case "spin":
		rod, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("spin: bad rod %q", args[0])
		}
		rps, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("spin: bad speed %q", args[1])
		}
		return []Cue{Spin(at, rod, rps)}, nil
	case "turn":
		return []Cue{Turn(at, ints[0], ints[1])}, nil
	case "press":
		return Press(at, ints[0], time.Duration(ints[1])*time.Millisecond), nil
	default:
		return []Cue{Distance(at, ints[0], ints[1])}, nil
	}
}
