package dispatch

import (
	"fmt"

	"github.com/abcs/rodsynth/internal/voice"
)

// Preset is the envelope and voice count a MIDI channel selects.
type Preset struct {
	Name      string
	ADSR      voice.ADSR
	Polyphony int
}

// Presets maps one-based MIDI channels to presets. Channels without an entry
// use Default.
type Presets struct {
	Default   Preset
	ByChannel map[int]Preset
}

// DefaultPresets is the factory table for a pool of the given capacity.
func DefaultPresets(capacity int) Presets {
	return Presets{
		Default: Preset{Name: "pluck", ADSR: voice.ADSR{Attack: 0.06, Decay: 0.1, Sustain: 0.6, Release: 0.2}, Polyphony: capacity},
		ByChannel: map[int]Preset{
			2: {Name: "swell", ADSR: voice.ADSR{Attack: 3, Decay: 2, Sustain: 0.3, Release: 3}, Polyphony: capacity},
			3: {Name: "bell", ADSR: voice.ADSR{Attack: 0.005, Decay: 9, Sustain: 0.1, Release: 2}, Polyphony: capacity},
			4: {Name: "mono", ADSR: voice.ADSR{Attack: 0.001, Decay: 0.1, Sustain: 0.4, Release: 0.4}, Polyphony: 1},
			5: {Name: "stab", ADSR: voice.ADSR{Attack: 0.003, Decay: 0.3, Sustain: 0.1, Release: 0.5}, Polyphony: capacity},
		},
	}
}

func (p Presets) For(channel int) Preset {
	if pr, ok := p.ByChannel[channel]; ok {
		return pr
	}
	return p.Default
}

// Validate checks every preset against the pool capacity.
func (p Presets) Validate(capacity int) error {
	if err := p.Default.validate(capacity); err != nil {
		return fmt.Errorf("default preset: %w", err)
	}
	for ch, pr := range p.ByChannel {
		if ch < 1 || ch > 16 {
			return fmt.Errorf("preset channel %d outside 1..16", ch)
		}
		if err := pr.validate(capacity); err != nil {
			return fmt.Errorf("channel %d preset: %w", ch, err)
		}
	}
	return nil
}

func (p Preset) validate(capacity int) error {
	a := p.ADSR
	if a.Attack < 0 || a.Decay < 0 || a.Release < 0 {
		return fmt.Errorf("negative envelope time in %+v", a)
	}
	if a.Sustain < 0 || a.Sustain > 1 {
		return fmt.Errorf("sustain %g outside [0, 1]", a.Sustain)
	}
	if p.Polyphony < 1 || p.Polyphony > capacity {
		return fmt.Errorf("polyphony %d outside [1, %d]", p.Polyphony, capacity)
	}
	return nil
}
