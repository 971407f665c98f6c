// Package config loads the instrument's JSON configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/abcs/rodsynth/internal/dispatch"
	"github.com/abcs/rodsynth/internal/distance"
	"github.com/abcs/rodsynth/internal/voice"
)

const defaultConfig = `{
	"sampleRate": 48000,
	"capacity": 5,
	"masterGain": 1,
	"midiPort": "",
	"watch": true,
	"rodSensorChannels": [0, 1, 3, 2],
	"distance": {
		"minMM": 10,
		"maxMM": 120,
		"depth": 10,
		"defaultRange": 1,
		"updateEvery": 10
	},
	"presets": {
		"default": { "name": "pluck", "attack": 0.06, "decay": 0.1, "sustain": 0.6, "release": 0.2 },
		"2": { "name": "swell", "attack": 3, "decay": 2, "sustain": 0.3, "release": 3 },
		"3": { "name": "bell", "attack": 0.005, "decay": 9, "sustain": 0.1, "release": 2 },
		"4": { "name": "mono", "attack": 0.001, "decay": 0.1, "sustain": 0.4, "release": 0.4, "polyphony": 1 },
		"5": { "name": "stab", "attack": 0.003, "decay": 0.3, "sustain": 0.1, "release": 0.5 }
	}
}
`

// PresetConfig is one entry of the presets table. A zero polyphony means
// the full pool capacity.
type PresetConfig struct {
	Name      string  `json:"name"`
	Attack    float64 `json:"attack"`
	Decay     float64 `json:"decay"`
	Sustain   float64 `json:"sustain"`
	Release   float64 `json:"release"`
	Polyphony int     `json:"polyphony,omitempty"`
}

type DistanceConfig struct {
	MinMM        float64 `json:"minMM"`
	MaxMM        float64 `json:"maxMM"`
	Depth        int     `json:"depth"`
	DefaultRange float64 `json:"defaultRange"`
	// UpdateEvery is how many background iterations pass between sensor
	// sweeps.
	UpdateEvery int `json:"updateEvery"`
}

type Config struct {
	SampleRate        int                     `json:"sampleRate"`
	Capacity          int                     `json:"capacity"`
	MasterGain        float64                 `json:"masterGain"`
	MIDIPort          string                  `json:"midiPort"`
	Watch             bool                    `json:"watch"`
	RodSensorChannels []int                   `json:"rodSensorChannels"`
	Distance          DistanceConfig          `json:"distance"`
	Presets           map[string]PresetConfig `json:"presets"`
}

// Default is the document written by Load when the file is missing.
func Default() *Config {
	c, err := Parse([]byte(defaultConfig))
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the configuration at p, writing the default document first if
// there is no file.
func Load(p string) (*Config, error) {
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(p, []byte(defaultConfig), 0o644); err != nil {
			return nil, fmt.Errorf("can't write default config: %w", err)
		}
	}
	return read(p)
}

func read(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return c, nil
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sampleRate must be positive")
	}
	if c.Capacity < 1 {
		return errors.New("capacity must be at least 1")
	}
	if c.MasterGain < 0 || c.MasterGain > 1 {
		return fmt.Errorf("masterGain %g outside [0, 1]", c.MasterGain)
	}
	if c.Distance.UpdateEvery < 1 {
		return errors.New("distance.updateEvery must be at least 1")
	}
	if err := c.DistanceConfig().Validate(); err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	p, err := c.ToPresets()
	if err != nil {
		return err
	}
	return p.Validate(c.Capacity)
}

// DistanceConfig converts the distance section and sensor mapping for the
// distance manager.
func (c *Config) DistanceConfig() distance.Config {
	return distance.Config{
		MinMM:        c.Distance.MinMM,
		MaxMM:        c.Distance.MaxMM,
		Depth:        c.Distance.Depth,
		DefaultRange: c.Distance.DefaultRange,
		Mapping:      append([]int(nil), c.RodSensorChannels...),
	}
}

// ToPresets builds the dispatcher's table. Keys are "default" or a one-based
// MIDI channel number.
func (c *Config) ToPresets() (dispatch.Presets, error) {
	def, ok := c.Presets["default"]
	if !ok {
		return dispatch.Presets{}, errors.New(`presets: missing "default" entry`)
	}
	out := dispatch.Presets{
		Default:   def.preset(c.Capacity),
		ByChannel: make(map[int]dispatch.Preset, len(c.Presets)),
	}
	for key, pc := range c.Presets {
		if key == "default" {
			continue
		}
		ch, err := strconv.Atoi(key)
		if err != nil {
			return dispatch.Presets{}, fmt.Errorf("presets: key %q is not a channel number", key)
		}
		out.ByChannel[ch] = pc.preset(c.Capacity)
	}
	return out, nil
}

func (pc PresetConfig) preset(capacity int) dispatch.Preset {
	poly := pc.Polyphony
	if poly == 0 {
		poly = capacity
	}
	return dispatch.Preset{
		Name:      pc.Name,
		ADSR:      voice.ADSR{Attack: pc.Attack, Decay: pc.Decay, Sustain: pc.Sustain, Release: pc.Release},
		Polyphony: poly,
	}
}
