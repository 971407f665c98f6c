package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abcs/rodsynth/internal/voice"
)

func TestLoadWritesDefault(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rodsynth.json")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if c.Capacity != 5 || c.SampleRate != 48000 || !c.Watch {
		t.Fatalf("unexpected default %+v", c)
	}
	if got := c.DistanceConfig().Mapping; len(got) != 4 || got[2] != 3 || got[3] != 2 {
		t.Fatalf("mapping = %v", got)
	}
}

func TestDefaultPresetsMatchDispatchTable(t *testing.T) {
	p, err := Default().ToPresets()
	if err != nil {
		t.Fatalf("ToPresets: %v", err)
	}
	want := voice.ADSR{Attack: 0.06, Decay: 0.1, Sustain: 0.6, Release: 0.2}
	if p.Default.ADSR != want || p.Default.Polyphony != 5 {
		t.Fatalf("default preset = %+v", p.Default)
	}
	if got := p.For(4); got.Polyphony != 1 || got.Name != "mono" {
		t.Fatalf("channel 4 = %+v", got)
	}
	if got := p.For(2); got.Polyphony != 5 {
		t.Fatalf("channel 2 polyphony = %d, want capacity", got.Polyphony)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{"bad json", func(s string) string { return s[:10] }, "unmarshalling"},
		{"zero sample rate", func(s string) string {
			return strings.Replace(s, `"sampleRate": 48000`, `"sampleRate": 0`, 1)
		}, "sampleRate"},
		{"channel out of range", func(s string) string {
			return strings.Replace(s, `"5": {`, `"17": {`, 1)
		}, "channel 17"},
		{"non-numeric key", func(s string) string {
			return strings.Replace(s, `"5": {`, `"five": {`, 1)
		}, "not a channel"},
		{"polyphony over capacity", func(s string) string {
			return strings.Replace(s, `"polyphony": 1`, `"polyphony": 9`, 1)
		}, "polyphony 9"},
		{"mapping not a permutation", func(s string) string {
			return strings.Replace(s, `[0, 1, 3, 2]`, `[0, 1, 1, 2]`, 1)
		}, "permutation"},
		{"missing default", func(s string) string {
			return strings.Replace(s, `"default":`, `"1":`, 1)
		}, "default"},
		{"sustain above one", func(s string) string {
			return strings.Replace(s, `"sustain": 0.6`, `"sustain": 1.6`, 1)
		}, "sustain"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.mutate(defaultConfig)))
			if err == nil {
				t.Fatal("Parse accepted invalid document")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, c.wantErr)
			}
		})
	}
}

func TestWatchReloadsValidDocuments(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rodsynth.json")
	if _, err := Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Watch(ctx, p, logger, func(c *Config) { got <- c })
	}()

	invalid := strings.Replace(defaultConfig, `"capacity": 5`, `"capacity": 0`, 1)
	valid := strings.Replace(defaultConfig, `"masterGain": 1`, `"masterGain": 0.5`, 1)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.MasterGain != 0.5 {
				t.Fatalf("reloaded masterGain = %g, want 0.5", c.MasterGain)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch: %v", err)
			}
			return
		case <-tick.C:
			// The watcher may not be registered yet, so keep rewriting.
			if err := os.WriteFile(p, []byte(invalid), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(p, []byte(valid), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
