// Command rodrender renders the demo phrase, or a phrase read from a file,
// to a float32 WAV file.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"

	"github.com/abcs/rodsynth"
	"github.com/abcs/rodsynth/internal/config"
	"github.com/abcs/rodsynth/internal/engine"
)

func main() {
	var (
		out        = flag.String("o", "rodsynth.wav", "output WAV path")
		seconds    = flag.Float64("seconds", 3, "render length in seconds")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		configPath = flag.String("config", "", "optional config file for capacity and presets")
		script     = flag.String("script", "", "optional cue script (default: built-in demo phrase)")
	)
	flag.Parse()

	var opts []rodsynth.Option
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		presets, err := cfg.ToPresets()
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts,
			rodsynth.WithParams(engine.Params{Capacity: cfg.Capacity, MasterGain: cfg.MasterGain}),
			rodsynth.WithPresets(presets),
		)
	}

	cues := rodsynth.DemoPhrase()
	if *script != "" {
		data, err := os.ReadFile(*script)
		if err != nil {
			log.Fatal(err)
		}
		cues, err = rodsynth.ParseCues(string(data))
		if err != nil {
			log.Fatal(err)
		}
	}

	samples, err := rodsynth.RenderSamples(*sampleRate, cues, *seconds, opts...)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	w := bufio.NewWriter(f)
	if err := rodsynth.WriteWAVFloat32LE(w, samples, *sampleRate, 2); err != nil {
		log.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%.2fs, %d Hz)", *out, *seconds, *sampleRate)
}
