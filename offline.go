package rodsynth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sort"
	"time"

	"github.com/abcs/rodsynth/internal/dispatch"
	"github.com/abcs/rodsynth/internal/distance"
	"github.com/abcs/rodsynth/internal/engine"
	"github.com/abcs/rodsynth/internal/sensor"
)

// Rig is an instrument with software rods and distance sensors, as used by
// offline renders.
type Rig struct {
	*Instrument
	Rods    *sensor.Virtual
	Ranges  *distance.Virtual
	mapping []int
}

// SetDistance places the hand mm millimetres from rod.
func (r *Rig) SetDistance(rod, mm int) {
	if rod >= 0 && rod < len(r.mapping) {
		r.Ranges.Set(r.mapping[rod], mm)
	}
}

// NewRig builds an instrument whose rods start still and whose hands start
// at the far end of the distance range.
func NewRig(sampleRate int, opts ...Option) (*Rig, error) {
	cfg := distance.DefaultConfig()
	rods := sensor.NewVirtual(engine.NumRods)
	ranges := distance.NewVirtual(len(cfg.Mapping), int(cfg.MaxMM))
	base := []Option{
		WithSensorSource(rods),
		WithDistance(ranges, cfg),
		WithRangeEvery(1),
		WithStatsPeriod(0),
	}
	in, err := New(sampleRate, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Rig{Instrument: in, Rods: rods, Ranges: ranges, mapping: cfg.Mapping}, nil
}

// Cue is one scripted action at an offset from the start of a render.
type Cue struct {
	At    time.Duration
	Apply func(*Rig)
}

func NoteOn(at time.Duration, channel, note, velocity int) Cue {
	return eventCue(at, dispatch.Event{Kind: dispatch.NoteOn, Channel: channel, Note: note, Velocity: velocity})
}

func NoteOff(at time.Duration, channel, note int) Cue {
	return eventCue(at, dispatch.Event{Kind: dispatch.NoteOff, Channel: channel, Note: note})
}

func ControlChange(at time.Duration, channel, controller, value int) Cue {
	return eventCue(at, dispatch.Event{Kind: dispatch.ControlChange, Channel: channel, Controller: controller, Value: value})
}

func PitchBend(at time.Duration, channel int, bend int16) Cue {
	return eventCue(at, dispatch.Event{Kind: dispatch.PitchBend, Channel: channel, Bend: bend})
}

func eventCue(at time.Duration, ev dispatch.Event) Cue {
	return Cue{At: at, Apply: func(r *Rig) { r.Handle(ev) }}
}

// Spin sets a rod's speed in revolutions per second.
func Spin(at time.Duration, rod int, rps float64) Cue {
	return Cue{At: at, Apply: func(r *Rig) { r.Rods.SetSpin(rod, rps) }}
}

// Turn moves a rod's encoder by n detents. Positive n lowers the harmonic.
func Turn(at time.Duration, rod, n int) Cue {
	return Cue{At: at, Apply: func(r *Rig) { r.Rods.Turn(rod, n) }}
}

// Press holds a rod's button for hold. Holds past sensor.LongPress toggle
// the modulation target; shorter ones step the waveform.
func Press(at time.Duration, rod int, hold time.Duration) []Cue {
	return []Cue{
		{At: at, Apply: func(r *Rig) { r.Rods.SetButton(rod, true) }},
		{At: at + hold, Apply: func(r *Rig) { r.Rods.SetButton(rod, false) }},
	}
}

func Distance(at time.Duration, rod, mm int) Cue {
	return Cue{At: at, Apply: func(r *Rig) { r.SetDistance(rod, mm) }}
}

// controlChunk bounds how long the render runs between control steps, so
// distance sweeps and modulation settle the way they do live.
const controlChunk = 10 * time.Millisecond

// Render plays cues through the rig for the given duration and returns
// interleaved stereo.
func (r *Rig) Render(cues []Cue, seconds float64) []float32 {
	sr := r.Engine().SampleRate()
	frames := int(float64(sr) * seconds)
	out := make([]float32, frames*2)

	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	toFrame := func(d time.Duration) int {
		return int(d.Seconds()*float64(sr) + 0.5)
	}
	chunk := toFrame(controlChunk)
	if chunk < 1 {
		chunk = 1
	}

	r.Step()
	pos, next := 0, 0
	for pos < frames {
		for next < len(sorted) && toFrame(sorted[next].At) <= pos {
			sorted[next].Apply(r)
			next++
		}
		r.Step()
		end := pos + chunk
		if next < len(sorted) {
			if at := toFrame(sorted[next].At); at < end {
				end = at
			}
		}
		if end > frames {
			end = frames
		}
		r.Process(out[pos*2 : end*2])
		pos = end
	}
	return out
}

// RenderSamples renders a scripted phrase on a fresh rig.
func RenderSamples(sampleRate int, cues []Cue, seconds float64, opts ...Option) ([]float32, error) {
	if seconds < 0 {
		return nil, errors.New("seconds must not be negative")
	}
	rig, err := NewRig(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return rig.Render(cues, seconds), nil
}

// DemoPhrase is a short chord phrase exercising every rod gesture.
func DemoPhrase() []Cue {
	ms := time.Millisecond
	cues := []Cue{
		Spin(0, 0, 4),
		Spin(0, 1, 6),
		Spin(0, 2, 2),
		Spin(0, 3, 9),
		NoteOn(50*ms, 0, 48, 100),
		NoteOn(60*ms, 0, 55, 90),
		NoteOn(70*ms, 0, 64, 80),
		Turn(400*ms, 1, -1),
		Distance(600*ms, 2, 60),
		PitchBend(800*ms, 0, 4096),
		NoteOff(1200*ms, 0, 48),
		NoteOff(1200*ms, 0, 55),
		NoteOff(1200*ms, 0, 64),
		NoteOn(1300*ms, 1, 52, 110),
		NoteOff(2200*ms, 1, 52),
	}
	cues = append(cues, Press(200*ms, 0, 50*ms)...)
	cues = append(cues, Press(900*ms, 3, 800*ms)...)
	return cues
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

const wavFormatFloat = 3

// WriteWAVFloat32LE writes samples as an IEEE float WAV file.
func WriteWAVFloat32LE(w io.Writer, samples []float32, sampleRate, channels int) error {
	dataSize := len(samples) * 4
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataSize),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        wavFormatFloat,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 4),
		BlockAlign:    uint16(channels * 4),
		BitsPerSample: 32,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataSize),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	buf := make([]byte, 4096)
	for len(samples) > 0 {
		n := min(len(samples), len(buf)/4)
		for i, s := range samples[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
		}
		if _, err := w.Write(buf[:n*4]); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}

// EncodeWAVFloat32LE returns samples as an in-memory WAV file.
func EncodeWAVFloat32LE(samples []float32, sampleRate, channels int) []byte {
	var b bytes.Buffer
	b.Grow(44 + len(samples)*4)
	_ = WriteWAVFloat32LE(&b, samples, sampleRate, channels)
	return b.Bytes()
}
