// Package audio connects a sample source to the sound card.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync/atomic"
)

// SampleSource fills dst with interleaved stereo float32 frames. It is
// called from the audio device's goroutine only.
type SampleSource interface {
	Process(dst []float32)
}

// Sink is a running audio output.
type Sink interface {
	Play()
	Stop() error
}

// Backend names accepted by Open.
const (
	BackendEbiten = "ebiten"
	BackendOto    = "oto"
)

// Open starts a sink on the named backend. The sink is created paused.
func Open(backend string, sampleRate int, source SampleSource) (Sink, error) {
	switch backend {
	case "", BackendEbiten:
		return NewPlayer(sampleRate, source)
	case BackendOto:
		return NewOtoPlayer(sampleRate, source)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// StreamReader exposes a SampleSource as a little-endian float32 stereo
// byte stream.
type StreamReader struct {
	source SampleSource
	buf    []float32
	frames atomic.Uint64
}

var _ io.Reader = (*StreamReader)(nil)

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

// Read renders whole frames only; a trailing partial frame in p is left
// untouched and not counted.
func (r *StreamReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	r.frames.Add(uint64(frames))
	return frames * 8, nil
}

// Frames is the number of frames handed to the device so far.
func (r *StreamReader) Frames() uint64 { return r.frames.Load() }

func (r *StreamReader) Close() error { return nil }
