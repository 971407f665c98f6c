package rodsynth

import (
	"errors"
	"sync"

	intaudio "github.com/abcs/rodsynth/internal/audio"
)

// Player connects an Instrument to the sound card.
type Player struct {
	inst    *Instrument
	backend string

	mu     sync.Mutex
	sink   intaudio.Sink
	volume float64
	base   float64
}

// NewPlayer prepares inst for playback on the named audio backend ("ebiten"
// or "oto"). Nothing is opened until Play.
func NewPlayer(inst *Instrument, backend string) (*Player, error) {
	if inst == nil {
		return nil, errors.New("player needs an instrument")
	}
	return &Player{
		inst:    inst,
		backend: backend,
		volume:  1,
		base:    inst.Engine().MasterGain(),
	}, nil
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink != nil {
		return nil
	}
	sink, err := intaudio.Open(p.backend, p.inst.Engine().SampleRate(), p.inst)
	if err != nil {
		return err
	}
	p.sink = sink
	p.sink.Play()
	return nil
}

// Stop closes the sink. Play may be called again afterwards.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink == nil {
		return nil
	}
	err := p.sink.Stop()
	p.sink = nil
	return err
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink != nil
}

// SetMasterVolume scales the configured master gain. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.inst.Engine().SetMasterGain(p.base * volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}
