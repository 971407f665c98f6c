package audio

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer drives the device through oto directly, with a smaller buffer
// than the ebiten player.
type OtoPlayer struct {
	ctx    *oto.Context
	reader *StreamReader

	mu      sync.Mutex
	player  *oto.Player
	started bool
}

func NewOtoPlayer(sampleRate int, source SampleSource) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   10 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	reader := NewStreamReader(source)
	return &OtoPlayer{
		ctx:    ctx,
		reader: reader,
		player: ctx.NewPlayer(reader),
	}, nil
}

func (p *OtoPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

func (p *OtoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *OtoPlayer) Frames() uint64 { return p.reader.Frames() }

func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	p.started = false
	return err
}
