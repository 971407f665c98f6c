package distance

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoSensor is returned for a channel with no sensor attached.
var ErrNoSensor = errors.New("no sensor on channel")

// Virtual is a Ranger whose readings are set in software.
type Virtual struct {
	mu     sync.Mutex
	mm     []int
	failed []bool
}

// NewVirtual returns channels sensors all reading mm.
func NewVirtual(channels, mm int) *Virtual {
	v := &Virtual{mm: make([]int, channels), failed: make([]bool, channels)}
	for i := range v.mm {
		v.mm[i] = mm
	}
	return v
}

func (v *Virtual) Set(channel, mm int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if channel >= 0 && channel < len(v.mm) {
		v.mm[channel] = mm
	}
}

// Nudge moves a channel's reading by delta and returns the new value.
func (v *Virtual) Nudge(channel, delta int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if channel < 0 || channel >= len(v.mm) {
		return 0
	}
	v.mm[channel] += delta
	if v.mm[channel] < 0 {
		v.mm[channel] = 0
	}
	return v.mm[channel]
}

// SetFailed makes reads on channel fail until cleared.
func (v *Virtual) SetFailed(channel int, failed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if channel >= 0 && channel < len(v.failed) {
		v.failed[channel] = failed
	}
}

func (v *Virtual) ReadRange(channel int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if channel < 0 || channel >= len(v.mm) || v.failed[channel] {
		return 0, fmt.Errorf("read channel %d: %w", channel, ErrNoSensor)
	}
	return v.mm[channel], nil
}
