// Package distance keeps a smoothed, normalized distance reading per rod.
// Raw millimetre readings come from a Ranger on the background goroutine;
// the audio goroutine reads the latest normalized value without blocking.
package distance

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// Ranger reads one time-of-flight sensor behind the multiplexer. Reads may
// block and are only made from the background goroutine.
type Ranger interface {
	ReadRange(channel int) (mm int, err error)
}

type Config struct {
	MinMM        float64
	MaxMM        float64
	Depth        int
	DefaultRange float64
	// Mapping[rod] is the multiplexer channel wired to that rod.
	Mapping []int
}

func DefaultConfig() Config {
	return Config{
		MinMM:        10,
		MaxMM:        120,
		Depth:        10,
		DefaultRange: 1,
		Mapping:      []int{0, 1, 3, 2},
	}
}

func (c Config) Validate() error {
	if c.MaxMM <= c.MinMM {
		return fmt.Errorf("maxMM (%g) must be greater than minMM (%g)", c.MaxMM, c.MinMM)
	}
	if c.Depth < 1 {
		return errors.New("depth must be at least 1")
	}
	if c.DefaultRange < 0 || c.DefaultRange > 1 {
		return fmt.Errorf("defaultRange %g outside [0, 1]", c.DefaultRange)
	}
	if len(c.Mapping) == 0 {
		return errors.New("sensor mapping is empty")
	}
	seen := make([]bool, len(c.Mapping))
	for rod, ch := range c.Mapping {
		if ch < 0 || ch >= len(c.Mapping) || seen[ch] {
			return fmt.Errorf("sensor mapping %v is not a permutation (rod %d -> %d)", c.Mapping, rod, ch)
		}
		seen[ch] = true
	}
	return nil
}

// Manager polls every channel and publishes the normalized average of the
// last Depth readings for each.
type Manager struct {
	ranger  Ranger
	cfg     Config
	history [][]int
	filled  []int
	next    []int
	values  []atomic.Uint64
}

func NewManager(r Ranger, cfg Config) (*Manager, error) {
	if r == nil {
		return nil, errors.New("distance manager needs a ranger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(cfg.Mapping)
	m := &Manager{
		ranger:  r,
		cfg:     cfg,
		history: make([][]int, n),
		filled:  make([]int, n),
		next:    make([]int, n),
		values:  make([]atomic.Uint64, n),
	}
	for ch := range m.history {
		m.history[ch] = make([]int, cfg.Depth)
		m.values[ch].Store(math.Float64bits(cfg.DefaultRange))
	}
	return m, nil
}

// UpdateRanges reads every channel once. A failed channel keeps its last
// published value; the failures are returned together.
func (m *Manager) UpdateRanges() error {
	var errs []error
	for ch := range m.history {
		mm, err := m.ranger.ReadRange(ch)
		if err != nil {
			errs = append(errs, fmt.Errorf("distance channel %d: %w", ch, err))
			continue
		}
		m.record(ch, mm)
	}
	return errors.Join(errs...)
}

func (m *Manager) record(ch, mm int) {
	h := m.history[ch]
	h[m.next[ch]] = mm
	m.next[ch] = (m.next[ch] + 1) % len(h)
	if m.filled[ch] < len(h) {
		m.filled[ch]++
	}
	var sum float64
	for i := 0; i < m.filled[ch]; i++ {
		sum += float64(h[i])
	}
	avg := sum / float64(m.filled[ch])
	m.values[ch].Store(math.Float64bits(m.Normalize(avg)))
}

// Normalize clamps mm to [MinMM, MaxMM] and maps it onto [0, 1].
func (m *Manager) Normalize(mm float64) float64 {
	if mm < m.cfg.MinMM {
		mm = m.cfg.MinMM
	}
	if mm > m.cfg.MaxMM {
		mm = m.cfg.MaxMM
	}
	return (mm - m.cfg.MinMM) / (m.cfg.MaxMM - m.cfg.MinMM)
}

// Channel returns the multiplexer channel wired to rod.
func (m *Manager) Channel(rod int) int {
	if rod < 0 || rod >= len(m.cfg.Mapping) {
		return -1
	}
	return m.cfg.Mapping[rod]
}

// GetNormalizedRange returns the latest value for rod. It never blocks.
func (m *Manager) GetNormalizedRange(rod int) float64 {
	ch := m.Channel(rod)
	if ch < 0 {
		return m.cfg.DefaultRange
	}
	return math.Float64frombits(m.values[ch].Load())
}
