// Package midiin receives MIDI from a hardware input port and hands decoded
// events to the background loop through a non-blocking poll.
package midiin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/abcs/rodsynth/internal/dispatch"
)

const defaultQueue = 256

// ErrNoPorts is returned by Open when the driver reports no input ports.
var ErrNoPorts = errors.New("no MIDI input ports")

// Transport buffers decoded events between the driver's listener goroutine
// and the poller.
type Transport struct {
	events  chan dispatch.Event
	port    drivers.In
	stop    func()
	logger  *slog.Logger
	dropped atomic.Uint64
}

func newTransport(size int, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{events: make(chan dispatch.Event, size), logger: logger}
}

// Ports lists the input port names the registered driver can see.
func Ports() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// Open connects to the first input port whose name contains name, or the
// first port at all when name is empty. A MIDI driver must be registered by
// importing one, for example drivers/rtmididrv.
func Open(name string, logger *slog.Logger) (*Transport, error) {
	t := newTransport(defaultQueue, logger)
	var (
		in  drivers.In
		err error
	)
	if name == "" {
		in, err = midi.InPort(0)
		if err != nil {
			return nil, fmt.Errorf("open first MIDI input: %w", ErrNoPorts)
		}
	} else {
		in, err = midi.FindInPort(name)
		if err != nil {
			return nil, fmt.Errorf("find MIDI input %q: %w", name, err)
		}
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("open MIDI input %q: %w", in.String(), err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		t.deliver(msg)
	}, midi.HandleError(func(listenErr error) {
		t.logger.Warn("MIDI listener error", "device", in.String(), "err", listenErr)
	}))
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("listen on MIDI input %q: %w", in.String(), err)
	}
	t.port = in
	t.stop = stop
	t.logger.Info("MIDI input connected", "device", in.String())
	return t, nil
}

// deliver runs on the driver's goroutine. It never blocks: when the queue is
// full the event is counted and dropped.
func (t *Transport) deliver(msg midi.Message) {
	ev, ok := Decode(msg)
	if !ok {
		t.logger.Debug("unhandled MIDI message", "msg", msg.String())
		return
	}
	select {
	case t.events <- ev:
	default:
		t.dropped.Add(1)
	}
}

// Poll appends every event queued so far to dst and returns it. It does not
// wait for more.
func (t *Transport) Poll(dst []dispatch.Event) []dispatch.Event {
	for {
		select {
		case ev := <-t.events:
			dst = append(dst, ev)
		default:
			return dst
		}
	}
}

// Dropped counts events lost to a full queue.
func (t *Transport) Dropped() uint64 { return t.dropped.Load() }

func (t *Transport) Close() error {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	if t.port == nil {
		return nil
	}
	name := t.port.String()
	err := t.port.Close()
	t.port = nil
	t.logger.Info("MIDI input closed", "device", name)
	return err
}

// Decode converts a channel message into an Event. Note-on with velocity 0
// is passed through unchanged.
func Decode(msg midi.Message) (dispatch.Event, bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return dispatch.Event{Kind: dispatch.NoteOn, Channel: int(ch), Note: int(key), Velocity: int(vel)}, true
	case msg.GetNoteOff(&ch, &key, &vel):
		return dispatch.Event{Kind: dispatch.NoteOff, Channel: int(ch), Note: int(key), Velocity: int(vel)}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return dispatch.Event{Kind: dispatch.ControlChange, Channel: int(ch), Controller: int(cc), Value: int(val)}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return dispatch.Event{Kind: dispatch.PitchBend, Channel: int(ch), Bend: rel}, true
	}
	return dispatch.Event{}, false
}
