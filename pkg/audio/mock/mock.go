// Package mock provides in-memory implementations of the [audio.Host],
// [audio.InputDevice], and [audio.OutputDevice] interfaces for use in unit
// tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	out := &mock.OutputDevice{Clock: 100 * time.Millisecond}
//	host := &mock.Host{Output: out}
//	// ... exercise the scheduler, then inspect out.Scheduled.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/juanan28s/flextranslator/pkg/audio"
)

// ─── InputDevice ──────────────────────────────────────────────────────────────

// InputDevice is a mock implementation of [audio.InputDevice]. Tests drive the
// capture callback directly via [InputDevice.EmitFrame].
type InputDevice struct {
	mu sync.Mutex

	// Rate is returned by SampleRate. Defaults to 48000 if zero.
	Rate int

	// StartError is returned by Start.
	StartError error

	// SuspendError and ResumeError are returned by the respective methods.
	SuspendError error
	ResumeError  error

	cb        func([]float32)
	suspended bool

	// CallCountStart, CallCountSuspend, CallCountResume, and CallCountClose
	// record how many times each method was called.
	CallCountStart   int
	CallCountSuspend int
	CallCountResume  int
	CallCountClose   int
}

var _ audio.InputDevice = (*InputDevice)(nil)

func (d *InputDevice) Start(cb func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountStart++
	if d.StartError != nil {
		return d.StartError
	}
	d.cb = cb
	return nil
}

func (d *InputDevice) SampleRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Rate == 0 {
		return 48000
	}
	return d.Rate
}

func (d *InputDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountSuspend++
	if d.SuspendError != nil {
		return d.SuspendError
	}
	d.suspended = true
	return nil
}

func (d *InputDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountResume++
	if d.ResumeError != nil {
		return d.ResumeError
	}
	d.suspended = false
	return nil
}

func (d *InputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountClose++
	d.cb = nil
	return nil
}

// Suspended reports whether the device is currently suspended.
func (d *InputDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// EmitFrame invokes the registered capture callback with samples, simulating
// the audio runtime delivering one block. It is a no-op if Start has not been
// called or the device was closed.
func (d *InputDevice) EmitFrame(samples []float32) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(samples)
	}
}

// ─── OutputDevice ─────────────────────────────────────────────────────────────

// ScheduledChunk records one Schedule call on a mock [OutputDevice].
type ScheduledChunk struct {
	At      time.Duration
	Samples []float32
}

// OutputDevice is a mock implementation of [audio.OutputDevice] with a
// test-settable clock.
type OutputDevice struct {
	mu sync.Mutex

	// Clock is the value returned by Now. Tests advance it manually.
	Clock time.Duration

	// StartSuspended makes the device report Suspended until Resume is called.
	StartSuspended bool
	resumed        bool

	// ScheduleError is returned by Schedule.
	ScheduleError error

	// ResumeError is returned by Resume.
	ResumeError error

	// Scheduled holds every successfully scheduled chunk in call order.
	Scheduled []ScheduledChunk

	CallCountResume int
	CallCountClose  int
}

var _ audio.OutputDevice = (*OutputDevice)(nil)

func (d *OutputDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Clock
}

// SetClock moves the device clock, simulating playback time passing.
func (d *OutputDevice) SetClock(t time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clock = t
}

func (d *OutputDevice) Schedule(at time.Duration, samples []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScheduleError != nil {
		return d.ScheduleError
	}
	d.Scheduled = append(d.Scheduled, ScheduledChunk{At: at, Samples: samples})
	return nil
}

// ScheduledChunks returns a copy of every scheduled chunk in call order.
// Use this instead of reading Scheduled when another goroutine is playing.
func (d *OutputDevice) ScheduledChunks() []ScheduledChunk {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ScheduledChunk, len(d.Scheduled))
	copy(out, d.Scheduled)
	return out
}

func (d *OutputDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.StartSuspended && !d.resumed
}

func (d *OutputDevice) Resume(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountResume++
	if d.ResumeError != nil {
		return d.ResumeError
	}
	d.resumed = true
	return nil
}

func (d *OutputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountClose++
	return nil
}

// ─── Host ─────────────────────────────────────────────────────────────────────

// Host is a mock implementation of [audio.Host]. Set Input/Output before use;
// leave an error field set to simulate acquisition failure.
type Host struct {
	mu sync.Mutex

	// Input is returned by OpenInput. A nil Input with a nil InputError
	// yields a zero-value mock device.
	Input      *InputDevice
	InputError error

	// Output is returned by OpenOutput.
	Output      *OutputDevice
	OutputError error

	// LastInputConfig records the config passed to the most recent OpenInput.
	LastInputConfig audio.InputConfig

	CallCountOpenInput  int
	CallCountOpenOutput int
}

var _ audio.Host = (*Host)(nil)

func (h *Host) OpenInput(_ context.Context, cfg audio.InputConfig) (audio.InputDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CallCountOpenInput++
	h.LastInputConfig = cfg
	if h.InputError != nil {
		return nil, h.InputError
	}
	if h.Input == nil {
		h.Input = &InputDevice{}
	}
	return h.Input, nil
}

func (h *Host) OpenOutput(_ context.Context, _ audio.OutputConfig) (audio.OutputDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CallCountOpenOutput++
	if h.OutputError != nil {
		return nil, h.OutputError
	}
	if h.Output == nil {
		h.Output = &OutputDevice{}
	}
	return h.Output, nil
}
