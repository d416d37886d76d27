package audio

import (
	"context"
	"fmt"
	"time"
)

// HardwareError wraps a failure to acquire or operate an audio device.
// Callers can use [errors.As] to distinguish hardware faults (microphone
// denied, device unplugged) from network or protocol errors.
type HardwareError struct {
	// Op names the failed operation, e.g. "open input".
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("audio hardware: %s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// InputConfig describes the capture stream requested from a [Host].
// The DSP flags are hints: adapters apply what the platform supports and
// silently ignore the rest.
type InputConfig struct {
	// FramesPerBuffer is the preferred callback block size in samples.
	// Zero lets the adapter choose.
	FramesPerBuffer int

	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// OutputConfig describes the playback stream requested from a [Host].
type OutputConfig struct {
	// SampleRate of the scheduled audio. Zero defaults to [PlaybackRate].
	SampleRate int
}

// InputDevice is an open mono capture stream. The device invokes the callback
// registered with Start from its own runtime thread with blocks of
// floating-point samples at the device's native rate. Callbacks must return
// quickly and must not block on I/O.
//
// Implementations must be safe for concurrent use.
type InputDevice interface {
	// Start begins the capture callback loop. It may only be called once.
	Start(cb func(samples []float32)) error

	// SampleRate returns the native capture rate of the open stream.
	SampleRate() int

	// Suspend pauses the processing graph without releasing the hardware.
	// Idempotent: suspending a suspended device is a no-op.
	Suspend() error

	// Resume restarts a suspended graph. Idempotent.
	Resume() error

	// Close releases the hardware and tears down the stream. Idempotent and
	// safe to call after a failed Start.
	Close() error
}

// OutputDevice is an open playback stream with a virtual timeline. Samples
// are not played immediately; they are scheduled at absolute positions on the
// device clock, which lets the caller splice consecutive chunks together with
// no gap or overlap.
//
// Implementations must be safe for concurrent use.
type OutputDevice interface {
	// Now returns the current position of the device clock.
	Now() time.Duration

	// Schedule queues samples to begin playing at the given clock position.
	// Scheduling in the past plays the samples as soon as possible.
	Schedule(at time.Duration, samples []float32) error

	// Suspended reports whether the device is in a suspended power state.
	Suspended() bool

	// Resume wakes a suspended device, blocking until it is running or ctx
	// is cancelled. Resuming a running device is a no-op.
	Resume(ctx context.Context) error

	// Close stops playback and releases the device. Idempotent.
	Close() error
}

// Host opens audio devices. Implementations wrap a platform audio API
// (PortAudio in production, in-memory fakes in tests).
//
// Implementations must be safe for concurrent use.
type Host interface {
	// OpenInput acquires the default capture device. On failure no resources
	// remain held. The returned error wraps *HardwareError.
	OpenInput(ctx context.Context, cfg InputConfig) (InputDevice, error)

	// OpenOutput acquires the default playback device.
	OpenOutput(ctx context.Context, cfg OutputConfig) (OutputDevice, error)
}
