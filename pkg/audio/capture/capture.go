// Package capture implements the microphone side of the translation pipeline.
//
// An [Engine] owns one open input device. The device's runtime invokes the
// capture callback with blocks of floating-point samples at whatever rate the
// hardware natively supports; the engine downsamples each block to the model's
// 16 kHz input rate, converts to 16-bit PCM, base64-encodes the result, and
// hands the encoded frame to the data listener registered at construction.
//
// The engine never buffers: frames that arrive while the engine is paused are
// dropped, and a slow data listener stalls the device callback directly.
package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/juanan28s/flextranslator/pkg/audio"
)

// DataFunc receives one transport-encoded PCM frame per capture block.
// It is invoked from the device's audio thread and must return quickly.
type DataFunc func(encodedFrame string)

// StreamFunc receives the opened input device once capture starts. It exists
// so that callers outside the pipeline (level meters, visualizers) can observe
// the raw signal without owning the hardware.
type StreamFunc func(dev audio.InputDevice)

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithFramesPerBuffer sets the preferred capture block size in samples.
func WithFramesPerBuffer(n int) Option {
	return func(e *Engine) { e.framesPerBuffer = n }
}

// Engine captures microphone audio and emits 16 kHz PCM frames in transport
// encoding. Exactly one device is open between a successful Start and the
// matching Stop. All exported methods are safe for concurrent use.
type Engine struct {
	host     audio.Host
	onData   DataFunc
	onStream StreamFunc

	framesPerBuffer int

	mu     sync.Mutex
	dev    audio.InputDevice
	rate   int
	paused bool
}

// New creates an Engine. onData is required; onStream may be nil.
func New(host audio.Host, onData DataFunc, onStream StreamFunc, opts ...Option) *Engine {
	e := &Engine{
		host:     host,
		onData:   onData,
		onStream: onStream,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start acquires the microphone and begins the capture callback loop.
// Any failure triggers a complete Stop before the error is returned, so a
// failed Start never leaks a partially initialised device. The returned error
// wraps [*audio.HardwareError] for acquisition failures.
func (e *Engine) Start(ctx context.Context) error {
	dev, err := e.host.OpenInput(ctx, audio.InputConfig{
		FramesPerBuffer:  e.framesPerBuffer,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	})
	if err != nil {
		e.Stop()
		return &audio.HardwareError{Op: "open input", Err: err}
	}

	e.mu.Lock()
	e.dev = dev
	e.rate = dev.SampleRate()
	e.paused = false
	e.mu.Unlock()

	if e.onStream != nil {
		e.onStream(dev)
	}

	if err := dev.Start(e.handleBlock); err != nil {
		e.Stop()
		return &audio.HardwareError{Op: "start capture", Err: err}
	}

	slog.Info("capture started", "native_rate", e.rate, "target_rate", audio.CaptureRate)
	return nil
}

// handleBlock is the per-frame callback invoked by the device runtime.
func (e *Engine) handleBlock(samples []float32) {
	e.mu.Lock()
	paused := e.paused
	rate := e.rate
	e.mu.Unlock()

	if paused || len(samples) == 0 {
		return
	}

	resampled, err := audio.Resample(samples, rate, audio.CaptureRate)
	if err != nil {
		slog.Warn("capture: resample failed, dropping block", "err", err)
		return
	}

	e.onData(audio.EncodeTransport(audio.FloatToPCM16(resampled)))
}

// Pause suspends the processing graph without releasing the microphone.
// Frames are dropped while paused. Idempotent.
func (e *Engine) Pause(_ context.Context) error {
	e.mu.Lock()
	dev := e.dev
	if dev == nil || e.paused {
		e.mu.Unlock()
		return nil
	}
	e.paused = true
	e.mu.Unlock()

	if err := dev.Suspend(); err != nil {
		return &audio.HardwareError{Op: "suspend", Err: err}
	}
	return nil
}

// Resume restarts a paused engine. Idempotent.
func (e *Engine) Resume(_ context.Context) error {
	e.mu.Lock()
	dev := e.dev
	if dev == nil || !e.paused {
		e.mu.Unlock()
		return nil
	}
	e.paused = false
	e.mu.Unlock()

	if err := dev.Resume(); err != nil {
		return &audio.HardwareError{Op: "resume", Err: err}
	}
	return nil
}

// Paused reports whether the engine is in the paused substate.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Stop releases the microphone and tears down the device. It is idempotent
// and safe to call at any time, including after a failed Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	dev := e.dev
	e.dev = nil
	e.paused = false
	e.mu.Unlock()

	if dev == nil {
		return
	}
	if err := dev.Close(); err != nil {
		slog.Warn("capture: device close error", "err", err)
	}
}
