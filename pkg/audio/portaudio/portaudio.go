// Package portaudio adapts PortAudio streams to the [audio.Host],
// [audio.InputDevice], and [audio.OutputDevice] interfaces.
//
// Input streams run at the capture device's native rate; downsampling to the
// model rate is the capture engine's job, not the adapter's. Output streams
// implement the virtual timeline contract with a sample-counter clock: the
// PortAudio render callback advances the clock by the number of frames it
// emits and mixes in whichever scheduled buffers overlap the current window.
//
// PortAudio has no echo-cancellation, noise-suppression, or auto-gain
// processing, so those [audio.InputConfig] hints are accepted and ignored.
package portaudio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/juanan28s/flextranslator/pkg/audio"
)

const defaultFramesPerBuffer = 1024

// Host opens PortAudio devices. Create one with [NewHost] and release the
// library with [Host.Terminate] when done.
type Host struct {
	closeOnce sync.Once
}

var _ audio.Host = (*Host)(nil)

// NewHost initialises the PortAudio library.
func NewHost() (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &audio.HardwareError{Op: "initialize", Err: err}
	}
	return &Host{}, nil
}

// Terminate releases the PortAudio library. Call after all devices are closed.
func (h *Host) Terminate() error {
	var err error
	h.closeOnce.Do(func() {
		err = portaudio.Terminate()
	})
	return err
}

// OpenInput opens the default capture device at its native sample rate.
func (h *Host) OpenInput(_ context.Context, cfg audio.InputConfig) (audio.InputDevice, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, &audio.HardwareError{Op: "default input device", Err: err}
	}

	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = defaultFramesPerBuffer
	}

	return &inputDevice{
		rate:   int(info.DefaultSampleRate),
		frames: frames,
	}, nil
}

// OpenOutput opens the default playback device. The stream is created
// suspended; the first [audio.OutputDevice.Resume] starts rendering.
func (h *Host) OpenOutput(_ context.Context, cfg audio.OutputConfig) (audio.OutputDevice, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = audio.PlaybackRate
	}

	dev := &outputDevice{rate: rate}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(rate), defaultFramesPerBuffer, dev.render)
	if err != nil {
		return nil, &audio.HardwareError{Op: "open output", Err: err}
	}
	dev.stream = stream
	return dev, nil
}

// ─── input ────────────────────────────────────────────────────────────────────

type inputDevice struct {
	rate   int
	frames int

	mu        sync.Mutex
	stream    *portaudio.Stream
	cb        func([]float32)
	started   bool
	suspended bool
	closed    bool
}

func (d *inputDevice) Start(cb func(samples []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("portaudio: input device is closed")
	}
	if d.started {
		return fmt.Errorf("portaudio: capture already started")
	}

	d.cb = cb
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(d.rate), d.frames, d.capture)
	if err != nil {
		return fmt.Errorf("portaudio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("portaudio: start input stream: %w", err)
	}
	d.stream = stream
	d.started = true
	return nil
}

// capture is the PortAudio input callback. It copies the block before handing
// it off because PortAudio reuses the buffer between invocations.
func (d *inputDevice) capture(in []float32) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb == nil {
		return
	}
	block := make([]float32, len(in))
	copy(block, in)
	cb(block)
}

func (d *inputDevice) SampleRate() int { return d.rate }

func (d *inputDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil || d.suspended {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: suspend input: %w", err)
	}
	d.suspended = true
	return nil
}

func (d *inputDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil || !d.suspended {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: resume input: %w", err)
	}
	d.suspended = false
	return nil
}

func (d *inputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.cb = nil
	if d.stream == nil {
		return nil
	}
	stream := d.stream
	d.stream = nil
	if !d.suspended {
		_ = stream.Stop()
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close input: %w", err)
	}
	return nil
}

// ─── output ───────────────────────────────────────────────────────────────────

// pending is one scheduled buffer on the output timeline.
type pending struct {
	start   int64 // absolute sample position
	samples []float32
}

type outputDevice struct {
	rate   int
	stream *portaudio.Stream

	mu      sync.Mutex
	clock   int64 // samples rendered since stream start
	queue   []pending
	running bool
	closed  bool
}

// render is the PortAudio output callback. It mixes every queued buffer that
// overlaps the window [clock, clock+len(out)) into the output block and
// prunes buffers that have fully played.
func (d *outputDevice) render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	windowStart := d.clock
	windowEnd := windowStart + int64(len(out))

	kept := d.queue[:0]
	for _, p := range d.queue {
		end := p.start + int64(len(p.samples))
		if end <= windowStart {
			continue // fully played
		}
		if p.start < windowEnd {
			from := max(p.start, windowStart)
			for s := from; s < windowEnd && s < end; s++ {
				out[s-windowStart] += p.samples[s-p.start]
			}
		}
		if end > windowEnd {
			kept = append(kept, p)
		}
	}
	d.queue = kept
	d.clock = windowEnd
}

func (d *outputDevice) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return audio.Duration(int(d.clock), d.rate)
}

func (d *outputDevice) Schedule(at time.Duration, samples []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("portaudio: output device is closed")
	}

	start := int64(at.Seconds() * float64(d.rate))
	// Past schedules play as soon as possible rather than being dropped.
	if start < d.clock {
		start = d.clock
	}
	d.queue = append(d.queue, pending{start: start, samples: samples})
	sort.Slice(d.queue, func(i, j int) bool { return d.queue[i].start < d.queue[j].start })
	return nil
}

func (d *outputDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.running && !d.closed
}

func (d *outputDevice) Resume(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("portaudio: output device is closed")
	}
	if d.running {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output: %w", err)
	}
	d.running = true
	return nil
}

func (d *outputDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	running := d.running
	d.running = false
	stream := d.stream
	d.queue = nil
	d.mu.Unlock()

	if running {
		_ = stream.Stop()
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close output: %w", err)
	}
	return nil
}
