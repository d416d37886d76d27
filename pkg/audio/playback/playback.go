// Package playback renders the model's synthesized speech as gapless audio.
//
// Chunks arrive over the network at irregular intervals, usually faster than
// real time at the start of a model turn and then in bursts. Playing each
// chunk the moment it arrives would stutter; queueing them naively would
// accumulate unbounded latency after a stall. The [Scheduler] instead keeps a
// single cursor on the output device's virtual timeline and splices every
// chunk exactly where the previous one ends, resynchronising with a small
// safety margin whenever the queue drains.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/juanan28s/flextranslator/pkg/audio"
)

// resyncMargin is added to the device clock when the playback queue has
// drained. Scheduling at exactly "now" would clip the first samples of the
// chunk while the schedule call itself is still executing.
const resyncMargin = 50 * time.Millisecond

// Scheduler owns one output device and a playback cursor. Playback is
// disabled until [Scheduler.SetEnabled] is called with true. All exported
// methods are safe for concurrent use.
type Scheduler struct {
	mu            sync.Mutex
	dev           audio.OutputDevice
	enabled       bool
	nextStartTime time.Duration

	// onGapReset, when non-nil, is invoked each time the cursor falls behind
	// the device clock and is re-synchronised. Used for metrics.
	onGapReset func()

	// onDrop, when non-nil, is invoked for each undecodable chunk.
	onDrop func()
}

// Option is a functional option for configuring a [Scheduler].
type Option func(*Scheduler)

// WithGapResetHook registers fn to be called whenever the scheduler detects a
// drained queue and resets its cursor.
func WithGapResetHook(fn func()) Option {
	return func(s *Scheduler) { s.onGapReset = fn }
}

// WithDropHook registers fn to be called whenever a malformed chunk is
// dropped.
func WithDropHook(fn func()) Option {
	return func(s *Scheduler) { s.onDrop = fn }
}

// New creates a Scheduler around an open output device. The device is owned
// by the scheduler from this point on and is closed by [Scheduler.Stop].
func New(dev audio.OutputDevice, opts ...Option) *Scheduler {
	s := &Scheduler{dev: dev}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlayChunk decodes one transport-encoded PCM16 chunk and schedules it on the
// device timeline directly after the previously scheduled chunk. If the
// timeline has drained (a network stall left the cursor in the past), the
// cursor resets to now plus a small margin instead of scheduling into the
// past or stacking up latency.
//
// Decode failures are logged and the chunk is dropped; a single malformed
// chunk must not take down a live session. A disabled or stopped scheduler
// ignores chunks silently.
func (s *Scheduler) PlayChunk(ctx context.Context, encodedFrame string) error {
	s.mu.Lock()
	dev := s.dev
	enabled := s.enabled
	s.mu.Unlock()

	if dev == nil || !enabled {
		return nil
	}

	if dev.Suspended() {
		if err := dev.Resume(ctx); err != nil {
			return &audio.HardwareError{Op: "resume output", Err: err}
		}
	}

	pcm, err := audio.DecodeTransport(encodedFrame)
	if err != nil {
		slog.Warn("playback: dropping undecodable chunk", "err", err)
		if s.onDrop != nil {
			s.onDrop()
		}
		return nil
	}
	samples := audio.PCM16ToFloat(pcm)
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}

	now := s.dev.Now()
	if s.nextStartTime < now {
		s.nextStartTime = now + resyncMargin
		if s.onGapReset != nil {
			s.onGapReset()
		}
	}

	if err := s.dev.Schedule(s.nextStartTime, samples); err != nil {
		return &audio.HardwareError{Op: "schedule", Err: err}
	}
	s.nextStartTime += audio.Duration(len(samples), audio.PlaybackRate)
	return nil
}

// SetEnabled toggles audible output. Enabling also wakes a suspended device
// so the next chunk plays without an extra resume round-trip.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	dev := s.dev
	s.enabled = enabled
	s.mu.Unlock()

	if enabled && dev != nil && dev.Suspended() {
		if err := dev.Resume(context.Background()); err != nil {
			slog.Warn("playback: resume on enable failed", "err", err)
		}
	}
}

// Enabled reports whether audible output is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Stop closes the output device. Idempotent; chunks submitted afterwards are
// ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	dev := s.dev
	s.dev = nil
	s.mu.Unlock()

	if dev == nil {
		return
	}
	if err := dev.Close(); err != nil {
		slog.Warn("playback: device close error", "err", err)
	}
}
