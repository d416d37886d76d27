// Package live defines the contract between the session coordinator and a
// streaming speech-translation backend.
//
// A live backend accepts a continuous stream of microphone audio and returns
// three interleaved kinds of data: synthesized translated speech, a rolling
// transcript of the user's speech, and a rolling transcript of the
// translation. The central abstraction is [SessionHandle]: one bidirectional
// connection whose inbound side is a single FIFO message channel.
//
// Inbound ordering matters. Translated text arrives in deltas that may split
// a formatting tag across chunk boundaries, so consumers reconstruct text by
// appending deltas in arrival order. Implementations must therefore deliver
// all message kinds on one channel, in the order the server sent them.
//
// All implementations must be safe for concurrent use.
package live

import "context"

// Language is one of the two active translation languages.
type Language struct {
	// Code is the ISO 639-1 language code, e.g. "es".
	Code string

	// Name is the human-readable English name, e.g. "Spanish".
	Name string
}

// SessionConfig is the immutable configuration for one connection. Changing
// any field requires tearing down the session and opening a new one — the
// system instruction is sent once at stream-open time and cannot be mutated
// on a live stream.
type SessionConfig struct {
	LangA Language
	LangB Language

	// Instructions is the system-level prompt sent at stream open.
	Instructions string
}

// ServerMessage is one inbound message. Zero or more fields may be set.
type ServerMessage struct {
	// Audio is a transport-encoded chunk of synthesized speech at 24 kHz.
	// Empty when the message carries no audio.
	Audio string

	// SourceText is a partial transcript delta of the user's speech.
	SourceText string

	// TranslationText is a partial transcript delta of the translated output,
	// carrying the wire-format language tag and transliteration delimiter.
	TranslationText string

	// TurnComplete marks the end of the current conversational turn.
	TurnComplete bool
}

// SessionHandle is one open streaming session.
//
// Callers must drain Messages promptly; backpressure stalls the backend's
// receive loop. Callers must call Close when the session is no longer needed.
type SessionHandle interface {
	// Send delivers one transport-encoded 16 kHz PCM frame to the backend.
	// Returns an error if the session is closed or the write fails.
	Send(encodedFrame string) error

	// Ready returns a channel that is closed once the backend has
	// acknowledged the session configuration and will accept audio.
	Ready() <-chan struct{}

	// Messages returns the inbound message channel. Messages are delivered
	// in arrival order (FIFO). The channel is closed when the session ends;
	// check Err afterwards to distinguish a clean close from a failure.
	Messages() <-chan ServerMessage

	// Err returns the error that terminated the session, or nil if it ended
	// cleanly. Valid after Messages is closed.
	Err() error

	// Close terminates the session and releases all resources. Idempotent.
	Close() error
}

// Provider opens live sessions against a streaming backend.
type Provider interface {
	// Connect establishes a new session. The caller owns the returned handle
	// and is responsible for calling Close.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)
}
