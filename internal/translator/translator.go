// Package translator coordinates the full live interpretation pipeline: the
// microphone capture engine, the Gemini Live session, the playback scheduler,
// and the transcript log.
//
// A Coordinator owns one session at a time and moves through four states:
// disconnected, connecting, connected, and error. Disconnect is legal from
// every state and always leaves the coordinator fully torn down with every
// transcript turn finalized.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juanan28s/flextranslator/internal/observe"
	"github.com/juanan28s/flextranslator/internal/prompt"
	"github.com/juanan28s/flextranslator/internal/transcript"
	"github.com/juanan28s/flextranslator/internal/transcript/store"
	"github.com/juanan28s/flextranslator/pkg/audio"
	"github.com/juanan28s/flextranslator/pkg/audio/capture"
	"github.com/juanan28s/flextranslator/pkg/audio/playback"
	"github.com/juanan28s/flextranslator/pkg/provider/live"
	"github.com/juanan28s/flextranslator/pkg/provider/oneshot"
)

// State is the connection lifecycle state of a Coordinator.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// ErrMissingAPIKey is set as the coordinator error when no live provider is
// configured, which happens when the API key is absent.
var ErrMissingAPIKey = errors.New("translator: API key is missing")

// ErrSessionActive is returned by Connect while a session is already being
// established or running.
var ErrSessionActive = errors.New("translator: session already active")

// ErrConnectAborted is returned by Connect when Disconnect is called while the
// session handshake is still in flight. The disconnect wins.
var ErrConnectAborted = errors.New("translator: connect aborted")

const (
	// defaultReleaseDelay is the pause between teardown and reconnect on a
	// context change, giving the audio hardware time to release.
	defaultReleaseDelay = 300 * time.Millisecond

	// readyTimeout bounds the wait for the server's setup acknowledgement.
	readyTimeout = 15 * time.Second

	// errorPlaceholder replaces the translation of a failed one-shot turn.
	errorPlaceholder = "Error processing translation."
)

// Config carries the dependencies of a Coordinator.
type Config struct {
	// Live establishes streaming sessions. Nil means no credentials are
	// available; Connect will fail with ErrMissingAPIKey.
	Live live.Provider

	// Generator serves one-shot text and document translation. Optional.
	Generator oneshot.Generator

	// Host provides audio input and output devices.
	Host audio.Host

	// Store persists finished sessions. Optional.
	Store *store.Store

	// Metrics records pipeline telemetry. Nil uses the default instance.
	Metrics *observe.Metrics

	// OnInputStream, when set, receives the open microphone device after each
	// successful connect. Level meters and visualizers hook in here.
	OnInputStream func(audio.InputDevice)

	// ReleaseDelay overrides the reconnect pause on context changes.
	ReleaseDelay time.Duration

	// FramesPerBuffer overrides the capture block size.
	FramesPerBuffer int
}

// Coordinator drives one live translation session and the shared transcript
// log. Safe for concurrent use.
type Coordinator struct {
	cfg Config

	mu        sync.Mutex
	state     State
	lastErr   error
	session   live.SessionHandle
	capture   *capture.Engine
	playback  *playback.Scheduler
	langA     live.Language
	langB     live.Language
	contextID string
	startedAt time.Time
	runDone   chan struct{}

	// gen increments on every Connect and Disconnect. An in-flight Connect
	// compares its own generation against it before committing, so a
	// Disconnect issued mid-handshake is never overridden.
	gen uint64

	// persistFrom is the log length at the last connect. Earlier turns were
	// already persisted by a previous disconnect.
	persistFrom int

	liveOutput bool

	log *transcript.Log
}

// New creates a disconnected Coordinator with live speech output enabled.
func New(cfg Config) *Coordinator {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.ReleaseDelay <= 0 {
		cfg.ReleaseDelay = defaultReleaseDelay
	}
	return &Coordinator{
		cfg:        cfg,
		state:      StateDisconnected,
		liveOutput: true,
		log:        transcript.NewLog(),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that moved the coordinator into the error state, or
// nil.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Languages returns the session language pair. Zero values before the first
// Connect.
func (c *Coordinator) Languages() (live.Language, live.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.langA, c.langB
}

// ContextID returns the active interpretation context.
func (c *Coordinator) ContextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextID
}

// Turns returns a snapshot of the transcript log.
func (c *Coordinator) Turns() []transcript.Turn {
	return c.log.Snapshot()
}

// Connect establishes a live session between langA and langB using the given
// interpretation context. It blocks until the session is ready to accept
// audio, then starts capture and the inbound message loop.
func (c *Coordinator) Connect(ctx context.Context, langA, langB live.Language, contextID string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrSessionActive
	}
	if c.cfg.Live == nil {
		c.state = StateError
		c.lastErr = ErrMissingAPIKey
		c.mu.Unlock()
		return ErrMissingAPIKey
	}
	c.state = StateConnecting
	c.lastErr = nil
	c.langA, c.langB = langA, langB
	c.contextID = contextID
	c.startedAt = time.Now()
	c.persistFrom = c.log.Len()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	start := time.Now()
	instructions := prompt.SystemInstruction(langA, langB, contextID)

	session, err := c.cfg.Live.Connect(ctx, live.SessionConfig{
		LangA:        langA,
		LangB:        langB,
		Instructions: instructions,
	})
	if err != nil {
		c.cfg.Metrics.RecordSessionError(ctx, "connect")
		c.failConnect(gen, fmt.Errorf("translator: connect: %w", err))
		return err
	}

	// Wait for the server's setup acknowledgement before opening hardware.
	select {
	case <-session.Ready():
	case <-ctx.Done():
		session.Close()
		c.failConnect(gen, ctx.Err())
		return ctx.Err()
	case <-time.After(readyTimeout):
		session.Close()
		err := fmt.Errorf("translator: session not ready after %s", readyTimeout)
		c.cfg.Metrics.RecordSessionError(ctx, "connect")
		c.failConnect(gen, err)
		return err
	}

	// A Disconnect during the handshake wins: drop the session without
	// touching the audio hardware.
	c.mu.Lock()
	aborted := c.gen != gen
	c.mu.Unlock()
	if aborted {
		session.Close()
		return ErrConnectAborted
	}

	player, err := c.openPlayback(ctx)
	if err != nil {
		session.Close()
		c.cfg.Metrics.RecordSessionError(ctx, "playback")
		c.failConnect(gen, err)
		return err
	}

	cap, err := c.startCapture(ctx, session)
	if err != nil {
		player.Stop()
		session.Close()
		c.cfg.Metrics.RecordSessionError(ctx, "capture")
		c.failConnect(gen, fmt.Errorf("translator: microphone access failed: %w", err))
		return err
	}

	runDone := make(chan struct{})

	c.mu.Lock()
	if c.gen != gen {
		// Disconnect raced the hardware setup; release everything just opened.
		c.mu.Unlock()
		cap.Stop()
		player.Stop()
		session.Close()
		return ErrConnectAborted
	}
	c.session = session
	c.capture = cap
	c.playback = player
	c.runDone = runDone
	c.state = StateConnected
	c.mu.Unlock()

	c.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	c.cfg.Metrics.ConnectDuration.Record(ctx, time.Since(start).Seconds())
	slog.Info("live session established",
		"lang_a", langA.Code, "lang_b", langB.Code, "context", contextID)

	go c.run(session, runDone)
	return nil
}

// failConnect records err and moves to the error state, unless a concurrent
// Disconnect (or a newer Connect) already superseded generation gen.
func (c *Coordinator) failConnect(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen && c.state == StateConnecting {
		c.state = StateError
		c.lastErr = err
	}
}

// openPlayback opens the output device and wires the gap reset hook to
// metrics.
func (c *Coordinator) openPlayback(ctx context.Context) (*playback.Scheduler, error) {
	dev, err := c.cfg.Host.OpenOutput(ctx, audio.OutputConfig{SampleRate: audio.PlaybackRate})
	if err != nil {
		return nil, fmt.Errorf("translator: open output: %w", err)
	}
	s := playback.New(dev,
		playback.WithGapResetHook(func() {
			c.cfg.Metrics.GapResets.Add(context.Background(), 1)
		}),
		playback.WithDropHook(func() {
			c.cfg.Metrics.ChunksDropped.Add(context.Background(), 1)
		}),
	)
	c.mu.Lock()
	enabled := c.liveOutput
	c.mu.Unlock()
	s.SetEnabled(enabled)
	return s, nil
}

// startCapture opens the input device and streams encoded frames into the
// session.
func (c *Coordinator) startCapture(ctx context.Context, session live.SessionHandle) (*capture.Engine, error) {
	var opts []capture.Option
	if c.cfg.FramesPerBuffer > 0 {
		opts = append(opts, capture.WithFramesPerBuffer(c.cfg.FramesPerBuffer))
	}
	eng := capture.New(c.cfg.Host,
		func(encodedFrame string) {
			if err := session.Send(encodedFrame); err != nil {
				slog.Warn("dropping capture frame", "error", err)
				return
			}
			c.cfg.Metrics.FramesSent.Add(context.Background(), 1)
		},
		c.cfg.OnInputStream,
		opts...,
	)
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// run consumes the session's message stream in arrival order until it closes.
func (c *Coordinator) run(session live.SessionHandle, done chan struct{}) {
	defer close(done)

	ctx := context.Background()
	for msg := range session.Messages() {
		// A message may carry any combination of payloads; apply each one in
		// the order the server produced them.
		if msg.Audio != "" {
			c.mu.Lock()
			player := c.playback
			c.mu.Unlock()
			if player != nil {
				if err := player.PlayChunk(ctx, msg.Audio); err != nil {
					slog.Warn("playback failed", "error", err)
				} else {
					c.cfg.Metrics.ChunksPlayed.Add(ctx, 1)
				}
			}
		}

		if msg.SourceText != "" {
			c.log.AppendSource(msg.SourceText)
		}

		if msg.TranslationText != "" {
			c.log.AppendTranslation(msg.TranslationText)
		}

		if msg.TurnComplete {
			if turn, ok := c.log.Current(); ok {
				c.cfg.Metrics.RecordTurnCompleted(ctx, turn.SourceLang)
			}
			c.log.FinalizeCurrent()
		}
	}

	// Stream ended. A server-side failure moves to the error state; after a
	// local Close the coordinator no longer owns this session and teardown is
	// a no-op.
	if err := session.Err(); err != nil {
		c.cfg.Metrics.RecordSessionError(ctx, "stream")
		c.teardown(session, err)
	} else {
		c.teardown(session, nil)
	}
}

// Disconnect tears the session down. Legal from every state and idempotent:
// it stops capture and playback, closes the session, finalizes all transcript
// turns, and persists the session when a store is configured.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	runDone := c.runDone
	c.runDone = nil
	c.gen++ // invalidates any connect still in its handshake
	c.mu.Unlock()

	c.teardown(nil, nil)

	// Closing the session ends the message stream, so the loop exits shortly.
	// Waiting here guarantees no stale message is applied after Disconnect
	// returns.
	if runDone != nil {
		<-runDone
	}

	c.mu.Lock()
	// Explicit disconnect clears a previous error state.
	c.state = StateDisconnected
	c.lastErr = nil
	c.mu.Unlock()
}

// teardown releases all session resources. When cause is non-nil the
// coordinator lands in the error state instead of disconnected. A non-nil
// owner restricts teardown to the session it was started for, so a finished
// message loop cannot tear down a session established after its own.
func (c *Coordinator) teardown(owner live.SessionHandle, cause error) {
	c.mu.Lock()
	if owner != nil && c.session != owner {
		c.mu.Unlock()
		return
	}
	session := c.session
	cap := c.capture
	player := c.playback
	wasConnected := c.state == StateConnected
	langA, langB := c.langA, c.langB
	contextID := c.contextID
	startedAt := c.startedAt
	persistFrom := c.persistFrom
	c.session = nil
	c.capture = nil
	c.playback = nil
	if cause != nil {
		c.state = StateError
		c.lastErr = cause
	} else {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if cap != nil {
		cap.Stop()
	}
	if player != nil {
		player.Stop()
	}
	if session != nil {
		if err := session.Close(); err != nil {
			slog.Warn("closing session", "error", err)
		}
	}

	c.log.FinalizeAll()

	if wasConnected {
		c.cfg.Metrics.ActiveSessions.Add(context.Background(), -1)
		c.persist(langA, langB, contextID, startedAt, persistFrom)
	}
}

// persist writes the turns of the finished session to the store, when one is
// configured.
func (c *Coordinator) persist(langA, langB live.Language, contextID string, startedAt time.Time, from int) {
	if c.cfg.Store == nil {
		return
	}
	turns := c.log.Snapshot()
	if from < len(turns) {
		turns = turns[from:]
	} else {
		turns = nil
	}
	if len(turns) == 0 {
		return
	}
	_, err := c.cfg.Store.SaveSession(context.Background(), store.SessionRecord{
		LangA:     langA.Code,
		LangB:     langB.Code,
		ContextID: contextID,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}, turns)
	if err != nil {
		slog.Error("persisting session transcript", "error", err)
	}
}

// TogglePause suspends or resumes microphone capture without touching the
// session, so the model keeps its conversational state.
func (c *Coordinator) TogglePause(ctx context.Context) error {
	c.mu.Lock()
	cap := c.capture
	c.mu.Unlock()
	if cap == nil {
		return nil
	}
	if cap.Paused() {
		return cap.Resume(ctx)
	}
	return cap.Pause(ctx)
}

// Paused reports whether microphone capture is suspended.
func (c *Coordinator) Paused() bool {
	c.mu.Lock()
	cap := c.capture
	c.mu.Unlock()
	return cap != nil && cap.Paused()
}

// ToggleLiveOutput flips spoken interpretation playback. Transcripts keep
// streaming either way.
func (c *Coordinator) ToggleLiveOutput() bool {
	c.mu.Lock()
	c.liveOutput = !c.liveOutput
	enabled := c.liveOutput
	player := c.playback
	c.mu.Unlock()
	if player != nil {
		player.SetEnabled(enabled)
	}
	return enabled
}

// LiveOutputEnabled reports whether spoken interpretation is on.
func (c *Coordinator) LiveOutputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveOutput
}

// ChangeContext switches the interpretation persona. A running session is
// torn down and re-established with the new system instruction after a short
// release delay; otherwise only the stored context changes.
func (c *Coordinator) ChangeContext(ctx context.Context, contextID string) error {
	c.mu.Lock()
	active := c.state == StateConnected || c.state == StateConnecting
	langA, langB := c.langA, c.langB
	if !active {
		// Nothing to re-establish; the new context applies on the next
		// Connect or one-shot request.
		c.contextID = contextID
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.Disconnect()

	select {
	case <-time.After(c.cfg.ReleaseDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.Connect(ctx, langA, langB, contextID)
}

// TranslateText translates typed text or an attached document through the
// one-shot model, bypassing the live session. The turn is appended to the
// transcript log immediately and filled in (or marked failed) when the
// response arrives.
func (c *Coordinator) TranslateText(ctx context.Context, content string, att *oneshot.Attachment) (string, error) {
	if content == "" && att == nil {
		return "", errors.New("translator: nothing to translate")
	}
	if c.cfg.Generator == nil {
		return "", errors.New("translator: one-shot translation is not configured")
	}

	c.mu.Lock()
	langA, langB := c.langA, c.langB
	contextID := c.contextID
	c.mu.Unlock()

	isPDF := att != nil && att.MIMEType == "application/pdf"
	sourceText := content
	if isPDF {
		sourceText = "[PDF Document] " + content
	}

	turn := &transcript.Turn{
		ID:         uuid.NewString(),
		SourceText: sourceText,
		SourceLang: transcript.UnknownLanguage,
		Updating:   true,
		Timestamp:  time.Now(),
	}
	c.log.Add(turn)

	request := content
	if isPDF && request == "" {
		request = "Translate this document."
	}

	instruction := prompt.SystemInstruction(langA, langB, contextID)

	start := time.Now()
	raw, err := c.cfg.Generator.Generate(ctx, request, att, instruction)
	c.cfg.Metrics.OneShotDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Error("one-shot translation failed", "error", err)
		c.log.Update(turn.ID, func(t *transcript.Turn) {
			t.Translation = errorPlaceholder
			t.Final = true
			t.Updating = false
		})
		return turn.ID, err
	}

	parsed := transcript.ParseFinal(raw)
	c.log.Update(turn.ID, func(t *transcript.Turn) {
		t.Translation = parsed.Translation
		t.Transliteration = parsed.Transliteration
		if parsed.SourceLang != "" {
			t.SourceLang = parsed.SourceLang
		}
		t.Final = true
		t.Updating = false
	})
	return turn.ID, nil
}

// UpdateTurn replaces the source text of a logged turn and re-translates it
// through the one-shot model. The detected script updates the turn's source
// language only when it matches one of the session languages.
func (c *Coordinator) UpdateTurn(ctx context.Context, id, newSourceText string) error {
	if newSourceText == "" {
		return errors.New("translator: empty source text")
	}
	if c.cfg.Generator == nil {
		return errors.New("translator: one-shot translation is not configured")
	}

	c.mu.Lock()
	langA, langB := c.langA, c.langB
	contextID := c.contextID
	c.mu.Unlock()

	detected := transcript.DetectLanguage(newSourceText)
	found := c.log.Update(id, func(t *transcript.Turn) {
		t.SourceText = newSourceText
		if detected == langA.Code || detected == langB.Code {
			t.SourceLang = detected
		}
		t.Updating = true
	})
	if !found {
		return fmt.Errorf("translator: no turn with id %q", id)
	}

	instruction := prompt.SystemInstruction(langA, langB, contextID)

	raw, err := c.cfg.Generator.Generate(ctx, newSourceText, nil, instruction)
	if err != nil {
		slog.Error("re-translation failed", "error", err)
		c.log.Update(id, func(t *transcript.Turn) { t.Updating = false })
		return err
	}

	parsed := transcript.ParseFinal(raw)
	c.log.Update(id, func(t *transcript.Turn) {
		t.Translation = parsed.Translation
		t.Transliteration = parsed.Transliteration
		t.Updating = false
	})
	return nil
}
