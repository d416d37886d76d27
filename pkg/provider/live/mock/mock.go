// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and feed controlled live sessions.
// Use Session to drive the inbound message stream and inspect which methods
// were invoked by the coordinator.
//
// Example:
//
//	sess := mock.NewSession()
//	sess.MarkReady()
//	sess.Emit(live.ServerMessage{SourceText: "hola"})
//	p := &mock.Provider{Session: sess}
//	handle, _ := p.Connect(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/juanan28s/flextranslator/pkg/provider/live"
)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by Connect. If nil, Connect returns
	// a new ready Session.
	Session live.SessionHandle

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	sess := NewSession()
	sess.MarkReady()
	return sess, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = nil
}

// Ensure Provider implements live.Provider at compile time.
var _ live.Provider = (*Provider)(nil)

// SendCall records a single invocation of Session.Send.
type SendCall struct {
	// EncodedFrame is the transport-encoded audio frame passed to Send.
	EncodedFrame string
}

// Session is a mock implementation of live.SessionHandle.
// Create sessions with NewSession, then drive them with MarkReady and Emit.
type Session struct {
	mu sync.Mutex

	messages chan live.ServerMessage
	ready    chan struct{}

	readyOnce sync.Once
	emitOnce  sync.Once

	// SendErr, if non-nil, is returned by every Send call.
	SendErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// ErrValue is returned by Err.
	ErrValue error

	// SendCalls records every call to Send in order.
	SendCalls []SendCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// NewSession creates a Session with a buffered message channel. The session is
// not ready until MarkReady is called.
func NewSession() *Session {
	return &Session{
		messages: make(chan live.ServerMessage, 64),
		ready:    make(chan struct{}),
	}
}

// MarkReady closes the Ready channel, simulating the server's setup ack.
// Safe to call more than once.
func (s *Session) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Emit queues one inbound message on the Messages channel.
func (s *Session) Emit(msg live.ServerMessage) {
	s.messages <- msg
}

// EndStream closes the Messages channel, simulating the server ending the
// session. Safe to call more than once.
func (s *Session) EndStream() {
	s.emitOnce.Do(func() { close(s.messages) })
}

// SetErr sets the value returned by Err. Thread-safe.
func (s *Session) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrValue = err
}

// Send records the call and returns SendErr.
func (s *Session) Send(encodedFrame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = append(s.SendCalls, SendCall{EncodedFrame: encodedFrame})
	return s.SendErr
}

// Ready returns the ready channel, closed by MarkReady.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Messages returns the inbound message channel driven by Emit.
func (s *Session) Messages() <-chan live.ServerMessage { return s.messages }

// Err returns ErrValue. Thread-safe.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrValue
}

// Close records the call, ends the message stream, and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	err := s.CloseErr
	s.mu.Unlock()
	s.EndStream()
	return err
}

// ResetCalls clears all recorded calls. Thread-safe.
func (s *Session) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = nil
	s.CloseCallCount = 0
}

// Ensure Session implements live.SessionHandle at compile time.
var _ live.SessionHandle = (*Session)(nil)
