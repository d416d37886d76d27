// Package transcript maintains the ordered log of translation turns for a
// session.
//
// A turn pairs what the speaker said with what the interpreter produced.
// During a live session turns build up incrementally: source text and raw
// translation text arrive in fragments, and the raw translation is re-parsed
// after every fragment because the [SRC=code] tag and "====" delimiter can be
// split across chunk boundaries.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one entry in the translation log.
type Turn struct {
	// ID is the unique identifier of this turn.
	ID string

	// SourceText is the accumulated transcription of the speaker.
	SourceText string

	// Translation is the parsed translated text shown to the user.
	Translation string

	// Transliteration is the romanized segment, empty when absent.
	Transliteration string

	// RawTranslation is the unparsed accumulated model output, kept so the
	// parse can be redone as fragments arrive.
	RawTranslation string

	// SourceLang is the ISO code of the detected input language, or
	// UnknownLanguage.
	SourceLang string

	// Final marks a completed turn that will not change again.
	Final bool

	// Updating marks a turn with an in-flight re-translation request.
	Updating bool

	// Timestamp is when the turn was opened.
	Timestamp time.Time
}

// Log is the ordered collection of turns for one session. Exactly one turn
// can be open at a time; inbound transcription fragments attach to it. Safe
// for concurrent use.
type Log struct {
	mu      sync.Mutex
	turns   []*Turn
	current *Turn
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// OpenOrCurrent returns the open turn, creating one if none is open.
func (l *Log) OpenOrCurrent() *Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openOrCurrentLocked()
}

func (l *Log) openOrCurrentLocked() *Turn {
	if l.current == nil {
		t := &Turn{
			ID:         uuid.NewString(),
			SourceLang: UnknownLanguage,
			Timestamp:  time.Now(),
		}
		l.current = t
		l.turns = append(l.turns, t)
	}
	return l.current
}

// Current returns a copy of the open turn, or false when none is open.
func (l *Log) Current() (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Turn{}, false
	}
	return *l.current, true
}

// AppendSource appends a speech transcription fragment to the open turn,
// opening one if needed.
func (l *Log) AppendSource(text string) {
	if text == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.openOrCurrentLocked()
	t.SourceText += text
}

// AppendTranslation appends a translation fragment to the open turn and
// re-parses the full accumulated raw text. The source language sticks once a
// tag has been seen, even if later fragments carry none.
func (l *Log) AppendTranslation(text string) {
	if text == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.openOrCurrentLocked()
	t.RawTranslation += text

	p := ParseStreaming(t.RawTranslation)
	t.Translation = p.Translation
	t.Transliteration = p.Transliteration
	if p.SourceLang != "" {
		t.SourceLang = p.SourceLang
	}
}

// FinalizeCurrent marks the open turn final and closes it. A no-op when no
// turn is open.
func (l *Log) FinalizeCurrent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		l.current.Final = true
		l.current = nil
	}
}

// FinalizeAll marks every turn final and closes the open turn. Called on
// disconnect so no turn is left dangling mid-stream.
func (l *Log) FinalizeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.turns {
		t.Final = true
	}
	l.current = nil
}

// Add appends a pre-built turn to the log, leaving the open turn untouched.
// Used by the one-shot path, whose turns never stream.
func (l *Log) Add(t *Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
}

// Update applies fn to the turn with the given ID under the log lock.
// Returns false if no such turn exists.
func (l *Log) Update(id string, fn func(*Turn)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.turns {
		if t.ID == id {
			fn(t)
			return true
		}
	}
	return false
}

// Get returns a copy of the turn with the given ID.
func (l *Log) Get(id string) (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.turns {
		if t.ID == id {
			return *t, true
		}
	}
	return Turn{}, false
}

// Snapshot returns a copy of all turns in order.
func (l *Log) Snapshot() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	for i, t := range l.turns {
		out[i] = *t
	}
	return out
}

// Len returns the number of turns in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}
