// Package oneshot defines the Generator interface for single-turn text
// generation backends.
//
// Unlike the live package, which models a long-lived bidirectional audio
// session, a Generator answers one request with one complete text response.
// The coordinator uses it for typed text and document translation, where the
// full input is available up front and streaming adds nothing.
//
// Implementors must be safe for concurrent use and must honor context
// cancellation.
package oneshot

import "context"

// Attachment is an optional binary payload sent alongside the text content,
// such as a PDF document to translate.
type Attachment struct {
	// MIMEType identifies the payload, e.g. "application/pdf".
	MIMEType string

	// Data is the base64-encoded payload bytes.
	Data string
}

// Generator produces one complete text response for one request.
type Generator interface {
	// Generate sends content, an optional attachment, and a system instruction
	// to the model and returns the full response text. Returns an error if the
	// request fails or ctx is cancelled before the response arrives.
	Generate(ctx context.Context, content string, att *Attachment, systemInstruction string) (string, error)
}
