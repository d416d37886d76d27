// Package gemini implements the oneshot.Generator interface against Google's
// Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juanan28s/flextranslator/pkg/provider/oneshot"
)

// Compile-time assertion that Generator satisfies the oneshot interface.
var _ oneshot.Generator = (*Generator)(nil)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultTimeout = 60 * time.Second
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Generator.
type Option func(*Generator)

// WithModel sets the Gemini model used for generation.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithBaseURL overrides the base API URL. Primarily used in tests to point at
// a local mock server.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) { g.client = client }
}

// ── Generator ──────────────────────────────────────────────────────────────────

// Generator implements oneshot.Generator for Google's Gemini API.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini Generator with the given API key and options.
func New(apiKey string, opts ...Option) *Generator {
	g := &Generator{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ── Request/response types ─────────────────────────────────────────────────────

type generateRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// ── Generate ───────────────────────────────────────────────────────────────────

// Generate sends one generateContent request and returns the concatenated text
// of the first candidate.
func (g *Generator) Generate(ctx context.Context, text string, att *oneshot.Attachment, instruction string) (string, error) {
	parts := []part{{Text: text}}
	if att != nil {
		parts = append(parts, part{
			InlineData: &inlineData{MIMEType: att.MIMEType, Data: att.Data},
		})
	}

	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if instruction != "" {
		reqBody.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: instruction}},
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("gemini: decode response (status %d): %w", resp.StatusCode, err)
	}

	if genResp.Error != nil {
		return "", fmt.Errorf("gemini: api error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, body)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: response contains no candidates")
	}

	var out string
	for _, p := range genResp.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out, nil
}
