package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juanan28s/flextranslator/pkg/provider/oneshot"
	"github.com/juanan28s/flextranslator/pkg/provider/oneshot/gemini"
)

// startServer launches a test HTTP server whose handler receives the decoded
// request body and writes a response. The server is closed with the test.
func startServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		handler(w, r, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// textResponse writes a well-formed generateContent response with one text part.
func textResponse(w http.ResponseWriter, text string) {
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
			},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGenerate_ReturnsCandidateText(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		textResponse(w, "[SRC=es]Hello world")
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	got, err := g.Generate(context.Background(), "Hola mundo", nil, "translate")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "[SRC=es]Hello world" {
		t.Errorf("Generate = %q; want %q", got, "[SRC=es]Hello world")
	}
}

func TestGenerate_SendsModelAndKeyInURL(t *testing.T) {
	t.Parallel()

	pathCh := make(chan string, 1)
	queryCh := make(chan string, 1)

	srv := startServer(t, func(w http.ResponseWriter, r *http.Request, _ map[string]any) {
		pathCh <- r.URL.Path
		queryCh <- r.URL.RawQuery
		textResponse(w, "ok")
	})

	g := gemini.New("secret-key", gemini.WithBaseURL(srv.URL), gemini.WithModel("custom-flash"))
	if _, err := g.Generate(context.Background(), "hi", nil, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if path := <-pathCh; path != "/models/custom-flash:generateContent" {
		t.Errorf("path = %q; want /models/custom-flash:generateContent", path)
	}
	if q := <-queryCh; !strings.Contains(q, "key=secret-key") {
		t.Errorf("query %q should contain key=secret-key", q)
	}
}

func TestGenerate_IncludesSystemInstruction(t *testing.T) {
	t.Parallel()

	bodyCh := make(chan map[string]any, 1)

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, body map[string]any) {
		bodyCh <- body
		textResponse(w, "ok")
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	if _, err := g.Generate(context.Background(), "text", nil, "You are an interpreter."); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	body := <-bodyCh
	si, ok := body["systemInstruction"].(map[string]any)
	if !ok {
		t.Fatalf("systemInstruction missing from request: %v", body)
	}
	parts := si["parts"].([]any)
	if text := parts[0].(map[string]any)["text"]; text != "You are an interpreter." {
		t.Errorf("system instruction text = %v; want %q", text, "You are an interpreter.")
	}
}

func TestGenerate_OmitsSystemInstructionWhenEmpty(t *testing.T) {
	t.Parallel()

	bodyCh := make(chan map[string]any, 1)

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, body map[string]any) {
		bodyCh <- body
		textResponse(w, "ok")
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	if _, err := g.Generate(context.Background(), "text", nil, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if body := <-bodyCh; body["systemInstruction"] != nil {
		t.Errorf("systemInstruction should be omitted; got %v", body["systemInstruction"])
	}
}

func TestGenerate_AttachesInlineData(t *testing.T) {
	t.Parallel()

	bodyCh := make(chan map[string]any, 1)

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, body map[string]any) {
		bodyCh <- body
		textResponse(w, "translated document")
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	att := &oneshot.Attachment{MIMEType: "application/pdf", Data: "JVBERi0xLjQ="}
	got, err := g.Generate(context.Background(), "[PDF Document] report.pdf", att, "translate")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "translated document" {
		t.Errorf("Generate = %q; want %q", got, "translated document")
	}

	body := <-bodyCh
	contents := body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts (text + inlineData); got %d", len(parts))
	}
	inline, ok := parts[1].(map[string]any)["inlineData"].(map[string]any)
	if !ok {
		t.Fatalf("second part should carry inlineData: %v", parts[1])
	}
	if inline["mimeType"] != "application/pdf" {
		t.Errorf("mimeType = %v; want application/pdf", inline["mimeType"])
	}
	if inline["data"] != "JVBERi0xLjQ=" {
		t.Errorf("data = %v; want base64 payload unchanged", inline["data"])
	}
}

func TestGenerate_ConcatenatesMultipleParts(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]any{
							{"text": "Hello "},
							{"text": "world"},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	got, err := g.Generate(context.Background(), "hola mundo", nil, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("Generate = %q; want %q", got, "Hello world")
	}
}

func TestGenerate_APIError(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid"},
		})
	})

	g := gemini.New("bad-key", gemini.WithBaseURL(srv.URL))
	_, err := g.Generate(context.Background(), "hi", nil, "")
	if err == nil {
		t.Fatal("Generate should return an error on API error response")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error %v should contain the API message", err)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	if _, err := g.Generate(context.Background(), "hi", nil, ""); err == nil {
		t.Fatal("Generate should return an error when no candidates are returned")
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := startServer(t, func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		textResponse(w, "ok")
	})

	g := gemini.New("key", gemini.WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Generate(ctx, "hi", nil, ""); err == nil {
		t.Fatal("Generate with cancelled context should return an error")
	}
}
