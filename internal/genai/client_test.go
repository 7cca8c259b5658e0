package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/studyai/studyai/internal/pkg/logger"
)

// fakeEndpoint returns a generateContent server that answers every call with
// the given candidate text.
func fakeEndpoint(t *testing.T, candidateText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "" {
			http.Error(w, `{"error":{"code":401,"message":"missing key","status":"UNAUTHENTICATED"}}`, http.StatusUnauthorized)
			return
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": candidateText}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gemini-2.5-flash",
		Timeout: 5 * time.Second,
	}, logger.NewNop())
}

func TestGenerateSummaryParsesModelResponse(t *testing.T) {
	payload := `{"summary":"Covered derivatives.","keyPoints":["chain rule"],"concepts":["calculus"],"estimatedReadingTime":4}`
	srv := fakeEndpoint(t, "```json\n"+payload+"\n```")
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).GenerateSummary(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if res.Source != SourceModel {
		t.Fatalf("source = %s, want model", res.Source)
	}
	if res.Value.Summary != "Covered derivatives." || res.Value.EstimatedReadingTime != 4 {
		t.Fatalf("unexpected summary: %+v", res.Value)
	}
}

func TestGenerateSummaryFallsBackOnUnparseableResponse(t *testing.T) {
	srv := fakeEndpoint(t, "I could not produce JSON, sorry.")
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).GenerateSummary(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if res.Value.Summary != "I could not produce JSON, sorry." {
		t.Fatalf("fallback should echo the raw text, got %q", res.Value.Summary)
	}
	if len(res.Value.KeyPoints) != 1 {
		t.Fatalf("fallback key points = %v", res.Value.KeyPoints)
	}
}

func TestGenerateQuizFallback(t *testing.T) {
	srv := fakeEndpoint(t, "not json")
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).GenerateQuiz(context.Background(), "transcript", "hard", 5)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if len(res.Value.Questions) != 1 {
		t.Fatalf("fallback quiz should have one question, got %d", len(res.Value.Questions))
	}
	if res.Value.Questions[0].Difficulty != "hard" {
		t.Fatalf("difficulty = %q", res.Value.Questions[0].Difficulty)
	}
}

func TestGenerateMindMapFallback(t *testing.T) {
	srv := fakeEndpoint(t, "{}")
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).GenerateMindMap(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("GenerateMindMap: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if len(res.Value.Nodes) != 1 || res.Value.Nodes[0].Color != "#3B82F6" {
		t.Fatalf("unexpected fallback nodes: %+v", res.Value.Nodes)
	}
}

func TestTranscribeNeverHardFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).Transcribe(context.Background(), []byte("audio"), "audio/mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Source != SourceFallback {
		t.Fatalf("source = %s, want fallback", res.Source)
	}
	if res.Value.Confidence != 0.85 {
		t.Fatalf("fallback confidence = %v", res.Value.Confidence)
	}
	if res.Value.Text == "" {
		t.Fatal("fallback transcript is empty")
	}
}

func TestTranscribeSuccess(t *testing.T) {
	srv := fakeEndpoint(t, "  hello class  ")
	defer srv.Close()

	res, err := newTestClient(t, srv.URL).Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Source != SourceModel {
		t.Fatalf("source = %s, want model", res.Source)
	}
	if res.Value.Text != "hello class" {
		t.Fatalf("text = %q", res.Value.Text)
	}
	if res.Value.Confidence != 0.90 {
		t.Fatalf("confidence = %v", res.Value.Confidence)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := New(Config{Model: "gemini-2.5-flash"}, logger.NewNop())
	if c.Configured() {
		t.Fatal("client without key reports configured")
	}
	if _, err := c.GenerateSummary(context.Background(), "t"); err == nil {
		t.Fatal("expected ErrNotConfigured")
	}
}

func TestGenerateSurfacesEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).GenerateQuiz(context.Background(), "t", "medium", 10)
	if err == nil {
		t.Fatal("expected error from endpoint failure")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error should carry the endpoint message, got %v", err)
	}
}
