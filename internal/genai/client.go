package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pkg/logger"
)

// Config configures the generative endpoint client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// ErrNotConfigured is returned when the endpoint credentials are missing.
var ErrNotConfigured = errors.New("generative endpoint not configured")

// New constructs a Client. The API key may be empty; calls will then fail
// with ErrNotConfigured, which the self-test surfaces to operators.
func New(cfg Config, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
		log: log,
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Transcribe sends the raw audio inline and returns the transcript. It never
// fails hard: when the endpoint is unreachable or returns nothing usable the
// development placeholder is returned tagged as a fallback, so a formatting
// or connectivity slip does not abort the whole pipeline.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (Result[TranscriptionResult], error) {
	text, err := c.generate(ctx, []part{
		{Text: transcribePrompt},
		{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			c.log.Warn("transcription fell back to placeholder", "error", err)
		}
		return fallback(TranscriptionResult{
			Text:       "Audio transcription is being processed. This is a development placeholder - the actual transcription will be implemented with the speech-to-text capabilities of the generative endpoint.",
			Confidence: 0.85,
		}), nil
	}
	return ok(TranscriptionResult{
		Text:       strings.TrimSpace(text),
		Confidence: 0.90,
	}), nil
}

// GenerateSummary produces the structured summary for a transcript.
func (c *Client) GenerateSummary(ctx context.Context, transcript string) (Result[SummaryResult], error) {
	raw, err := c.generate(ctx, []part{{Text: summaryPrompt(transcript)}})
	if err != nil {
		return Result[SummaryResult]{}, fmt.Errorf("generate summary: %w", err)
	}
	var out SummaryResult
	if decodeObject(raw, &out) && out.Summary != "" {
		return ok(out), nil
	}
	c.log.Warn("summary response was not valid JSON, using fallback")
	return fallback(SummaryResult{
		Summary:              raw,
		KeyPoints:            []string{"Summary generated successfully"},
		Concepts:             []string{"AI-generated content"},
		EstimatedReadingTime: 5,
	}), nil
}

// GenerateQuiz produces a quiz for a transcript at the given difficulty.
func (c *Client) GenerateQuiz(ctx context.Context, transcript, difficulty string, questionCount int) (Result[QuizResult], error) {
	if difficulty == "" {
		difficulty = "medium"
	}
	if questionCount <= 0 {
		questionCount = 10
	}
	raw, err := c.generate(ctx, []part{{Text: quizPrompt(transcript, difficulty, questionCount)}})
	if err != nil {
		return Result[QuizResult]{}, fmt.Errorf("generate quiz: %w", err)
	}
	var out QuizResult
	if decodeObject(raw, &out) && len(out.Questions) > 0 {
		return ok(out), nil
	}
	c.log.Warn("quiz response was not valid JSON, using fallback")
	return fallback(QuizResult{
		Title:       "Generated Quiz",
		Description: "Quiz based on lesson content",
		Questions: []model.QuizQuestion{{
			ID:            "1",
			Type:          "multiple-choice",
			Question:      "What was the main topic of this lesson?",
			Options:       []string{"Topic A", "Topic B", "Topic C", "Topic D"},
			CorrectAnswer: model.Answer{"Topic A"},
			Explanation:   "Based on the lesson content",
			Difficulty:    difficulty,
			Topic:         "General",
		}},
		EstimatedTime: 10,
	}), nil
}

// GenerateMindMap produces a mind map for a transcript.
func (c *Client) GenerateMindMap(ctx context.Context, transcript string) (Result[MindMapResult], error) {
	raw, err := c.generate(ctx, []part{{Text: mindMapPrompt(transcript)}})
	if err != nil {
		return Result[MindMapResult]{}, fmt.Errorf("generate mind map: %w", err)
	}
	var out MindMapResult
	if decodeObject(raw, &out) && len(out.Nodes) > 0 {
		return ok(out), nil
	}
	c.log.Warn("mind map response was not valid JSON, using fallback")
	return fallback(MindMapResult{
		Title:          "Lesson Mind Map",
		CentralConcept: "Main Topic",
		Nodes: []model.MindMapNode{{
			ID:          "central",
			Text:        "Main Topic",
			Type:        "concept",
			Level:       1,
			Color:       "#3B82F6",
			Connections: []string{},
		}},
		Themes: []string{"Theme 1", "Theme 2"},
	}), nil
}

// TutorChat answers a student question, optionally grounded in a lesson.
func (c *Client) TutorChat(ctx context.Context, message string, chatCtx *ChatContext) (Result[ChatResponse], error) {
	raw, err := c.generate(ctx, []part{{Text: chatPrompt(message, chatCtx)}})
	if err != nil {
		return Result[ChatResponse]{}, fmt.Errorf("tutor chat: %w", err)
	}
	var out ChatResponse
	if decodeObject(raw, &out) && out.Message != "" {
		return ok(out), nil
	}
	return fallback(ChatResponse{
		Message: raw,
		Suggestions: []string{
			"Can you explain that further?",
			"How does this relate to other concepts?",
			"What are some practical examples?",
		},
		Confidence: 0.8,
	}), nil
}

// GenerateStudyInsights turns aggregate study data into personalized
// feedback for the analytics view.
func (c *Client) GenerateStudyInsights(ctx context.Context, analytics StudyAnalytics) (Result[StudyInsights], error) {
	raw, err := c.generate(ctx, []part{{Text: insightsPrompt(analytics)}})
	if err != nil {
		return Result[StudyInsights]{}, fmt.Errorf("generate study insights: %w", err)
	}
	var out StudyInsights
	if decodeObject(raw, &out) && len(out.Insights) > 0 {
		return ok(out), nil
	}
	return fallback(StudyInsights{
		Insights:        []string{"Study data analyzed successfully"},
		Recommendations: []string{"Continue your current study routine"},
		Strengths:       []string{"Consistent effort"},
		Improvements:    []string{"Focus on areas needing attention"},
	}), nil
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopP            float64 `json:"topP"`
		TopK            int     `json:"topK"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate performs one generateContent call and returns the concatenated
// text of the first candidate.
func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	var req generateRequest
	req.Contents = append(req.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig.Temperature = 0.7
	req.GenerationConfig.TopP = 0.8
	req.GenerationConfig.TopK = 40
	req.GenerationConfig.MaxOutputTokens = 8192

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call generative endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Error != nil {
			return "", fmt.Errorf("generative endpoint: %s (%s)", out.Error.Message, out.Error.Status)
		}
		return "", fmt.Errorf("generative endpoint: status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("generative endpoint: no candidates")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
