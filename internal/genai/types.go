// Package genai calls the generative endpoint for transcription, derived
// content and tutoring.
package genai

import "github.com/studyai/studyai/internal/model"

// Source tags where a result came from: a parsed model response or the
// degraded fallback used when the response could not be parsed.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result pairs a generated value with its source so callers can tell real
// content from placeholder content.
type Result[T any] struct {
	Value  T
	Source Source
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceModel}
}

func fallback[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceFallback}
}

// WordTimestamp is a word-level timing entry in a transcription.
type WordTimestamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TranscriptionResult is the speech-to-text output.
type TranscriptionResult struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Timestamps []WordTimestamp `json:"timestamps,omitempty"`
}

// SummaryResult is the structured summary generated from a transcript.
type SummaryResult struct {
	Summary              string   `json:"summary"`
	KeyPoints            []string `json:"keyPoints"`
	Concepts             []string `json:"concepts"`
	EstimatedReadingTime int      `json:"estimatedReadingTime"`
}

// QuizResult is the quiz generated from a transcript.
type QuizResult struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Questions     []model.QuizQuestion `json:"questions"`
	EstimatedTime int                  `json:"estimatedTime"`
}

// MindMapResult is the mind map generated from a transcript.
type MindMapResult struct {
	Title          string              `json:"title"`
	CentralConcept string              `json:"centralConcept"`
	Nodes          []model.MindMapNode `json:"nodes"`
	Themes         []string            `json:"themes"`
}

// ChatMessage is one prior turn passed as tutoring context.
type ChatMessage struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// ChatContext carries optional lesson context into a tutoring turn.
type ChatContext struct {
	LessonID         string
	SubjectID        string
	Transcript       string
	PreviousMessages []ChatMessage
}

// ChatResponse is the tutor's reply.
type ChatResponse struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
	Sources     []string `json:"sources,omitempty"`
}

// StudyAnalytics summarizes a student's activity for insight generation.
type StudyAnalytics struct {
	StudyTime        int       `json:"studyTime"` // minutes
	LessonsCompleted int       `json:"lessonsCompleted"`
	QuizScores       []float64 `json:"quizScores"`
	SubjectsStudied  []string  `json:"subjectsStudied"`
	WeakAreas        []string  `json:"weakAreas,omitempty"`
}

// StudyInsights is the personalized feedback generated from analytics.
type StudyInsights struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
}
