// Package model contains the row structs shared between the API, the worker
// and the repositories.
package model

import (
	"time"
)

// LessonStatus tracks the processing lifecycle of an uploaded lesson.
type LessonStatus string

const (
	StatusUploading  LessonStatus = "uploading"
	StatusProcessing LessonStatus = "processing"
	StatusCompleted  LessonStatus = "completed"
	StatusError      LessonStatus = "error"
)

// LessonType distinguishes the ingestion path a lesson came from.
type LessonType string

const (
	LessonTypeAudio LessonType = "audio"
	LessonTypeNotes LessonType = "notes"
)

// ProcessingMetadata is stored as JSONB next to the lesson row and captures
// what happened during one pipeline run.
type ProcessingMetadata struct {
	OriginalFileName        string     `json:"originalFileName"`
	FileSize                int64      `json:"fileSize"`
	StartedAt               time.Time  `json:"startedAt"`
	CompletedAt             *time.Time `json:"completedAt,omitempty"`
	TranscriptionConfidence float64    `json:"transcriptionConfidence,omitempty"`
	SummaryKeyPoints        int        `json:"summaryKeyPoints,omitempty"`
	QuizQuestions           int        `json:"quizQuestions,omitempty"`
	MindMapNodes            int        `json:"mindMapNodes,omitempty"`
	// FallbackArtifacts counts derived artifacts that came from the parse
	// fallback path instead of a well-formed model response, so consumers
	// can tell placeholder content apart.
	FallbackArtifacts int `json:"fallbackArtifacts,omitempty"`
}

// Lesson is one uploaded or recorded study session and its derived artifacts.
type Lesson struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"userId"`
	SubjectID            string             `json:"subjectId"`
	Title                string             `json:"title"`
	LessonType           LessonType         `json:"lessonType"`
	AudioFileName        string             `json:"audioFileName,omitempty"`
	AudioObjectKey       string             `json:"-"`
	AudioSize            int64              `json:"audioSize,omitempty"`
	AudioDuration        *int               `json:"audioDuration,omitempty"`
	Transcript           *string            `json:"transcript,omitempty"`
	TranscriptConfidence *float64           `json:"transcriptConfidence,omitempty"`
	Summary              *string            `json:"summary,omitempty"`
	KeyPoints            []string           `json:"keyPoints,omitempty"`
	Concepts             []string           `json:"concepts,omitempty"`
	EstimatedReadingTime *int               `json:"estimatedReadingTime,omitempty"`
	Status               LessonStatus       `json:"status"`
	ProcessingError      *string            `json:"processingError,omitempty"`
	Metadata             ProcessingMetadata `json:"processingMetadata"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
	ProcessedAt          *time.Time         `json:"processedAt,omitempty"`
}

// LessonResults carries everything a successful pipeline run writes back to
// the lesson row in one update.
type LessonResults struct {
	Transcript           string
	TranscriptConfidence float64
	Summary              string
	KeyPoints            []string
	Concepts             []string
	EstimatedReadingTime int
	Metadata             ProcessingMetadata
}
