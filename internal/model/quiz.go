package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Answer accepts either a single string or a list of strings, matching the
// shape the generation endpoint returns for correctAnswer.
type Answer []string

func (a *Answer) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Answer{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = Answer(many)
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a Answer) String() string {
	return strings.Join(a, ", ")
}

// QuizQuestion is one generated question. Options is only populated for
// multiple-choice questions.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"` // multiple-choice | true-false | open-ended
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer Answer   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Topic         string   `json:"topic"`
}

// Quiz is the persisted quiz generated for a lesson.
type Quiz struct {
	ID            string         `json:"id"`
	LessonID      string         `json:"lessonId"`
	SubjectID     string         `json:"subjectId,omitempty"`
	UserID        string         `json:"userId"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Questions     []QuizQuestion `json:"questions"`
	QuestionCount int            `json:"questionCount"`
	Difficulty    string         `json:"difficulty"`
	EstimatedTime int            `json:"estimatedTime,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// QuizAttempt records one completed (or in-flight) run through a quiz.
type QuizAttempt struct {
	ID             string     `json:"id"`
	QuizID         string     `json:"quizId"`
	UserID         string     `json:"userId"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
