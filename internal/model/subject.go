package model

import "time"

// Subject groups lessons and quizzes and carries the counters the dashboard
// aggregates over.
type Subject struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Color          string    `json:"color,omitempty"`
	TotalStudyTime int       `json:"totalStudyTime"` // minutes
	LessonsCount   int       `json:"lessonsCount"`
	QuizzesCount   int       `json:"quizzesCount"`
	AverageScore   float64   `json:"averageScore"`
	StudyGoalHours int       `json:"studyGoalHours,omitempty"`
	IsActive       bool      `json:"isActive"`
	IsArchived     bool      `json:"isArchived"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
