package model

import "time"

// MindMapNode is one node in a generated mind map. Connections holds ids of
// related nodes.
type MindMapNode struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Type        string   `json:"type"` // concept | category | detail
	Level       int      `json:"level"`
	Color       string   `json:"color"`
	Connections []string `json:"connections"`
}

// MindMap is the persisted mind map generated for a lesson.
type MindMap struct {
	ID             string        `json:"id"`
	LessonID       string        `json:"lessonId"`
	SubjectID      string        `json:"subjectId,omitempty"`
	UserID         string        `json:"userId"`
	Title          string        `json:"title"`
	CentralConcept string        `json:"centralConcept"`
	Nodes          []MindMapNode `json:"nodes"`
	Themes         []string      `json:"themes,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
