package dashboard

import (
	"testing"
	"time"

	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/repository"
)

func TestBuildStats(t *testing.T) {
	a := &Aggregator{now: time.Now}
	completed := time.Now()
	subjects := []model.Subject{
		{TotalStudyTime: 300, LessonsCount: 4},
		{TotalStudyTime: 100, LessonsCount: 2},
	}
	attempts := []repository.AttemptActivity{
		{Attempt: model.QuizAttempt{Score: 8, TotalQuestions: 10, CompletedAt: &completed}},
		{Attempt: model.QuizAttempt{Score: 5, TotalQuestions: 10, CompletedAt: &completed}},
	}

	stats := a.buildStats(subjects, attempts)
	if stats.TotalStudyTime != 400 {
		t.Fatalf("total = %d", stats.TotalStudyTime)
	}
	if stats.WeeklyStudyTime != 120 {
		t.Fatalf("weekly = %d, want 120", stats.WeeklyStudyTime)
	}
	if stats.LessonsCount != 6 {
		t.Fatalf("lessons = %d", stats.LessonsCount)
	}
	if stats.QuizzesCompleted != 2 {
		t.Fatalf("quizzes = %d", stats.QuizzesCompleted)
	}
	if stats.AverageQuizScore != 65 {
		t.Fatalf("average = %v, want 65", stats.AverageQuizScore)
	}
	if stats.StudyStreak != 1 {
		t.Fatalf("streak = %d, want the pinned placeholder", stats.StudyStreak)
	}
}

func TestBuildStatsHandlesZeroQuestions(t *testing.T) {
	a := &Aggregator{now: time.Now}
	attempts := []repository.AttemptActivity{
		{Attempt: model.QuizAttempt{Score: 3, TotalQuestions: 0}},
	}
	stats := a.buildStats(nil, attempts)
	if stats.AverageQuizScore != 300 {
		t.Fatalf("average = %v, zero questions should count as one", stats.AverageQuizScore)
	}
}

func TestBuildSubjectsProgress(t *testing.T) {
	subjects := []model.Subject{
		// Goal-based: 600 minutes toward a 20 hour goal = 50%.
		{ID: "a", Name: "Math", TotalStudyTime: 600, StudyGoalHours: 20, LessonsCount: 1},
		// Lesson-based: 3 lessons * 10 = 30%.
		{ID: "b", Name: "History", LessonsCount: 3},
		// Capped at 100.
		{ID: "c", Name: "Physics", LessonsCount: 15},
		// Missing color gets the default.
		{ID: "d", Name: "Art"},
	}
	out := buildSubjects(subjects)
	if out[0].Progress != 50 {
		t.Fatalf("goal progress = %v", out[0].Progress)
	}
	if out[1].Progress != 30 {
		t.Fatalf("lesson progress = %v", out[1].Progress)
	}
	if out[2].Progress != 100 {
		t.Fatalf("progress not capped: %v", out[2].Progress)
	}
	if out[3].Color != "#3B82F6" {
		t.Fatalf("default color = %q", out[3].Color)
	}
}

func TestBuildSubjectsLimit(t *testing.T) {
	subjects := make([]model.Subject, 9)
	for i := range subjects {
		subjects[i].ID = string(rune('a' + i))
	}
	out := buildSubjects(subjects)
	if len(out) != maxSubjects {
		t.Fatalf("got %d subjects, want %d", len(out), maxSubjects)
	}
}

func TestBuildActivitiesMergedAndSorted(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	a := &Aggregator{now: func() time.Time { return now }}

	lessons := []repository.LessonActivity{
		{ID: "l1", Title: "Derivatives", SubjectName: "Math", CreatedAt: now.Add(-30 * time.Minute)},
		{ID: "l2", Title: "WW2", SubjectName: "History", CreatedAt: now.Add(-3 * time.Hour)},
	}
	completed := now.Add(-time.Hour)
	attempts := []repository.AttemptActivity{
		{
			Attempt:     model.QuizAttempt{ID: "q1", Score: 7, TotalQuestions: 10, CompletedAt: &completed},
			QuizTitle:   "Limits Quiz",
			SubjectName: "Math",
		},
	}

	out := a.buildActivities(lessons, attempts)
	if len(out) != 3 {
		t.Fatalf("got %d activities", len(out))
	}
	if out[0].ID != "l1" || out[1].ID != "q1" || out[2].ID != "l2" {
		t.Fatalf("order = %s,%s,%s", out[0].ID, out[1].ID, out[2].ID)
	}
	if out[0].Title != "Derivatives transcribed" {
		t.Fatalf("lesson title = %q", out[0].Title)
	}
	if out[1].Title != "Limits Quiz completed" || out[1].Score != "7/10" {
		t.Fatalf("quiz activity = %+v", out[1])
	}
	if out[0].Time != "30 minutes ago" {
		t.Fatalf("time = %q", out[0].Time)
	}
	if out[2].Time != "3 hours ago" {
		t.Fatalf("time = %q", out[2].Time)
	}
}

func TestBuildActivitiesLimit(t *testing.T) {
	now := time.Now()
	a := &Aggregator{now: func() time.Time { return now }}
	lessons := make([]repository.LessonActivity, 12)
	for i := range lessons {
		lessons[i] = repository.LessonActivity{ID: string(rune('a' + i)), CreatedAt: now}
	}
	out := a.buildActivities(lessons, nil)
	if len(out) != maxActivities {
		t.Fatalf("got %d activities, want %d", len(out), maxActivities)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{5 * time.Minute, "5 minutes ago"},
		{59 * time.Minute, "59 minutes ago"},
		{90 * time.Minute, "1 hours ago"},
		{23 * time.Hour, "23 hours ago"},
		{25 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tc := range cases {
		if got := formatTimeAgo(now, now.Add(-tc.ago)); got != tc.want {
			t.Errorf("formatTimeAgo(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
