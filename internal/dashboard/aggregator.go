// Package dashboard aggregates per-user study data into the overview the
// home screen renders.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/repository"
)

const (
	maxSubjects   = 6
	maxActivities = 8
)

// Stats is the headline-number block of the dashboard.
type Stats struct {
	TotalStudyTime    int     `json:"totalStudyTime"`  // minutes
	WeeklyStudyTime   int     `json:"weeklyStudyTime"` // minutes
	StudyStreak       int     `json:"studyStreak"`     // days
	LessonsCount      int     `json:"lessonsCount"`
	QuizzesCompleted  int     `json:"quizzesCompleted"`
	AverageQuizScore  float64 `json:"averageQuizScore"`
	UpcomingDeadlines int     `json:"upcomingDeadlines"`
}

// SubjectProgress is one subject card.
type SubjectProgress struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Color          string  `json:"color"`
	Progress       float64 `json:"progress"` // percent toward the study goal
	TotalStudyTime int     `json:"totalStudyTime"`
	LessonsCount   int     `json:"lessonsCount"`
	QuizzesCount   int     `json:"quizzesCount"`
	AverageScore   float64 `json:"averageScore"`
	IsActive       bool    `json:"isActive"`
}

// Activity is one row of the recent-activity feed.
type Activity struct {
	ID           string `json:"id"`
	Type         string `json:"type"` // lesson | quiz
	Title        string `json:"title"`
	Subject      string `json:"subject,omitempty"`
	SubjectColor string `json:"subjectColor,omitempty"`
	Time         string `json:"time"`
	Score        string `json:"score,omitempty"`
	Icon         string `json:"icon"`

	occurredAt time.Time
}

// Overview is the full dashboard payload.
type Overview struct {
	Stats            Stats             `json:"stats"`
	Subjects         []SubjectProgress `json:"subjects"`
	RecentActivities []Activity        `json:"recentActivities"`
}

// Aggregator assembles the overview from the repositories.
type Aggregator struct {
	subjects *repository.SubjectRepository
	quizzes  *repository.QuizRepository
	now      func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(subjects *repository.SubjectRepository, quizzes *repository.QuizRepository) *Aggregator {
	return &Aggregator{subjects: subjects, quizzes: quizzes, now: time.Now}
}

// Overview builds the dashboard for one user.
func (a *Aggregator) Overview(ctx context.Context, userID string) (*Overview, error) {
	subjects, err := a.subjects.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	recentLessons, err := a.subjects.ListRecentLessons(ctx, userID, 10)
	if err != nil {
		return nil, fmt.Errorf("list recent lessons: %w", err)
	}
	attempts, err := a.quizzes.ListRecentCompletedAttempts(ctx, userID, 5)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	out := &Overview{
		Stats:            a.buildStats(subjects, attempts),
		Subjects:         buildSubjects(subjects),
		RecentActivities: a.buildActivities(recentLessons, attempts),
	}
	return out, nil
}

func (a *Aggregator) buildStats(subjects []model.Subject, attempts []repository.AttemptActivity) Stats {
	var total, lessons int
	for _, s := range subjects {
		total += s.TotalStudyTime
		lessons += s.LessonsCount
	}
	// Weekly time is approximated as 30% of the lifetime total until lesson
	// sessions carry their own timestamps.
	weekly := int(math.Min(float64(total), float64(total)*0.3))

	var avg float64
	if len(attempts) > 0 {
		var sum float64
		for _, at := range attempts {
			questions := at.Attempt.TotalQuestions
			if questions == 0 {
				questions = 1
			}
			sum += float64(at.Attempt.Score) / float64(questions) * 100
		}
		avg = sum / float64(len(attempts))
	}

	return Stats{
		TotalStudyTime:  total,
		WeeklyStudyTime: weekly,
		// Daily study tracking does not exist yet, so the streak is pinned
		// rather than randomized.
		StudyStreak:      1,
		LessonsCount:     lessons,
		QuizzesCompleted: len(attempts),
		AverageQuizScore: avg,
	}
}

func buildSubjects(subjects []model.Subject) []SubjectProgress {
	out := make([]SubjectProgress, 0, len(subjects))
	for _, s := range subjects {
		color := s.Color
		if color == "" {
			color = "#3B82F6"
		}
		var progress float64
		if s.StudyGoalHours > 0 {
			progress = math.Min(100, float64(s.TotalStudyTime)/60/float64(s.StudyGoalHours)*100)
		} else {
			progress = math.Min(100, float64(s.LessonsCount)*10)
		}
		out = append(out, SubjectProgress{
			ID:             s.ID,
			Name:           s.Name,
			Color:          color,
			Progress:       progress,
			TotalStudyTime: s.TotalStudyTime,
			LessonsCount:   s.LessonsCount,
			QuizzesCount:   s.QuizzesCount,
			AverageScore:   s.AverageScore,
			IsActive:       s.IsActive,
		})
		if len(out) == maxSubjects {
			break
		}
	}
	return out
}

func (a *Aggregator) buildActivities(lessons []repository.LessonActivity, attempts []repository.AttemptActivity) []Activity {
	now := a.now()
	activities := make([]Activity, 0, len(lessons)+len(attempts))
	for _, l := range lessons {
		activities = append(activities, Activity{
			ID:           l.ID,
			Type:         "lesson",
			Title:        l.Title + " transcribed",
			Subject:      l.SubjectName,
			SubjectColor: l.SubjectColor,
			Time:         formatTimeAgo(now, l.CreatedAt),
			Icon:         "BookOpen",
			occurredAt:   l.CreatedAt,
		})
	}
	for _, at := range attempts {
		completed := now
		if at.Attempt.CompletedAt != nil {
			completed = *at.Attempt.CompletedAt
		}
		title := at.QuizTitle
		if title == "" {
			title = "Quiz"
		}
		activities = append(activities, Activity{
			ID:           at.Attempt.ID,
			Type:         "quiz",
			Title:        title + " completed",
			Subject:      at.SubjectName,
			SubjectColor: at.SubjectColor,
			Time:         formatTimeAgo(now, completed),
			Score:        fmt.Sprintf("%d/%d", at.Attempt.Score, at.Attempt.TotalQuestions),
			Icon:         "Brain",
			occurredAt:   completed,
		})
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].occurredAt.After(activities[j].occurredAt)
	})
	if len(activities) > maxActivities {
		activities = activities[:maxActivities]
	}
	return activities
}

// formatTimeAgo renders a coarse relative timestamp for the feed.
func formatTimeAgo(now, t time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	hours := minutes / 60
	days := hours / 24
	switch {
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
