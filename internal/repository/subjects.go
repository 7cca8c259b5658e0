package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyai/studyai/internal/model"
)

// SubjectRepository reads the subject rows the dashboard aggregates over.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository constructs a repository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// Get returns a subject by id.
func (r *SubjectRepository) Get(ctx context.Context, id string) (*model.Subject, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, COALESCE(color,''), total_study_time,
			lessons_count, quizzes_count, average_score, study_goal_hours,
			is_active, is_archived, created_at, updated_at
		FROM subjects WHERE id=$1
	`, id)
	var s model.Subject
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Color, &s.TotalStudyTime,
		&s.LessonsCount, &s.QuizzesCount, &s.AverageScore, &s.StudyGoalHours,
		&s.IsActive, &s.IsArchived, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select subject: %w", err)
	}
	return &s, nil
}

// ListActive returns the user's active subjects, most recently updated first.
func (r *SubjectRepository) ListActive(ctx context.Context, userID string) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, COALESCE(color,''), total_study_time,
			lessons_count, quizzes_count, average_score, study_goal_hours,
			is_active, is_archived, created_at, updated_at
		FROM subjects
		WHERE user_id=$1 AND is_active=TRUE
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select subjects: %w", err)
	}
	defer rows.Close()
	var out []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Color, &s.TotalStudyTime,
			&s.LessonsCount, &s.QuizzesCount, &s.AverageScore, &s.StudyGoalHours,
			&s.IsActive, &s.IsArchived, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LessonActivity is the slice of lesson columns the activity feed needs.
type LessonActivity struct {
	ID           string
	Title        string
	SubjectName  string
	SubjectColor string
	CreatedAt    time.Time
}

// ListRecentLessons returns recent lessons joined with their subject for the
// activity feed.
func (r *SubjectRepository) ListRecentLessons(ctx context.Context, userID string, limit int) ([]LessonActivity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.title, l.created_at, COALESCE(s.name,''), COALESCE(s.color,'')
		FROM lessons l
		LEFT JOIN subjects s ON s.id = l.subject_id
		WHERE l.user_id=$1
		ORDER BY l.created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent lessons: %w", err)
	}
	defer rows.Close()
	var out []LessonActivity
	for rows.Next() {
		var a LessonActivity
		if err := rows.Scan(&a.ID, &a.Title, &a.CreatedAt, &a.SubjectName, &a.SubjectColor); err != nil {
			return nil, fmt.Errorf("scan recent lesson: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
