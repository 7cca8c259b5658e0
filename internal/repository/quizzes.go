package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyai/studyai/internal/model"
)

// QuizRepository persists generated quizzes and their attempts.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository constructs a repository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Create inserts a quiz generated for a lesson.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.QuestionCount = len(q.Questions)
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO quizzes (id, lesson_id, subject_id, user_id, title, description,
			questions, question_count, difficulty, estimated_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9,$10,$11,$12)
	`, q.ID, nullable(q.LessonID), nullable(q.SubjectID), q.UserID, q.Title, nullable(q.Description),
		string(questions), q.QuestionCount, q.Difficulty, q.EstimatedTime, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// DeleteByLesson removes the quizzes generated for a lesson. The pipeline
// uses it to roll back derived rows when a later persistence step fails.
func (r *QuizRepository) DeleteByLesson(ctx context.Context, lessonID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE lesson_id=$1`, lessonID); err != nil {
		return fmt.Errorf("delete quizzes: %w", err)
	}
	return nil
}

// GetByLesson returns the quiz generated for a lesson.
func (r *QuizRepository) GetByLesson(ctx context.Context, lessonID string) (*model.Quiz, error) {
	var (
		q         model.Quiz
		lesson    *string
		subject   *string
		desc      *string
		questions []byte
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, lesson_id, subject_id, user_id, title, description,
			questions, question_count, COALESCE(difficulty,''), COALESCE(estimated_time,0),
			created_at, updated_at
		FROM quizzes WHERE lesson_id=$1
		ORDER BY created_at DESC LIMIT 1
	`, lessonID)
	err := row.Scan(&q.ID, &lesson, &subject, &q.UserID, &q.Title, &desc,
		&questions, &q.QuestionCount, &q.Difficulty, &q.EstimatedTime,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select quiz: %w", err)
	}
	if lesson != nil {
		q.LessonID = *lesson
	}
	if subject != nil {
		q.SubjectID = *subject
	}
	if desc != nil {
		q.Description = *desc
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &q, nil
}

// AttemptActivity is a completed attempt joined with the quiz and subject it
// belongs to, shaped for the dashboard's recent-activity feed.
type AttemptActivity struct {
	Attempt      model.QuizAttempt
	QuizTitle    string
	SubjectName  string
	SubjectColor string
}

// ListRecentCompletedAttempts returns the user's latest finished attempts.
func (r *QuizRepository) ListRecentCompletedAttempts(ctx context.Context, userID string, limit int) ([]AttemptActivity, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.quiz_id, a.user_id, a.score, a.total_questions, a.completed_at, a.created_at,
			q.title, COALESCE(s.name,''), COALESCE(s.color,'')
		FROM quiz_attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		LEFT JOIN subjects s ON s.id = q.subject_id
		WHERE a.user_id=$1 AND a.completed_at IS NOT NULL
		ORDER BY a.completed_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	defer rows.Close()
	var out []AttemptActivity
	for rows.Next() {
		var a AttemptActivity
		if err := rows.Scan(&a.Attempt.ID, &a.Attempt.QuizID, &a.Attempt.UserID,
			&a.Attempt.Score, &a.Attempt.TotalQuestions, &a.Attempt.CompletedAt, &a.Attempt.CreatedAt,
			&a.QuizTitle, &a.SubjectName, &a.SubjectColor); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
