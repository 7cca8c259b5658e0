// Package repository wraps all SQL used throughout the API and worker.
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

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// LessonRepository persists lesson rows.
type LessonRepository struct {
	pool *pgxpool.Pool
}

// NewLessonRepository constructs a repository.
func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

// Create inserts a lesson in processing state before the pipeline runs.
func (r *LessonRepository) Create(ctx context.Context, l *model.Lesson) error {
	now := time.Now().UTC()
	l.Status = model.StatusProcessing
	l.CreatedAt = now
	l.UpdatedAt = now
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lessons (id, user_id, subject_id, title, lesson_type,
			audio_file_name, audio_object_key, audio_size,
			processing_status, processing_metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12)
	`, l.ID, l.UserID, nullable(l.SubjectID), l.Title, l.LessonType,
		nullable(l.AudioFileName), nullable(l.AudioObjectKey), l.AudioSize,
		l.Status, string(meta), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

// Get returns a lesson by id.
func (r *LessonRepository) Get(ctx context.Context, id string) (*model.Lesson, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(subject_id,''), title, lesson_type,
			COALESCE(audio_file_name,''), COALESCE(audio_object_key,''), COALESCE(audio_size,0),
			audio_duration, transcript, transcript_confidence, summary,
			key_points, concepts, estimated_reading_time,
			processing_status, processing_error, processing_metadata,
			created_at, updated_at, processed_at
		FROM lessons WHERE id=$1
	`, id)
	return scanLesson(row)
}

// ListByUser returns the user's most recent lessons, joined subject names
// left to the dashboard queries.
func (r *LessonRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Lesson, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(subject_id,''), title, lesson_type,
			COALESCE(audio_file_name,''), COALESCE(audio_object_key,''), COALESCE(audio_size,0),
			audio_duration, transcript, transcript_confidence, summary,
			key_points, concepts, estimated_reading_time,
			processing_status, processing_error, processing_metadata,
			created_at, updated_at, processed_at
		FROM lessons WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select lessons: %w", err)
	}
	defer rows.Close()
	var out []model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// CompleteProcessing writes the pipeline results and flips the status to
// completed in one update.
func (r *LessonRepository) CompleteProcessing(ctx context.Context, id string, res model.LessonResults) error {
	now := time.Now().UTC()
	meta, err := json.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	keyPoints, err := json.Marshal(res.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}
	concepts, err := json.Marshal(res.Concepts)
	if err != nil {
		return fmt.Errorf("marshal concepts: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE lessons
		SET transcript=$1,
			transcript_confidence=$2,
			summary=$3,
			key_points=$4::jsonb,
			concepts=$5::jsonb,
			estimated_reading_time=$6,
			processing_status=$7,
			processing_error=NULL,
			processing_metadata=$8::jsonb,
			processed_at=$9,
			updated_at=$9
		WHERE id=$10
	`, res.Transcript, res.TranscriptConfidence, res.Summary,
		string(keyPoints), string(concepts), res.EstimatedReadingTime,
		model.StatusCompleted, string(meta), now, id)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkFailed records the failure so no lesson is left stuck in processing.
func (r *LessonRepository) MarkFailed(ctx context.Context, id, msg string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		UPDATE lessons
		SET processing_status=$1, processing_error=$2, updated_at=$3
		WHERE id=$4
	`, model.StatusError, msg, now, id)
	if err != nil {
		return fmt.Errorf("mark lesson failed: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*model.Lesson, error) {
	var (
		l         model.Lesson
		keyPoints []byte
		concepts  []byte
		meta      []byte
	)
	err := row.Scan(&l.ID, &l.UserID, &l.SubjectID, &l.Title, &l.LessonType,
		&l.AudioFileName, &l.AudioObjectKey, &l.AudioSize,
		&l.AudioDuration, &l.Transcript, &l.TranscriptConfidence, &l.Summary,
		&keyPoints, &concepts, &l.EstimatedReadingTime,
		&l.Status, &l.ProcessingError, &meta,
		&l.CreatedAt, &l.UpdatedAt, &l.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan lesson: %w", err)
	}
	if len(keyPoints) > 0 {
		if err := json.Unmarshal(keyPoints, &l.KeyPoints); err != nil {
			return nil, fmt.Errorf("decode key points: %w", err)
		}
	}
	if len(concepts) > 0 {
		if err := json.Unmarshal(concepts, &l.Concepts); err != nil {
			return nil, fmt.Errorf("decode concepts: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &l.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &l, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
