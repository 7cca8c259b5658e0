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

// MindMapRepository persists generated mind maps.
type MindMapRepository struct {
	pool *pgxpool.Pool
}

// NewMindMapRepository constructs a repository.
func NewMindMapRepository(pool *pgxpool.Pool) *MindMapRepository {
	return &MindMapRepository{pool: pool}
}

// Create inserts a mind map generated for a lesson.
func (r *MindMapRepository) Create(ctx context.Context, m *model.MindMap) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	nodes, err := json.Marshal(m.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	themes, err := json.Marshal(m.Themes)
	if err != nil {
		return fmt.Errorf("marshal themes: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO mind_maps (id, lesson_id, subject_id, user_id, title, central_concept,
			nodes, themes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8::jsonb,$9,$10)
	`, m.ID, nullable(m.LessonID), nullable(m.SubjectID), m.UserID, m.Title, m.CentralConcept,
		string(nodes), string(themes), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert mind map: %w", err)
	}
	return nil
}

// DeleteByLesson removes the mind maps generated for a lesson, rolling back
// derived rows when a later persistence step fails.
func (r *MindMapRepository) DeleteByLesson(ctx context.Context, lessonID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM mind_maps WHERE lesson_id=$1`, lessonID); err != nil {
		return fmt.Errorf("delete mind maps: %w", err)
	}
	return nil
}

// GetByLesson returns the mind map generated for a lesson.
func (r *MindMapRepository) GetByLesson(ctx context.Context, lessonID string) (*model.MindMap, error) {
	var (
		m       model.MindMap
		lesson  *string
		subject *string
		nodes   []byte
		themes  []byte
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, lesson_id, subject_id, user_id, title, central_concept,
			nodes, themes, created_at, updated_at
		FROM mind_maps WHERE lesson_id=$1
		ORDER BY created_at DESC LIMIT 1
	`, lessonID)
	err := row.Scan(&m.ID, &lesson, &subject, &m.UserID, &m.Title, &m.CentralConcept,
		&nodes, &themes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select mind map: %w", err)
	}
	if lesson != nil {
		m.LessonID = *lesson
	}
	if subject != nil {
		m.SubjectID = *subject
	}
	if err := json.Unmarshal(nodes, &m.Nodes); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	if len(themes) > 0 {
		if err := json.Unmarshal(themes, &m.Themes); err != nil {
			return nil, fmt.Errorf("decode themes: %w", err)
		}
	}
	return &m, nil
}
