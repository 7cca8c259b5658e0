package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the tables if needed. Having the bootstrap in code
// keeps the stack self-contained so docker-compose can start from nothing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS subjects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	color TEXT,
	total_study_time INTEGER NOT NULL DEFAULT 0,
	lessons_count INTEGER NOT NULL DEFAULT 0,
	quizzes_count INTEGER NOT NULL DEFAULT 0,
	average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	study_goal_hours INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_archived BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subjects_user ON subjects(user_id, is_active);

CREATE TABLE IF NOT EXISTS lessons (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	subject_id TEXT REFERENCES subjects(id),
	title TEXT NOT NULL,
	lesson_type TEXT NOT NULL DEFAULT 'audio',
	audio_file_name TEXT,
	audio_object_key TEXT,
	audio_size BIGINT,
	audio_duration INTEGER,
	transcript TEXT,
	transcript_confidence DOUBLE PRECISION,
	summary TEXT,
	key_points JSONB,
	concepts JSONB,
	estimated_reading_time INTEGER,
	processing_status TEXT NOT NULL,
	processing_error TEXT,
	processing_metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_lessons_user ON lessons(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_lessons_status ON lessons(processing_status);

CREATE TABLE IF NOT EXISTS quizzes (
	id TEXT PRIMARY KEY,
	lesson_id TEXT REFERENCES lessons(id),
	subject_id TEXT REFERENCES subjects(id),
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	questions JSONB NOT NULL,
	question_count INTEGER NOT NULL DEFAULT 0,
	difficulty TEXT,
	estimated_time INTEGER,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quizzes_lesson ON quizzes(lesson_id);

CREATE TABLE IF NOT EXISTS mind_maps (
	id TEXT PRIMARY KEY,
	lesson_id TEXT REFERENCES lessons(id),
	subject_id TEXT REFERENCES subjects(id),
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	central_concept TEXT NOT NULL,
	nodes JSONB NOT NULL,
	themes JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mind_maps_lesson ON mind_maps(lesson_id);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id TEXT PRIMARY KEY,
	quiz_id TEXT NOT NULL REFERENCES quizzes(id),
	user_id TEXT NOT NULL,
	score INTEGER NOT NULL DEFAULT 0,
	total_questions INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user ON quiz_attempts(user_id, completed_at DESC);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
