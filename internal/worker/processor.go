// Package worker runs queued lesson processing jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/pkg/logger"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/queue"
)

// LessonProcessor is the pipeline surface the worker drives.
type LessonProcessor interface {
	ProcessUploaded(ctx context.Context, lessonID string, report pipeline.ProgressFunc) (*model.Lesson, error)
}

// Processor is plugged into the asynq worker loop. It resumes uploaded
// lessons through the pipeline and publishes progress snapshots so the API
// process can serve polling requests.
type Processor struct {
	runner  LessonProcessor
	tracker progress.Tracker
	log     *logger.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(runner LessonProcessor, tracker progress.Tracker, log *logger.Logger) *Processor {
	return &Processor{runner: runner, tracker: tracker, log: log}
}

// Handler registers the lesson processing handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ProcessLessonTask, p.handleProcess)
	return mux
}

func (p *Processor) handleProcess(ctx context.Context, task *asynq.Task) error {
	var payload queue.ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	lessonID := payload.LessonID

	lastPercent := 0
	report := func(percent int, step string) {
		lastPercent = percent
		snap := progress.Snapshot{
			LessonID:   lessonID,
			Processing: percent < 100,
			Percent:    percent,
			Step:       step,
		}
		if err := p.tracker.Set(ctx, snap); err != nil {
			p.log.Warn("publish progress", "lesson_id", lessonID, "error", err)
		}
	}

	lesson, err := p.runner.ProcessUploaded(ctx, lessonID, report)
	if err != nil {
		// 100 means completion; a failed run keeps the checkpoint it
		// reached and signals termination via the error field.
		snap := progress.Snapshot{
			LessonID: lessonID,
			Percent:  lastPercent,
			Error:    err.Error(),
		}
		if setErr := p.tracker.Set(ctx, snap); setErr != nil {
			p.log.Warn("publish failure snapshot", "lesson_id", lessonID, "error", setErr)
		}
		// The lesson row already carries the error; the job is terminal.
		p.log.Error("lesson processing failed", "lesson_id", lessonID, "error", err)
		return nil
	}
	p.log.Info("lesson processed", "lesson_id", lesson.ID, "status", string(lesson.Status))
	return nil
}
