// Package queue defines the background tasks exchanged between the API and
// the worker over asynq.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ProcessLessonTask is scheduled each time an audio lesson is uploaded
	// while background processing is enabled.
	ProcessLessonTask = "lesson:process"
)

// ProcessPayload is serialized into the task payload so the worker knows
// which lesson row to resume.
type ProcessPayload struct {
	LessonID string `json:"lesson_id"`
}

// EnqueueProcess enqueues a lesson processing job. Jobs are not retried:
// a failed run marks the lesson errored and the student re-uploads.
func EnqueueProcess(ctx context.Context, client *asynq.Client, payload ProcessPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ProcessLessonTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue process task: %w", err)
	}
	return nil
}
