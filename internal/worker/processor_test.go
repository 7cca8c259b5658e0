package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/pkg/logger"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/queue"
)

type fakeRunner struct {
	checkpoints []int
	err         error
	gotLessonID string
}

func (f *fakeRunner) ProcessUploaded(_ context.Context, lessonID string, report pipeline.ProgressFunc) (*model.Lesson, error) {
	f.gotLessonID = lessonID
	for _, p := range f.checkpoints {
		report(p, "step")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Lesson{ID: lessonID, Status: model.StatusCompleted}, nil
}

func processTask(t *testing.T, lessonID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.ProcessPayload{LessonID: lessonID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.ProcessLessonTask, payload)
}

func TestHandleProcessPublishesProgress(t *testing.T) {
	runner := &fakeRunner{checkpoints: []int{35, 55, 75, 85, 95, 100}}
	tracker := progress.NewMemoryTracker()
	p := NewProcessor(runner, tracker, logger.NewNop())

	if err := p.handleProcess(context.Background(), processTask(t, "les-1")); err != nil {
		t.Fatalf("handleProcess: %v", err)
	}
	if runner.gotLessonID != "les-1" {
		t.Fatalf("lesson id = %q", runner.gotLessonID)
	}
	snap, found, _ := tracker.Get(context.Background(), "les-1")
	if !found {
		t.Fatal("no snapshot published")
	}
	if snap.Percent != 100 || snap.Processing {
		t.Fatalf("final snapshot = %+v", snap)
	}
}

func TestHandleProcessFailureIsTerminal(t *testing.T) {
	runner := &fakeRunner{checkpoints: []int{35}, err: errors.New("transcribing: endpoint down")}
	tracker := progress.NewMemoryTracker()
	p := NewProcessor(runner, tracker, logger.NewNop())

	// A failed run marks the lesson errored; returning nil keeps asynq from
	// retrying it.
	if err := p.handleProcess(context.Background(), processTask(t, "les-2")); err != nil {
		t.Fatalf("handleProcess should swallow pipeline errors, got %v", err)
	}
	snap, found, _ := tracker.Get(context.Background(), "les-2")
	if !found || snap.Error == "" {
		t.Fatalf("failure snapshot = %+v found=%v", snap, found)
	}
	// 100 means completion; the failure snapshot keeps the checkpoint the
	// run reached.
	if snap.Percent != 35 {
		t.Fatalf("failure snapshot percent = %d, want 35", snap.Percent)
	}
	if snap.Processing {
		t.Fatal("failure snapshot must not read as still processing")
	}
}

func TestHandleProcessBadPayload(t *testing.T) {
	p := NewProcessor(&fakeRunner{}, progress.NewMemoryTracker(), logger.NewNop())
	task := asynq.NewTask(queue.ProcessLessonTask, []byte("{not json"))
	if err := p.handleProcess(context.Background(), task); err == nil {
		t.Fatal("expected decode error")
	}
}
