// Package pipeline turns raw lesson audio into a transcript, summary, quiz
// and mind map, and persists all of it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studyai/studyai/internal/audio"
	"github.com/studyai/studyai/internal/genai"
	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pkg/logger"
)

// Stage names the step a pipeline error happened in.
type Stage string

const (
	StageValidating        Stage = "validating"
	StageUploading         Stage = "uploading"
	StageCreatingRecord    Stage = "creating_record"
	StageExtracting        Stage = "extracting"
	StageTranscribing      Stage = "transcribing"
	StageSummarizing       Stage = "summarizing"
	StageGeneratingQuiz    Stage = "generating_quiz"
	StageGeneratingMindMap Stage = "generating_mindmap"
	StagePersisting        Stage = "persisting"
)

// Error tags a collaborator failure with the stage it happened in. Any stage
// error aborts the remaining sequence; nothing is retried.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc observes (percentage, step) checkpoints during a run. The
// checkpoints are observation points only, not retry boundaries.
type ProgressFunc func(percent int, step string)

// ObjectStore is the object-storage surface the pipeline needs. Audio and
// notes live in separate buckets, so deletion is per kind.
type ObjectStore interface {
	UploadAudio(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
	UploadNotes(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error)
	DownloadAudio(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeleteNotes(ctx context.Context, key string) error
}

// LessonStore is the lesson-row surface the pipeline needs.
type LessonStore interface {
	Create(ctx context.Context, l *model.Lesson) error
	Get(ctx context.Context, id string) (*model.Lesson, error)
	CompleteProcessing(ctx context.Context, id string, res model.LessonResults) error
	MarkFailed(ctx context.Context, id, msg string) error
}

// QuizStore persists generated quizzes.
type QuizStore interface {
	Create(ctx context.Context, q *model.Quiz) error
	DeleteByLesson(ctx context.Context, lessonID string) error
}

// MindMapStore persists generated mind maps.
type MindMapStore interface {
	Create(ctx context.Context, m *model.MindMap) error
	DeleteByLesson(ctx context.Context, lessonID string) error
}

// Generator is the derived-content surface of the generative client.
type Generator interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (genai.Result[genai.TranscriptionResult], error)
	GenerateSummary(ctx context.Context, transcript string) (genai.Result[genai.SummaryResult], error)
	GenerateQuiz(ctx context.Context, transcript, difficulty string, questionCount int) (genai.Result[genai.QuizResult], error)
	GenerateMindMap(ctx context.Context, transcript string) (genai.Result[genai.MindMapResult], error)
}

// NotesExtractor extracts plain text from an uploaded notes document.
type NotesExtractor interface {
	ExtractText(data []byte) (string, error)
}

// Options tune a Runner.
type Options struct {
	QuizDifficulty    string
	QuizQuestionCount int
	// ParallelGeneration runs summary/quiz/mind-map concurrently once the
	// transcript exists. The observable progress sequence is unchanged.
	ParallelGeneration bool
}

// Runner orchestrates the processing sequence.
type Runner struct {
	objects  ObjectStore
	lessons  LessonStore
	quizzes  QuizStore
	mindmaps MindMapStore
	gen      Generator
	notes    NotesExtractor
	opts     Options
	log      *logger.Logger
}

// NewRunner wires a Runner. notes may be nil when the notes ingestion path
// is not served.
func NewRunner(objects ObjectStore, lessons LessonStore, quizzes QuizStore, mindmaps MindMapStore, gen Generator, notes NotesExtractor, opts Options, log *logger.Logger) *Runner {
	if opts.QuizDifficulty == "" {
		opts.QuizDifficulty = "medium"
	}
	if opts.QuizQuestionCount <= 0 {
		opts.QuizQuestionCount = 10
	}
	return &Runner{
		objects:  objects,
		lessons:  lessons,
		quizzes:  quizzes,
		mindmaps: mindmaps,
		gen:      gen,
		notes:    notes,
		opts:     opts,
		log:      log,
	}
}

// AudioRequest is one audio lesson submission.
type AudioRequest struct {
	Audio     []byte
	Filename  string
	MIMEType  string
	Title     string
	SubjectID string
	UserID    string
}

// NotesRequest is one lecture-notes (PDF) lesson submission.
type NotesRequest struct {
	Document  []byte
	Filename  string
	Title     string
	SubjectID string
	UserID    string
}

// ProcessAudio runs the full pipeline synchronously: validate, upload,
// create the lesson row, derive content and persist. Progress checkpoints
// are emitted at the fixed percentages the UI displays.
func (r *Runner) ProcessAudio(ctx context.Context, req AudioRequest, report ProgressFunc) (*model.Lesson, error) {
	lesson, err := r.PrepareAudio(ctx, req, report)
	if err != nil {
		return nil, err
	}
	return r.Finish(ctx, lesson, req.Audio, req.MIMEType, report)
}

// PrepareAudio performs the synchronous head of the pipeline: validation,
// upload, lesson-row creation. The caller either continues with Finish in
// process or enqueues the lesson for the worker.
func (r *Runner) PrepareAudio(ctx context.Context, req AudioRequest, report ProgressFunc) (*model.Lesson, error) {
	report = nonNil(report)
	report(0, "Validating file...")
	if err := audio.Validate(int64(len(req.Audio)), req.MIMEType); err != nil {
		return nil, &Error{Stage: StageValidating, Err: err}
	}

	report(10, "Uploading audio file...")
	key, err := r.objects.UploadAudio(ctx, req.UserID, req.Filename, req.Audio, req.MIMEType)
	if err != nil {
		return nil, &Error{Stage: StageUploading, Err: fmt.Errorf("upload failed: %w", err)}
	}

	report(25, "Creating lesson record...")
	lesson := &model.Lesson{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		SubjectID:      req.SubjectID,
		Title:          req.Title,
		LessonType:     model.LessonTypeAudio,
		AudioFileName:  req.Filename,
		AudioObjectKey: key,
		AudioSize:      int64(len(req.Audio)),
		Metadata: model.ProcessingMetadata{
			OriginalFileName: req.Filename,
			FileSize:         int64(len(req.Audio)),
			StartedAt:        time.Now().UTC(),
		},
	}
	if err := r.lessons.Create(ctx, lesson); err != nil {
		// The uploaded object would be orphaned without a row pointing at
		// it, so compensate immediately.
		r.cleanupObject(key, model.LessonTypeAudio)
		return nil, &Error{Stage: StageCreatingRecord, Err: fmt.Errorf("failed to create lesson: %w", err)}
	}
	return lesson, nil
}

// Finish runs transcription, derived-content generation and persistence for
// an already-created lesson row. On any failure the lesson is marked error
// and the uploaded object removed; no quiz or mind-map row is written.
func (r *Runner) Finish(ctx context.Context, lesson *model.Lesson, audioData []byte, mimeType string, report ProgressFunc) (*model.Lesson, error) {
	report = nonNil(report)

	report(35, "Transcribing audio...")
	transcription, err := r.gen.Transcribe(ctx, audioData, mimeType)
	if err != nil {
		return nil, r.fail(ctx, lesson, StageTranscribing, err)
	}
	return r.derive(ctx, lesson, transcription, report)
}

// ProcessNotes ingests a PDF of lecture notes: the extracted text stands in
// for the transcript and the derive/persist tail is identical to audio.
func (r *Runner) ProcessNotes(ctx context.Context, req NotesRequest, report ProgressFunc) (*model.Lesson, error) {
	report = nonNil(report)
	report(0, "Validating file...")
	if len(req.Document) == 0 {
		return nil, &Error{Stage: StageValidating, Err: fmt.Errorf("empty document")}
	}

	report(10, "Uploading notes...")
	key, err := r.objects.UploadNotes(ctx, req.UserID, req.Filename, req.Document, "application/pdf")
	if err != nil {
		return nil, &Error{Stage: StageUploading, Err: fmt.Errorf("upload failed: %w", err)}
	}

	report(25, "Creating lesson record...")
	lesson := &model.Lesson{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		SubjectID:      req.SubjectID,
		Title:          req.Title,
		LessonType:     model.LessonTypeNotes,
		AudioFileName:  req.Filename,
		AudioObjectKey: key,
		AudioSize:      int64(len(req.Document)),
		Metadata: model.ProcessingMetadata{
			OriginalFileName: req.Filename,
			FileSize:         int64(len(req.Document)),
			StartedAt:        time.Now().UTC(),
		},
	}
	if err := r.lessons.Create(ctx, lesson); err != nil {
		r.cleanupObject(key, model.LessonTypeNotes)
		return nil, &Error{Stage: StageCreatingRecord, Err: fmt.Errorf("failed to create lesson: %w", err)}
	}

	report(35, "Extracting text...")
	if r.notes == nil {
		return nil, r.fail(ctx, lesson, StageExtracting, fmt.Errorf("notes extraction not configured"))
	}
	text, err := r.notes.ExtractText(req.Document)
	if err != nil {
		return nil, r.fail(ctx, lesson, StageExtracting, err)
	}
	// Extracted text is exact, not recognized speech.
	transcription := genai.Result[genai.TranscriptionResult]{
		Value:  genai.TranscriptionResult{Text: text, Confidence: 1.0},
		Source: genai.SourceModel,
	}
	return r.derive(ctx, lesson, transcription, report)
}

// ProcessUploaded resumes a queued lesson from the worker: the upload and
// row creation already happened in the API process.
func (r *Runner) ProcessUploaded(ctx context.Context, lessonID string, report ProgressFunc) (*model.Lesson, error) {
	lesson, err := r.lessons.Get(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson %s: %w", lessonID, err)
	}
	if lesson.Status == model.StatusCompleted {
		return lesson, nil
	}
	data, err := r.objects.DownloadAudio(ctx, lesson.AudioObjectKey)
	if err != nil {
		return nil, r.fail(ctx, lesson, StageTranscribing, fmt.Errorf("download audio: %w", err))
	}
	mimeType, ok := audio.MIMEForFilename(lesson.AudioFileName)
	if !ok {
		mimeType = "audio/mp3"
	}
	return r.Finish(ctx, lesson, data, mimeType, report)
}

// generated bundles the three derived artifacts plus how many of them came
// from the parse fallback.
type generated struct {
	summary   genai.SummaryResult
	quiz      genai.QuizResult
	mindMap   genai.MindMapResult
	fallbacks int
}

func (r *Runner) derive(ctx context.Context, lesson *model.Lesson, transcription genai.Result[genai.TranscriptionResult], report ProgressFunc) (*model.Lesson, error) {
	transcript := transcription.Value.Text

	var gen generated
	if transcription.Source == genai.SourceFallback {
		gen.fallbacks++
	}

	var err error
	if r.opts.ParallelGeneration {
		err = r.generateParallel(ctx, transcript, &gen, report)
	} else {
		err = r.generateSequential(ctx, transcript, &gen, report)
	}
	if err != nil {
		return nil, r.fail(ctx, lesson, stageOf(err), err)
	}

	report(95, "Saving results...")
	now := time.Now().UTC()
	meta := lesson.Metadata
	meta.CompletedAt = &now
	meta.TranscriptionConfidence = transcription.Value.Confidence
	meta.SummaryKeyPoints = len(gen.summary.KeyPoints)
	meta.QuizQuestions = len(gen.quiz.Questions)
	meta.MindMapNodes = len(gen.mindMap.Nodes)
	meta.FallbackArtifacts = gen.fallbacks

	results := model.LessonResults{
		Transcript:           transcript,
		TranscriptConfidence: transcription.Value.Confidence,
		Summary:              gen.summary.Summary,
		KeyPoints:            gen.summary.KeyPoints,
		Concepts:             gen.summary.Concepts,
		EstimatedReadingTime: gen.summary.EstimatedReadingTime,
		Metadata:             meta,
	}

	// Derived rows go in before the status flip; a persist failure rolls
	// them back so an errored lesson never has quiz or mind-map rows.
	if len(gen.quiz.Questions) > 0 {
		quiz := &model.Quiz{
			ID:            uuid.NewString(),
			LessonID:      lesson.ID,
			SubjectID:     lesson.SubjectID,
			UserID:        lesson.UserID,
			Title:         gen.quiz.Title,
			Description:   gen.quiz.Description,
			Questions:     gen.quiz.Questions,
			Difficulty:    r.opts.QuizDifficulty,
			EstimatedTime: gen.quiz.EstimatedTime,
		}
		if err := r.quizzes.Create(ctx, quiz); err != nil {
			return nil, r.fail(ctx, lesson, StagePersisting, fmt.Errorf("failed to save quiz: %w", err))
		}
	}
	if len(gen.mindMap.Nodes) > 0 {
		mindMap := &model.MindMap{
			ID:             uuid.NewString(),
			LessonID:       lesson.ID,
			SubjectID:      lesson.SubjectID,
			UserID:         lesson.UserID,
			Title:          gen.mindMap.Title,
			CentralConcept: gen.mindMap.CentralConcept,
			Nodes:          gen.mindMap.Nodes,
			Themes:         gen.mindMap.Themes,
		}
		if err := r.mindmaps.Create(ctx, mindMap); err != nil {
			r.cleanupDerivedRows(lesson.ID)
			return nil, r.fail(ctx, lesson, StagePersisting, fmt.Errorf("failed to save mind map: %w", err))
		}
	}
	if err := r.lessons.CompleteProcessing(ctx, lesson.ID, results); err != nil {
		r.cleanupDerivedRows(lesson.ID)
		return nil, r.fail(ctx, lesson, StagePersisting, fmt.Errorf("failed to update lesson: %w", err))
	}

	report(100, "Processing complete!")
	updated, err := r.lessons.Get(ctx, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("reload lesson: %w", err)
	}
	r.log.Info("lesson processed",
		"lesson_id", lesson.ID,
		"questions", len(gen.quiz.Questions),
		"nodes", len(gen.mindMap.Nodes),
		"fallbacks", gen.fallbacks)
	return updated, nil
}

func (r *Runner) generateSequential(ctx context.Context, transcript string, gen *generated, report ProgressFunc) error {
	report(55, "Generating summary...")
	summary, err := r.gen.GenerateSummary(ctx, transcript)
	if err != nil {
		return &Error{Stage: StageSummarizing, Err: err}
	}
	gen.summary = summary.Value
	if summary.Source == genai.SourceFallback {
		gen.fallbacks++
	}

	report(75, "Creating quiz questions...")
	quiz, err := r.gen.GenerateQuiz(ctx, transcript, r.opts.QuizDifficulty, r.opts.QuizQuestionCount)
	if err != nil {
		return &Error{Stage: StageGeneratingQuiz, Err: err}
	}
	gen.quiz = quiz.Value
	if quiz.Source == genai.SourceFallback {
		gen.fallbacks++
	}

	report(85, "Generating mind map...")
	mindMap, err := r.gen.GenerateMindMap(ctx, transcript)
	if err != nil {
		return &Error{Stage: StageGeneratingMindMap, Err: err}
	}
	gen.mindMap = mindMap.Value
	if mindMap.Source == genai.SourceFallback {
		gen.fallbacks++
	}
	return nil
}

// generateParallel fans the three independent generations out and joins
// before persistence. Checkpoints are still emitted in the canonical order
// so observers see the same sequence as a sequential run.
func (r *Runner) generateParallel(ctx context.Context, transcript string, gen *generated, report ProgressFunc) error {
	report(55, "Generating summary...")
	var (
		summary genai.Result[genai.SummaryResult]
		quiz    genai.Result[genai.QuizResult]
		mindMap genai.Result[genai.MindMapResult]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.gen.GenerateSummary(gctx, transcript)
		if err != nil {
			return &Error{Stage: StageSummarizing, Err: err}
		}
		summary = res
		return nil
	})
	g.Go(func() error {
		res, err := r.gen.GenerateQuiz(gctx, transcript, r.opts.QuizDifficulty, r.opts.QuizQuestionCount)
		if err != nil {
			return &Error{Stage: StageGeneratingQuiz, Err: err}
		}
		quiz = res
		return nil
	})
	g.Go(func() error {
		res, err := r.gen.GenerateMindMap(gctx, transcript)
		if err != nil {
			return &Error{Stage: StageGeneratingMindMap, Err: err}
		}
		mindMap = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	report(75, "Creating quiz questions...")
	report(85, "Generating mind map...")

	gen.summary = summary.Value
	gen.quiz = quiz.Value
	gen.mindMap = mindMap.Value
	for _, fb := range []bool{
		summary.Source == genai.SourceFallback,
		quiz.Source == genai.SourceFallback,
		mindMap.Source == genai.SourceFallback,
	} {
		if fb {
			gen.fallbacks++
		}
	}
	return nil
}

// fail records the terminal state: the lesson row is marked error (never
// left stuck in processing) and the uploaded object removed best-effort.
func (r *Runner) fail(ctx context.Context, lesson *model.Lesson, stage Stage, err error) error {
	r.log.Error("pipeline failed", "lesson_id", lesson.ID, "stage", string(stage), "error", err)
	if markErr := r.lessons.MarkFailed(ctx, lesson.ID, err.Error()); markErr != nil {
		r.log.Error("mark lesson failed", "lesson_id", lesson.ID, "error", markErr)
	}
	if lesson.AudioObjectKey != "" {
		r.cleanupObject(lesson.AudioObjectKey, lesson.LessonType)
	}
	if perr, okCast := err.(*Error); okCast {
		return perr
	}
	return &Error{Stage: stage, Err: err}
}

func (r *Runner) cleanupObject(key string, lessonType model.LessonType) {
	// Detached from the caller's context so compensation still runs when
	// the request was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	remove := r.objects.Delete
	if lessonType == model.LessonTypeNotes {
		remove = r.objects.DeleteNotes
	}
	if err := remove(ctx, key); err != nil {
		r.log.Warn("cleanup uploaded object", "key", key, "error", err)
	}
}

// cleanupDerivedRows rolls back quiz and mind-map rows after a persist
// failure, best effort.
func (r *Runner) cleanupDerivedRows(lessonID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.quizzes.DeleteByLesson(ctx, lessonID); err != nil {
		r.log.Warn("cleanup quiz rows", "lesson_id", lessonID, "error", err)
	}
	if err := r.mindmaps.DeleteByLesson(ctx, lessonID); err != nil {
		r.log.Warn("cleanup mind map rows", "lesson_id", lessonID, "error", err)
	}
}

func stageOf(err error) Stage {
	if perr, okCast := err.(*Error); okCast {
		return perr.Stage
	}
	return StagePersisting
}

func nonNil(report ProgressFunc) ProgressFunc {
	if report == nil {
		return func(int, string) {}
	}
	return report
}
