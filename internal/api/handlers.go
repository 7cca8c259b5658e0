package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studyai/studyai/internal/audio"
	"github.com/studyai/studyai/internal/genai"
	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/repository"
	"github.com/studyai/studyai/internal/selftest"
)

const multipartMemory = 32 << 20

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

// handleUploadAudio accepts a multipart audio upload, validates it before
// touching storage or the database, and either finishes processing in a
// background goroutine or hands the lesson to the worker queue.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing user id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if mt, found := audio.MIMEForFilename(header.Filename); found {
			mimeType = mt
		}
	}
	// Reject before any storage or database work.
	if err := audio.Validate(header.Size, mimeType); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}
	req := pipeline.AudioRequest{
		Audio:     data,
		Filename:  header.Filename,
		MIMEType:  mimeType,
		Title:     title,
		SubjectID: r.FormValue("subjectId"),
		UserID:    uid,
	}

	lesson, err := s.proc.PrepareAudio(r.Context(), req, nil)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.publishProgress(r.Context(), lesson.ID, 25, "Creating lesson record...")

	if s.enqueue != nil {
		if err := s.enqueue(r.Context(), lesson.ID); err != nil {
			s.log.Error("enqueue lesson", "lesson_id", lesson.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to queue processing")
			return
		}
	} else {
		go s.finishInBackground(lesson, data, mimeType)
	}
	respondJSON(w, http.StatusAccepted, lesson)
}

// handleUploadNotes accepts a lecture-notes PDF. Notes never go through the
// worker queue; extraction and generation run in the request.
func (s *Server) handleUploadNotes(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing user id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxNotesBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing document file")
		return
	}
	defer file.Close()
	if header.Size > s.cfg.MaxNotesBytes {
		respondError(w, http.StatusBadRequest, "document exceeds size limit")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		respondError(w, http.StatusBadRequest, "only PDF documents supported")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}
	req := pipeline.NotesRequest{
		Document:  data,
		Filename:  header.Filename,
		Title:     title,
		SubjectID: r.FormValue("subjectId"),
		UserID:    uid,
	}

	// Notes documents are small enough to process in the request; the
	// caller gets the finished lesson back.
	lesson, err := s.proc.ProcessNotes(r.Context(), req, nil)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lesson)
}

func (s *Server) finishInBackground(lesson *model.Lesson, data []byte, mimeType string) {
	ctx := context.Background()
	lastPercent := 25
	report := func(percent int, step string) {
		lastPercent = percent
		s.publishProgress(ctx, lesson.ID, percent, step)
	}
	if _, err := s.proc.Finish(ctx, lesson, data, mimeType, report); err != nil {
		s.publishFailure(ctx, lesson.ID, lastPercent, err)
	}
}

func (s *Server) publishProgress(ctx context.Context, lessonID string, percent int, step string) {
	snap := progress.Snapshot{
		LessonID:   lessonID,
		Processing: percent < 100,
		Percent:    percent,
		Step:       step,
	}
	if err := s.tracker.Set(ctx, snap); err != nil {
		s.log.Warn("publish progress", "lesson_id", lessonID, "error", err)
	}
}

// publishFailure records the terminal snapshot of a failed run. 100 is
// reserved for completion, so the snapshot keeps the checkpoint the run
// reached.
func (s *Server) publishFailure(ctx context.Context, lessonID string, percent int, cause error) {
	snap := progress.Snapshot{
		LessonID: lessonID,
		Percent:  percent,
		Error:    cause.Error(),
	}
	if err := s.tracker.Set(ctx, snap); err != nil {
		s.log.Warn("publish failure snapshot", "lesson_id", lessonID, "error", err)
	}
}

func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var verr *audio.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Reason)
		return
	}
	var perr *pipeline.Error
	if errors.As(err, &perr) && perr.Stage == pipeline.StageValidating {
		respondError(w, http.StatusBadRequest, perr.Err.Error())
		return
	}
	s.log.Error("upload failed", "error", err)
	respondError(w, http.StatusInternalServerError, "processing failed")
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing user id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	lessons, err := s.lessons.ListByUser(r.Context(), uid, limit)
	if err != nil {
		s.log.Error("list lessons", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list lessons")
		return
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	respondJSON(w, http.StatusOK, lessons)
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := s.lessons.Get(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lesson not found")
			return
		}
		s.log.Error("get lesson", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load lesson")
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

// handleLessonProgress serves the polling endpoint. When no live snapshot
// exists the lesson row decides: a completed or errored lesson still gets a
// terminal snapshot so late pollers see the outcome.
func (s *Server) handleLessonProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "lessonID")
	snap, found, err := s.tracker.Get(r.Context(), id)
	if err != nil {
		s.log.Error("load progress", "lesson_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	if found {
		respondJSON(w, http.StatusOK, snap)
		return
	}
	lesson, err := s.lessons.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lesson not found")
			return
		}
		s.log.Error("get lesson", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load lesson")
		return
	}
	snap = progress.Snapshot{LessonID: id}
	switch lesson.Status {
	case model.StatusCompleted:
		snap.Percent = 100
		snap.Step = "Processing complete!"
	case model.StatusError:
		// Only completion reads 100; the error field marks termination.
		if lesson.ProcessingError != nil {
			snap.Error = *lesson.ProcessingError
		}
	default:
		snap.Processing = true
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAudioURL(w http.ResponseWriter, r *http.Request) {
	lesson, err := s.lessons.Get(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lesson not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load lesson")
		return
	}
	if lesson.AudioObjectKey == "" {
		respondError(w, http.StatusNotFound, "lesson has no stored audio")
		return
	}
	url, err := s.signer.PresignAudioURL(r.Context(), lesson.AudioObjectKey, s.cfg.SignedURLTTL)
	if err != nil {
		s.log.Error("presign audio", "lesson_id", lesson.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to generate url")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.quizzes.GetByLesson(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "quiz not found")
			return
		}
		s.log.Error("get quiz", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load quiz")
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleGetMindMap(w http.ResponseWriter, r *http.Request) {
	mindMap, err := s.mindmaps.GetByLesson(r.Context(), chi.URLParam(r, "lessonID"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "mind map not found")
			return
		}
		s.log.Error("get mind map", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load mind map")
		return
	}
	respondJSON(w, http.StatusOK, mindMap)
}

type chatRequest struct {
	Message          string              `json:"message"`
	LessonID         string              `json:"lessonId,omitempty"`
	SubjectID        string              `json:"subjectId,omitempty"`
	PreviousMessages []genai.ChatMessage `json:"previousMessages,omitempty"`
}

func (s *Server) handleTutorChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	chatCtx := &genai.ChatContext{
		LessonID:         req.LessonID,
		SubjectID:        req.SubjectID,
		PreviousMessages: req.PreviousMessages,
	}
	if req.LessonID != "" {
		lesson, err := s.lessons.Get(r.Context(), req.LessonID)
		if err == nil && lesson.Transcript != nil {
			chatCtx.Transcript = *lesson.Transcript
		}
	}
	res, err := s.tutor.TutorChat(r.Context(), req.Message, chatCtx)
	if err != nil {
		s.log.Error("tutor chat", "error", err)
		respondError(w, http.StatusBadGateway, "tutor unavailable")
		return
	}
	respondJSON(w, http.StatusOK, res.Value)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var analytics genai.StudyAnalytics
	if err := json.NewDecoder(r.Body).Decode(&analytics); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.tutor.GenerateStudyInsights(r.Context(), analytics)
	if err != nil {
		s.log.Error("study insights", "error", err)
		respondError(w, http.StatusBadGateway, "insights unavailable")
		return
	}
	respondJSON(w, http.StatusOK, res.Value)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing user id")
		return
	}
	overview, err := s.overview.Overview(r.Context(), uid)
	if err != nil {
		s.log.Error("dashboard", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	results := s.selftest.Run(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"results":  results,
		"allReady": selftest.AllReady(results),
	})
}
