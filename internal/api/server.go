// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/studyai/studyai/internal/config"
	"github.com/studyai/studyai/internal/dashboard"
	"github.com/studyai/studyai/internal/genai"
	"github.com/studyai/studyai/internal/model"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/pkg/logger"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/selftest"
)

// LessonReader is the lesson lookup surface handlers need.
type LessonReader interface {
	Get(ctx context.Context, id string) (*model.Lesson, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Lesson, error)
}

// QuizReader serves generated quizzes.
type QuizReader interface {
	GetByLesson(ctx context.Context, lessonID string) (*model.Quiz, error)
}

// MindMapReader serves generated mind maps.
type MindMapReader interface {
	GetByLesson(ctx context.Context, lessonID string) (*model.MindMap, error)
}

// AudioSigner produces short-lived playback URLs.
type AudioSigner interface {
	PresignAudioURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Processor is the pipeline surface the upload handlers drive.
type Processor interface {
	PrepareAudio(ctx context.Context, req pipeline.AudioRequest, report pipeline.ProgressFunc) (*model.Lesson, error)
	Finish(ctx context.Context, lesson *model.Lesson, audioData []byte, mimeType string, report pipeline.ProgressFunc) (*model.Lesson, error)
	ProcessNotes(ctx context.Context, req pipeline.NotesRequest, report pipeline.ProgressFunc) (*model.Lesson, error)
}

// Tutor answers chat turns and generates study insights.
type Tutor interface {
	TutorChat(ctx context.Context, message string, chatCtx *genai.ChatContext) (genai.Result[genai.ChatResponse], error)
	GenerateStudyInsights(ctx context.Context, analytics genai.StudyAnalytics) (genai.Result[genai.StudyInsights], error)
}

// Overviewer builds the dashboard payload.
type Overviewer interface {
	Overview(ctx context.Context, userID string) (*dashboard.Overview, error)
}

// SelfTester runs the dependency probes.
type SelfTester interface {
	Run(ctx context.Context) []selftest.Result
}

// EnqueueFunc hands a prepared lesson to the background worker. Nil means
// processing happens synchronously in this process.
type EnqueueFunc func(ctx context.Context, lessonID string) error

// Server wires the handlers with their collaborators.
type Server struct {
	cfg      *config.Config
	lessons  LessonReader
	quizzes  QuizReader
	mindmaps MindMapReader
	signer   AudioSigner
	proc     Processor
	tutor    Tutor
	overview Overviewer
	selftest SelfTester
	tracker  progress.Tracker
	enqueue  EnqueueFunc
	log      *logger.Logger
	server   *http.Server
}

// Deps collects everything a Server needs.
type Deps struct {
	Config   *config.Config
	Lessons  LessonReader
	Quizzes  QuizReader
	MindMaps MindMapReader
	Signer   AudioSigner
	Pipeline Processor
	Tutor    Tutor
	Overview Overviewer
	SelfTest SelfTester
	Tracker  progress.Tracker
	Enqueue  EnqueueFunc
	Logger   *logger.Logger
}

// New constructs a Server.
func New(d Deps) *Server {
	return &Server{
		cfg:      d.Config,
		lessons:  d.Lessons,
		quizzes:  d.Quizzes,
		mindmaps: d.MindMaps,
		signer:   d.Signer,
		proc:     d.Pipeline,
		tutor:    d.Tutor,
		overview: d.Overview,
		selftest: d.SelfTest,
		tracker:  d.Tracker,
		enqueue:  d.Enqueue,
		log:      d.Logger,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/lessons", func(r chi.Router) {
			r.Post("/", s.handleUploadAudio)
			r.Post("/notes", s.handleUploadNotes)
			r.Get("/", s.handleListLessons)
			r.Route("/{lessonID}", func(r chi.Router) {
				r.Get("/", s.handleGetLesson)
				r.Get("/progress", s.handleLessonProgress)
				r.Get("/audio-url", s.handleAudioURL)
				r.Get("/quiz", s.handleGetQuiz)
				r.Get("/mindmap", s.handleGetMindMap)
			})
		})
		r.Post("/tutor/chat", s.handleTutorChat)
		r.Post("/insights", s.handleInsights)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/selftest", s.handleSelfTest)
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
