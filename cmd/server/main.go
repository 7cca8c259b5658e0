// Package main starts the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/studyai/studyai/internal/api"
	"github.com/studyai/studyai/internal/config"
	"github.com/studyai/studyai/internal/dashboard"
	"github.com/studyai/studyai/internal/database"
	"github.com/studyai/studyai/internal/genai"
	"github.com/studyai/studyai/internal/mediastore"
	"github.com/studyai/studyai/internal/notes"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/pkg/logger"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/queue"
	"github.com/studyai/studyai/internal/repository"
	"github.com/studyai/studyai/internal/selftest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	if !cfg.AIConfigured() {
		lg.Warn("generative endpoint not configured, lesson processing will fail")
	}
	if !cfg.StorageConfigured() {
		lg.Warn("object storage credentials missing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("connect database", "error", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		lg.Fatal("ensure schema", "error", err)
	}

	lessons := repository.NewLessonRepository(pool)
	quizzes := repository.NewQuizRepository(pool)
	mindmaps := repository.NewMindMapRepository(pool)
	subjects := repository.NewSubjectRepository(pool)

	store, err := mediastore.New(cfg)
	if err != nil {
		lg.Fatal("init storage", "error", err)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		lg.Fatal("ensure buckets", "error", err)
	}

	ai := genai.New(genai.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	}, lg)

	runner := pipeline.NewRunner(store, lessons, quizzes, mindmaps, ai, notes.NewExtractor(), pipeline.Options{
		QuizDifficulty:     cfg.QuizDifficulty,
		QuizQuestionCount:  cfg.QuizQuestionCount,
		ParallelGeneration: cfg.ParallelGeneration,
	}, lg)

	var (
		tracker     progress.Tracker
		enqueue     api.EnqueueFunc
		redisPinger selftest.Pinger
	)
	if cfg.QueueEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		tracker = progress.NewRedisTracker(rdb)
		redisPinger = pingAdapter{rdb}

		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		enqueue = func(ctx context.Context, lessonID string) error {
			return queue.EnqueueProcess(ctx, client, queue.ProcessPayload{LessonID: lessonID})
		}
		lg.Info("background processing enabled", "redis", cfg.RedisAddr)
	} else {
		tracker = progress.NewMemoryTracker()
		lg.Info("background processing disabled, lessons process in request")
	}

	checks := selftest.New(pool, redisPinger, store, ai, cfg.SelfTestProbe)

	srv := api.New(api.Deps{
		Config:   cfg,
		Lessons:  lessons,
		Quizzes:  quizzes,
		MindMaps: mindmaps,
		Signer:   store,
		Pipeline: runner,
		Tutor:    ai,
		Overview: dashboard.NewAggregator(subjects, quizzes),
		SelfTest: checks,
		Tracker:  tracker,
		Enqueue:  enqueue,
		Logger:   lg,
	})
	if err := srv.Run(ctx); err != nil {
		lg.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type pingAdapter struct {
	client *redis.Client
}

func (p pingAdapter) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
