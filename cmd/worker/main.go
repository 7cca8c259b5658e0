// Package main starts the background lesson processor.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/studyai/studyai/internal/config"
	"github.com/studyai/studyai/internal/database"
	"github.com/studyai/studyai/internal/genai"
	"github.com/studyai/studyai/internal/mediastore"
	"github.com/studyai/studyai/internal/notes"
	"github.com/studyai/studyai/internal/pipeline"
	"github.com/studyai/studyai/internal/pkg/logger"
	"github.com/studyai/studyai/internal/progress"
	"github.com/studyai/studyai/internal/repository"
	"github.com/studyai/studyai/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.QueueEnabled() {
		log.Fatal("worker requires STUDYAI_REDIS_ADDR")
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	if !cfg.AIConfigured() {
		lg.Warn("generative endpoint not configured, lesson processing will fail")
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	tracker := progress.NewRedisTracker(rdb)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.ProcessingPool,
	})
	processor := worker.NewProcessor(runner, tracker, lg)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	lg.Info("worker started", "concurrency", cfg.ProcessingPool)
	if err := server.Run(mux); err != nil {
		lg.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
