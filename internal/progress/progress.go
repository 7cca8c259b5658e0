// Package progress stores per-lesson processing state so the UI can poll a
// run that may be happening in another process.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the transient processing state of one pipeline invocation.
// It lives only for the duration of a run plus a grace period for polling.
type Snapshot struct {
	LessonID   string    `json:"lessonId"`
	Processing bool      `json:"isProcessing"`
	Percent    int       `json:"progress"`
	Step       string    `json:"currentStep"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Tracker stores and serves snapshots. Implementations keep Percent
// monotonically non-decreasing within one run.
type Tracker interface {
	Set(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, lessonID string) (Snapshot, bool, error)
	Clear(ctx context.Context, lessonID string) error
}

// clampPercent enforces monotonic progress against the previous snapshot.
func clampPercent(prev, next Snapshot) Snapshot {
	if prev.LessonID == next.LessonID && next.Percent < prev.Percent {
		next.Percent = prev.Percent
	}
	if next.Percent < 0 {
		next.Percent = 0
	}
	if next.Percent > 100 {
		next.Percent = 100
	}
	return next
}

// MemoryTracker keeps snapshots in process, for synchronous runs and tests.
type MemoryTracker struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

// NewMemoryTracker constructs an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{snaps: make(map[string]Snapshot)}
}

func (t *MemoryTracker) Set(_ context.Context, snap Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap.UpdatedAt = time.Now().UTC()
	t.snaps[snap.LessonID] = clampPercent(t.snaps[snap.LessonID], snap)
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, lessonID string) (Snapshot, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap, ok := t.snaps[lessonID]
	return snap, ok, nil
}

func (t *MemoryTracker) Clear(_ context.Context, lessonID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.snaps, lessonID)
	return nil
}

// RedisTracker stores snapshots in Redis so the API can observe worker runs.
// Each lesson has a single writer per invocation, so set-after-get is safe.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker constructs a tracker over an existing Redis client.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client, ttl: time.Hour}
}

func progressKey(lessonID string) string {
	return "studyai:progress:" + lessonID
}

func (t *RedisTracker) Set(ctx context.Context, snap Snapshot) error {
	prev, ok, err := t.Get(ctx, snap.LessonID)
	if err != nil {
		return err
	}
	if ok {
		snap = clampPercent(prev, snap)
	}
	snap.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := t.client.Set(ctx, progressKey(snap.LessonID), data, t.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, lessonID string) (Snapshot, bool, error) {
	data, err := t.client.Get(ctx, progressKey(lessonID)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (t *RedisTracker) Clear(ctx context.Context, lessonID string) error {
	if err := t.client.Del(ctx, progressKey(lessonID)).Err(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
