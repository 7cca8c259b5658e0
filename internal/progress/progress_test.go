package progress

import (
	"context"
	"testing"
)

func TestMemoryTrackerRoundTrip(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	if _, found, err := tr.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get on empty tracker: found=%v err=%v", found, err)
	}

	if err := tr.Set(ctx, Snapshot{LessonID: "l1", Processing: true, Percent: 35, Step: "Transcribing audio..."}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	snap, found, err := tr.Get(ctx, "l1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if snap.Percent != 35 || snap.Step != "Transcribing audio..." || !snap.Processing {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}

	if err := tr.Clear(ctx, "l1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found, _ := tr.Get(ctx, "l1"); found {
		t.Fatal("snapshot survived Clear")
	}
}

func TestMemoryTrackerMonotonicPercent(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	steps := []int{0, 10, 25, 35, 55, 75, 85, 95, 100}
	for _, p := range steps {
		if err := tr.Set(ctx, Snapshot{LessonID: "l1", Percent: p}); err != nil {
			t.Fatalf("Set(%d): %v", p, err)
		}
	}
	// A late lower write must not move progress backwards.
	if err := tr.Set(ctx, Snapshot{LessonID: "l1", Percent: 55}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	snap, _, _ := tr.Get(ctx, "l1")
	if snap.Percent != 100 {
		t.Fatalf("percent = %d, want 100", snap.Percent)
	}
}

func TestMemoryTrackerIndependentLessons(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()
	_ = tr.Set(ctx, Snapshot{LessonID: "a", Percent: 95})
	_ = tr.Set(ctx, Snapshot{LessonID: "b", Percent: 10})
	snap, _, _ := tr.Get(ctx, "b")
	if snap.Percent != 10 {
		t.Fatalf("lesson b percent = %d, clamp leaked across lessons", snap.Percent)
	}
}

func TestClampPercentBounds(t *testing.T) {
	next := clampPercent(Snapshot{}, Snapshot{LessonID: "x", Percent: -5})
	if next.Percent != 0 {
		t.Fatalf("negative percent not clamped: %d", next.Percent)
	}
	next = clampPercent(Snapshot{}, Snapshot{LessonID: "x", Percent: 150})
	if next.Percent != 100 {
		t.Fatalf("overshoot not clamped: %d", next.Percent)
	}
}
