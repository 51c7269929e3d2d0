package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
	"github.com/pathlight/pathlight/internal/store"
)

func TestMemoryProgressStore_GetMissing(t *testing.T) {
	s := store.NewMemoryProgressStore()

	_, err := s.Get(context.Background(), "u1", "kp1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryProgressStore_PutAssignsVersion(t *testing.T) {
	s := store.NewMemoryProgressStore()

	rec := srs.NewRecord("u1", "kp1")
	saved, err := s.Put(context.Background(), rec)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("Version = %d, want 1 after insert", saved.Version)
	}

	saved.Repetitions = 1
	saved, err = s.Put(context.Background(), saved)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if saved.Version != 2 {
		t.Errorf("Version = %d, want 2 after update", saved.Version)
	}
}

func TestMemoryProgressStore_VersionConflict(t *testing.T) {
	s := store.NewMemoryProgressStore()
	ctx := context.Background()

	first, err := s.Put(ctx, srs.NewRecord("u1", "kp1"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Two readers race; the second write must lose.
	a, b := first, first
	a.Repetitions = 1
	if _, err := s.Put(ctx, a); err != nil {
		t.Fatalf("Put(a) error = %v", err)
	}
	b.Repetitions = 2
	if _, err := s.Put(ctx, b); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Put(b) error = %v, want ErrVersionConflict", err)
	}
}

func TestMemoryProgressStore_InsertRequiresVersionZero(t *testing.T) {
	s := store.NewMemoryProgressStore()

	rec := srs.NewRecord("u1", "kp1")
	rec.Version = 3
	if _, err := s.Put(context.Background(), rec); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Put() error = %v, want ErrVersionConflict for phantom version", err)
	}
}

func TestMemoryProgressStore_MasterySnapshot(t *testing.T) {
	s := store.NewMemoryProgressStore()
	ctx := context.Background()

	recA := srs.NewRecord("u1", "kp-a")
	recA.Mastery = srs.MasteryProficient
	recB := srs.NewRecord("u1", "kp-b")
	recB.Mastery = srs.MasteryLearning
	recOther := srs.NewRecord("u2", "kp-a")
	recOther.Mastery = srs.MasteryMastered

	for _, rec := range []srs.ProgressRecord{recA, recB, recOther} {
		if _, err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	snap, err := s.MasterySnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("MasterySnapshot() error = %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot = %d entries, want 2", len(snap))
	}
	if snap["kp-a"] != srs.MasteryProficient || snap["kp-b"] != srs.MasteryLearning {
		t.Errorf("snapshot = %v, wrong mastery levels", snap)
	}
}

func TestMemorySubmissionStore_AppendOnly(t *testing.T) {
	s := store.NewMemorySubmissionStore()
	ctx := context.Background()

	for i, id := range []string{"s1", "s2"} {
		err := s.Add(ctx, store.Submission{
			ID:         id,
			UserID:     "u1",
			QuestionID: "q1",
			IsCorrect:  i == 0,
			GradedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	subs, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("ListByUser() = %d submissions, want 2 (one row per attempt)", len(subs))
	}

	if err := s.Add(ctx, store.Submission{UserID: "u1"}); err == nil {
		t.Error("Add() should reject a submission without an id")
	}
}

func TestMemoryUnlockStore_IdempotentAppend(t *testing.T) {
	s := store.NewMemoryUnlockStore()
	ctx := context.Background()

	ev := achievement.UnlockEvent{ID: "ev1", RuleID: "streak-7", UserID: "u1", UnlockedAt: time.Now()}
	if err := s.Append(ctx, ev); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	// Same (user, rule) again: silently ignored.
	ev.ID = "ev2"
	if err := s.Append(ctx, ev); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("ListByUser() = %d events, want 1 (unlocks are once-only)", len(events))
	}
}
