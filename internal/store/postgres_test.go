package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
	"github.com/pathlight/pathlight/internal/store"
)

// startPostgres spins up a throwaway postgres and returns a migrated pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pathlight_test"),
		tcpostgres.WithUsername("pathlight"),
		tcpostgres.WithPassword("pathlight"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if err := store.Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return pool
}

func TestPostgresProgressStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool := startPostgres(t)
	s := store.NewPostgresProgressStore(pool)
	ctx := context.Background()

	if _, err := s.Get(ctx, "u1", "kp1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	rec := srs.NewRecord("u1", "kp1")
	rec.Mastery = srs.MasteryLearning
	rec.Repetitions = 1
	rec.IntervalDays = 1
	rec.DueAt = time.Now().AddDate(0, 0, 1).UTC()
	rec.LastReviewedAt = time.Now().UTC()

	saved, err := s.Put(ctx, rec)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("Version = %d, want 1 after insert", saved.Version)
	}

	got, err := s.Get(ctx, "u1", "kp1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Mastery != srs.MasteryLearning || got.Repetitions != 1 || got.Version != 1 {
		t.Errorf("Get() = %+v, roundtrip mismatch", got)
	}
	if got.DueAt.IsZero() {
		t.Error("Get() lost due_at")
	}

	// Stale version must lose.
	stale := saved
	saved.Repetitions = 2
	if _, err := s.Put(ctx, saved); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	stale.Repetitions = 9
	if _, err := s.Put(ctx, stale); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Put(stale) error = %v, want ErrVersionConflict", err)
	}

	// Re-inserting an existing row at version 0 must also lose.
	dup := srs.NewRecord("u1", "kp1")
	if _, err := s.Put(ctx, dup); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("Put(dup) error = %v, want ErrVersionConflict", err)
	}

	if _, err := s.Put(ctx, srs.NewRecord("u1", "kp2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	snap, err := s.MasterySnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("MasterySnapshot() error = %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("MasterySnapshot() = %d entries, want 2", len(snap))
	}
}

func TestPostgresSubmissionStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool := startPostgres(t)
	s := store.NewPostgresSubmissionStore(pool)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := s.Add(ctx, store.Submission{
			ID:         uuid.NewString(),
			UserID:     "u1",
			QuestionID: "q1",
			RawAnswer:  "B",
			IsCorrect:  i%2 == 0,
			Score:      float64(i),
			GradedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	subs, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("ListByUser() = %d submissions, want 3", len(subs))
	}
	for i := 1; i < len(subs); i++ {
		if subs[i].GradedAt.Before(subs[i-1].GradedAt) {
			t.Errorf("submissions out of order at %d", i)
		}
	}
	if subs[0].Status != store.StatusGraded {
		t.Errorf("Status = %q, want default %q", subs[0].Status, store.StatusGraded)
	}
}

func TestPostgresUnlockStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool := startPostgres(t)
	s := store.NewPostgresUnlockStore(pool)
	ctx := context.Background()

	ev := achievement.UnlockEvent{
		ID:         uuid.NewString(),
		RuleID:     "streak-7",
		UserID:     "u1",
		UnlockedAt: time.Now().UTC(),
	}
	if err := s.Append(ctx, ev); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	ev.ID = uuid.NewString()
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
