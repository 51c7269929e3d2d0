package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pathlight/pathlight/internal/store"
)

// startRedis spins up a throwaway redis and returns a connected client.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Endpoint() error = %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDueCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	cache := store.NewDueCache(startRedis(t))
	ctx := context.Background()
	now := time.Now()

	for id, offset := range map[string]time.Duration{
		"kp-overdue": -24 * time.Hour,
		"kp-today":   -time.Hour,
		"kp-future":  72 * time.Hour,
	} {
		if err := cache.SetDue(ctx, "u1", id, now.Add(offset)); err != nil {
			t.Fatalf("SetDue() error = %v", err)
		}
	}

	ids, err := cache.DueBefore(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DueBefore() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "kp-overdue" || ids[1] != "kp-today" {
		t.Errorf("DueBefore() = %v, want [kp-overdue kp-today] soonest first", ids)
	}

	// Moving a due date re-scores the member instead of duplicating it.
	if err := cache.SetDue(ctx, "u1", "kp-today", now.Add(48*time.Hour)); err != nil {
		t.Fatalf("SetDue() error = %v", err)
	}
	ids, err = cache.DueBefore(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DueBefore() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "kp-overdue" {
		t.Errorf("DueBefore() = %v, want [kp-overdue] after reschedule", ids)
	}

	if err := cache.Remove(ctx, "u1", "kp-overdue"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	ids, err = cache.DueBefore(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DueBefore() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("DueBefore() = %v, want empty after remove", ids)
	}

	// Queues are per user.
	if err := cache.SetDue(ctx, "u2", "kp-a", now.Add(-time.Hour)); err != nil {
		t.Fatalf("SetDue() error = %v", err)
	}
	ids, err = cache.DueBefore(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DueBefore() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("DueBefore(u1) = %v, must not see u2's queue", ids)
	}
}

func TestDueCache_Rebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	cache := store.NewDueCache(startRedis(t))
	ctx := context.Background()
	now := time.Now()

	if err := cache.SetDue(ctx, "u1", "kp-stale", now.Add(-time.Hour)); err != nil {
		t.Fatalf("SetDue() error = %v", err)
	}

	err := cache.Rebuild(ctx, "u1", map[string]time.Time{
		"kp-a": now.Add(-2 * time.Hour),
		"kp-b": now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	ids, err := cache.DueBefore(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DueBefore() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "kp-a" {
		t.Errorf("DueBefore() = %v, want [kp-a]; rebuild must drop stale members", ids)
	}
}
