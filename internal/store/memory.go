package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
)

// MemoryProgressStore is an in-memory ProgressStore for tests and local
// runs.
type MemoryProgressStore struct {
	mu      sync.RWMutex
	records map[string]srs.ProgressRecord
}

// NewMemoryProgressStore creates an empty in-memory progress store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{records: make(map[string]srs.ProgressRecord)}
}

func progressKey(userID, kpID string) string {
	return userID + "\x00" + kpID
}

func (s *MemoryProgressStore) Get(_ context.Context, userID, knowledgePointID string) (srs.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[progressKey(userID, knowledgePointID)]
	if !ok {
		return srs.ProgressRecord{}, fmt.Errorf("progress for user %s point %s: %w", userID, knowledgePointID, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryProgressStore) Put(_ context.Context, rec srs.ProgressRecord) (srs.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey(rec.UserID, rec.KnowledgePointID)
	stored, exists := s.records[key]
	if !exists {
		if rec.Version != 0 {
			return srs.ProgressRecord{}, ErrVersionConflict
		}
		rec.Version = 1
		s.records[key] = rec
		return rec, nil
	}
	if stored.Version != rec.Version {
		return srs.ProgressRecord{}, ErrVersionConflict
	}
	rec.Version++
	s.records[key] = rec
	return rec, nil
}

func (s *MemoryProgressStore) ListByUser(_ context.Context, userID string) ([]srs.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []srs.ProgressRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryProgressStore) MasterySnapshot(_ context.Context, userID string) (map[string]srs.Mastery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]srs.Mastery)
	for _, rec := range s.records {
		if rec.UserID == userID {
			snap[rec.KnowledgePointID] = rec.Mastery
		}
	}
	return snap, nil
}

// MemorySubmissionStore is an in-memory SubmissionStore.
type MemorySubmissionStore struct {
	mu   sync.RWMutex
	subs []Submission
}

// NewMemorySubmissionStore creates an empty in-memory submission log.
func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{}
}

func (s *MemorySubmissionStore) Add(_ context.Context, sub Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission id is required")
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *MemorySubmissionStore) ListByUser(_ context.Context, userID string) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Submission
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// MemoryUnlockStore is an in-memory UnlockStore.
type MemoryUnlockStore struct {
	mu     sync.RWMutex
	events []achievement.UnlockEvent
	seen   map[string]struct{}
}

// NewMemoryUnlockStore creates an empty in-memory unlock log.
func NewMemoryUnlockStore() *MemoryUnlockStore {
	return &MemoryUnlockStore{seen: make(map[string]struct{})}
}

func (s *MemoryUnlockStore) Append(_ context.Context, ev achievement.UnlockEvent) error {
	if ev.RuleID == "" || ev.UserID == "" {
		return fmt.Errorf("unlock event requires rule_id and user_id")
	}
	key := ev.UserID + "\x00" + ev.RuleID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return nil // unlocks are once-only per (user, rule)
	}
	s.seen[key] = struct{}{}
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryUnlockStore) ListByUser(_ context.Context, userID string) ([]achievement.UnlockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []achievement.UnlockEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}
