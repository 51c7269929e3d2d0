// Package store persists engine state: per-user progress records, the
// append-only submission log and the achievement unlock log. The engine
// itself never touches storage; services hand it explicit state and persist
// the results through these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
)

var (
	// ErrNotFound is returned for a missing record.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict signals a stale optimistic-lock write: another
	// writer updated the progress record since it was read.
	ErrVersionConflict = errors.New("progress record version conflict")
)

// Submission statuses.
const (
	StatusGraded              = "graded"
	StatusPendingManualReview = "pending_manual_review"
)

// Submission is one graded attempt. Append-only: one row per attempt, never
// updated or deleted.
type Submission struct {
	ID         string
	UserID     string
	QuestionID string
	RawAnswer  string
	IsCorrect  bool
	Score      float64
	Status     string
	GradedAt   time.Time
}

// ProgressStore persists per-(user, knowledge point) review state. Put uses
// the record's Version for optimistic locking: a Version of 0 inserts, any
// other value must match the stored row or the write fails with
// ErrVersionConflict. The caller is responsible for at-most-one concurrent
// update per (user, knowledge point) pair.
type ProgressStore interface {
	Get(ctx context.Context, userID, knowledgePointID string) (srs.ProgressRecord, error)
	Put(ctx context.Context, rec srs.ProgressRecord) (srs.ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]srs.ProgressRecord, error)
	MasterySnapshot(ctx context.Context, userID string) (map[string]srs.Mastery, error)
}

// SubmissionStore is the append-only attempt log.
type SubmissionStore interface {
	Add(ctx context.Context, sub Submission) error
	ListByUser(ctx context.Context, userID string) ([]Submission, error)
}

// UnlockStore is the append-only achievement unlock log. Append is
// idempotent per (user, rule): re-appending an already-unlocked pair is a
// no-op, never a duplicate.
type UnlockStore interface {
	Append(ctx context.Context, ev achievement.UnlockEvent) error
	ListByUser(ctx context.Context, userID string) ([]achievement.UnlockEvent, error)
}
