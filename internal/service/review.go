// Package service ties the engine's pure components to storage. Each service
// owns one user-facing operation and all of its persistence choreography.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pathlight/pathlight/internal/srs"
	"github.com/pathlight/pathlight/internal/store"
)

// ReviewService applies graded reviews to a user's progress records.
type ReviewService struct {
	progress  store.ProgressStore
	scheduler *srs.Scheduler
	due       *store.DueCache
	now       func() time.Time
}

// NewReviewService creates a review service. due may be nil when no cache is
// configured.
func NewReviewService(progress store.ProgressStore, scheduler *srs.Scheduler, due *store.DueCache) *ReviewService {
	return &ReviewService{
		progress:  progress,
		scheduler: scheduler,
		due:       due,
		now:       time.Now,
	}
}

// SubmitReview records one review of a knowledge point and returns the
// updated record. A concurrent update is retried once against the fresh
// record; a second conflict surfaces ErrVersionConflict to the caller.
func (s *ReviewService) SubmitReview(ctx context.Context, userID, knowledgePointID string, quality int) (srs.ProgressRecord, error) {
	saved, err := s.reviewOnce(ctx, userID, knowledgePointID, quality)
	if errors.Is(err, store.ErrVersionConflict) {
		saved, err = s.reviewOnce(ctx, userID, knowledgePointID, quality)
	}
	if err != nil {
		return srs.ProgressRecord{}, err
	}

	// The due cache is advisory; a cache failure must not fail the review.
	if s.due != nil {
		if err := s.due.SetDue(ctx, userID, knowledgePointID, saved.DueAt); err != nil {
			slog.Warn("due cache update failed",
				"user_id", userID,
				"knowledge_point_id", knowledgePointID,
				"error", err,
			)
		}
	}
	return saved, nil
}

func (s *ReviewService) reviewOnce(ctx context.Context, userID, knowledgePointID string, quality int) (srs.ProgressRecord, error) {
	rec, err := s.progress.Get(ctx, userID, knowledgePointID)
	if errors.Is(err, store.ErrNotFound) {
		rec = srs.NewRecord(userID, knowledgePointID)
	} else if err != nil {
		return srs.ProgressRecord{}, fmt.Errorf("loading progress: %w", err)
	}

	next, err := s.scheduler.Schedule(rec, quality, s.now())
	if err != nil {
		return srs.ProgressRecord{}, err
	}
	return s.progress.Put(ctx, next)
}

// DueForReview lists the knowledge points due at or before now, from the
// cache when one is configured, otherwise from the progress records.
func (s *ReviewService) DueForReview(ctx context.Context, userID string) ([]string, error) {
	now := s.now()
	if s.due != nil {
		ids, err := s.due.DueBefore(ctx, userID, now)
		if err == nil {
			return ids, nil
		}
		slog.Warn("due cache read failed, falling back to store",
			"user_id", userID,
			"error", err,
		)
	}

	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	var ids []string
	for _, rec := range records {
		if !rec.DueAt.IsZero() && !rec.DueAt.After(now) {
			ids = append(ids, rec.KnowledgePointID)
		}
	}
	return ids, nil
}
