package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/grading"
	"github.com/pathlight/pathlight/internal/grading/sandbox"
	"github.com/pathlight/pathlight/internal/stats"
	"github.com/pathlight/pathlight/internal/store"
)

// ErrUnknownQuestion is returned when a submission names a question id that
// is not in the bank.
var ErrUnknownQuestion = errors.New("unknown question")

// StudyTimeSource reports accumulated study minutes for a user. Session
// tracking lives outside the engine; this is the seam it plugs into.
type StudyTimeSource interface {
	TotalStudyMinutes(ctx context.Context, userID string) (int, error)
}

// GradeOutcome is the full result of grading one submission.
type GradeOutcome struct {
	Submission store.Submission
	Result     grading.Result
	Unlocked   []achievement.UnlockEvent
}

// GradeService grades submissions, logs them and evaluates achievements over
// the refreshed stats.
type GradeService struct {
	bank        *grading.Bank
	grader      *grading.Grader
	progress    store.ProgressStore
	submissions store.SubmissionStore
	unlocks     store.UnlockStore
	engine      *achievement.Engine
	studyTime   StudyTimeSource
	now         func() time.Time
	newID       func() string
}

// NewGradeService creates a grade service. studyTime may be nil; achievement
// metrics over study minutes then see zero.
func NewGradeService(
	bank *grading.Bank,
	grader *grading.Grader,
	progress store.ProgressStore,
	submissions store.SubmissionStore,
	unlocks store.UnlockStore,
	engine *achievement.Engine,
	studyTime StudyTimeSource,
) *GradeService {
	return &GradeService{
		bank:        bank,
		grader:      grader,
		progress:    progress,
		submissions: submissions,
		unlocks:     unlocks,
		engine:      engine,
		studyTime:   studyTime,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// GradeSubmission grades one raw answer, appends it to the submission log and
// returns any achievements the attempt unlocked.
//
// A sandbox timeout is retried once; a second timeout files the submission
// for manual review instead of failing the request. Malformed answer specs
// and genuinely broken storage still error out.
func (s *GradeService) GradeSubmission(ctx context.Context, userID, questionID, rawAnswer string) (GradeOutcome, error) {
	q, ok := s.bank.Question(questionID)
	if !ok {
		return GradeOutcome{}, fmt.Errorf("question %s: %w", questionID, ErrUnknownQuestion)
	}

	sub := store.Submission{
		ID:         s.newID(),
		UserID:     userID,
		QuestionID: questionID,
		RawAnswer:  rawAnswer,
		Status:     store.StatusGraded,
		GradedAt:   s.now(),
	}

	result, err := s.grader.GradeLenient(ctx, q, rawAnswer)
	if errors.Is(err, sandbox.ErrExecutionTimeout) {
		result, err = s.grader.GradeLenient(ctx, q, rawAnswer)
	}
	switch {
	case errors.Is(err, sandbox.ErrExecutionTimeout):
		slog.Warn("sandbox timed out twice, filing for manual review",
			"user_id", userID,
			"question_id", questionID,
		)
		sub.Status = store.StatusPendingManualReview
		result = grading.Result{Detail: "sandbox timeout, pending manual review"}
	case err != nil:
		return GradeOutcome{}, fmt.Errorf("grading question %s: %w", questionID, err)
	}

	sub.IsCorrect = result.IsCorrect
	sub.Score = result.Score
	if err := s.submissions.Add(ctx, sub); err != nil {
		return GradeOutcome{}, fmt.Errorf("recording submission: %w", err)
	}

	unlocked, err := s.evaluateAchievements(ctx, userID)
	if err != nil {
		return GradeOutcome{}, err
	}
	return GradeOutcome{Submission: sub, Result: result, Unlocked: unlocked}, nil
}

func (s *GradeService) evaluateAchievements(ctx context.Context, userID string) ([]achievement.UnlockEvent, error) {
	records, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	subs, err := s.submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	minutes := 0
	if s.studyTime != nil {
		minutes, err = s.studyTime.TotalStudyMinutes(ctx, userID)
		if err != nil {
			slog.Warn("study time lookup failed", "user_id", userID, "error", err)
			minutes = 0
		}
	}

	userStats := stats.Aggregate(records, subs, minutes, s.now())
	userStats.UserID = userID

	history, err := s.unlocks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unlocks: %w", err)
	}

	events := s.engine.Evaluate(userStats, achievement.FoldUnlocked(history))
	for _, ev := range events {
		if err := s.unlocks.Append(ctx, ev); err != nil {
			return nil, fmt.Errorf("recording unlock %s: %w", ev.RuleID, err)
		}
	}
	return events, nil
}
