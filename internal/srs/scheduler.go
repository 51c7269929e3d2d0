// Package srs implements the spaced-repetition review scheduler, an SM-2
// variant. Schedule is a pure function over an explicit ProgressRecord;
// persistence and locking belong to the caller.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Mastery is the ordinal classification of a learner's command of a
// knowledge point.
type Mastery int

const (
	MasteryUnknown Mastery = iota
	MasteryLearning
	MasteryFamiliar
	MasteryProficient
	MasteryMastered
)

// ParseMastery converts a stored mastery string to its level.
func ParseMastery(s string) (Mastery, error) {
	switch s {
	case "unknown":
		return MasteryUnknown, nil
	case "learning":
		return MasteryLearning, nil
	case "familiar":
		return MasteryFamiliar, nil
	case "proficient":
		return MasteryProficient, nil
	case "mastered":
		return MasteryMastered, nil
	}
	return 0, fmt.Errorf("unknown mastery level %q", s)
}

func (m Mastery) String() string {
	switch m {
	case MasteryUnknown:
		return "unknown"
	case MasteryLearning:
		return "learning"
	case MasteryFamiliar:
		return "familiar"
	case MasteryProficient:
		return "proficient"
	case MasteryMastered:
		return "mastered"
	}
	return fmt.Sprintf("mastery(%d)", int(m))
}

const (
	// MinEaseFactor is the SM-2 floor below which intervals would collapse.
	MinEaseFactor = 1.3
	// DefaultEaseFactor is the ease assigned to a record on first review.
	DefaultEaseFactor = 2.5
)

// ErrInvalidQuality is returned when a recall quality rating falls outside
// the 0..5 scale.
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// ProgressRecord is the per-(user, knowledge point) review state. Mutated
// exclusively through Schedule; never deleted, only reset. Version backs the
// caller's optimistic locking and is never touched by the scheduler.
type ProgressRecord struct {
	UserID           string
	KnowledgePointID string
	Mastery          Mastery
	Repetitions      int
	EaseFactor       float64
	IntervalDays     int
	DueAt            time.Time
	LastReviewedAt   time.Time
	Version          int64
}

// NewRecord returns the initial state for a point the user has never
// reviewed.
func NewRecord(userID, knowledgePointID string) ProgressRecord {
	return ProgressRecord{
		UserID:           userID,
		KnowledgePointID: knowledgePointID,
		Mastery:          MasteryUnknown,
		EaseFactor:       DefaultEaseFactor,
	}
}

// Thresholds are the review intervals at which mastery may step up. They are
// deployment configuration, not algorithm constants.
type Thresholds struct {
	FamiliarDays   int
	ProficientDays int
	MasteredDays   int
}

// DefaultThresholds returns the stock mastery thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FamiliarDays:   7,
		ProficientDays: 21,
		MasteredDays:   90,
	}
}

// Scheduler computes the next review state from a recall quality rating.
type Scheduler struct {
	thresholds Thresholds
}

// NewScheduler creates a scheduler; zero-valued threshold fields fall back
// to the defaults.
func NewScheduler(t Thresholds) *Scheduler {
	def := DefaultThresholds()
	if t.FamiliarDays == 0 {
		t.FamiliarDays = def.FamiliarDays
	}
	if t.ProficientDays == 0 {
		t.ProficientDays = def.ProficientDays
	}
	if t.MasteredDays == 0 {
		t.MasteredDays = def.MasteredDays
	}
	return &Scheduler{thresholds: t}
}

// Schedule applies one review with recall quality q (0 = total blackout,
// 5 = perfect recall) and returns the updated record. The input record is
// not modified.
func (s *Scheduler) Schedule(rec ProgressRecord, quality int, now time.Time) (ProgressRecord, error) {
	if quality < 0 || quality > 5 {
		return rec, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	out := rec
	if out.EaseFactor == 0 {
		out.EaseFactor = DefaultEaseFactor
	}

	if quality < 3 {
		out.Repetitions = 0
		out.IntervalDays = 1
		out.Mastery = rec.Mastery - 1
		if out.Mastery < MasteryLearning {
			out.Mastery = MasteryLearning
		}
	} else {
		out.Repetitions = rec.Repetitions + 1
		switch out.Repetitions {
		case 1:
			out.IntervalDays = 1
		case 2:
			out.IntervalDays = 6
		default:
			out.IntervalDays = int(math.Round(float64(rec.IntervalDays) * out.EaseFactor))
		}
		if next := rec.Mastery + 1; next <= s.levelFor(out.IntervalDays) {
			out.Mastery = next
		}
	}

	// Ease updates on every graded review, success or not.
	q := float64(quality)
	ease := out.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}
	out.EaseFactor = ease

	out.DueAt = now.AddDate(0, 0, out.IntervalDays)
	out.LastReviewedAt = now
	return out, nil
}

// levelFor is the highest mastery a review interval can support.
func (s *Scheduler) levelFor(intervalDays int) Mastery {
	switch {
	case intervalDays >= s.thresholds.MasteredDays:
		return MasteryMastered
	case intervalDays >= s.thresholds.ProficientDays:
		return MasteryProficient
	case intervalDays >= s.thresholds.FamiliarDays:
		return MasteryFamiliar
	default:
		return MasteryLearning
	}
}
