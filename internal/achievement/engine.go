package achievement

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// UserStats is the fixed stats vector rules are evaluated against. It is a
// point-in-time snapshot aggregated by the caller from progress records and
// the submission log.
type UserStats struct {
	UserID                 string
	TotalStudyMinutes      int
	CurrentStreakDays      int
	MasteredCount          int
	CorrectSubmissionCount int
	SubmissionCount        int
	AccuracyPercent        float64
}

// metric resolves one dimension of the vector.
func (s UserStats) metric(m Metric) (float64, bool) {
	switch m {
	case MetricTotalStudyMinutes:
		return float64(s.TotalStudyMinutes), true
	case MetricCurrentStreakDays:
		return float64(s.CurrentStreakDays), true
	case MetricMasteredCount:
		return float64(s.MasteredCount), true
	case MetricCorrectSubmissionCount:
		return float64(s.CorrectSubmissionCount), true
	case MetricSubmissionCount:
		return float64(s.SubmissionCount), true
	case MetricAccuracyPercent:
		return s.AccuracyPercent, true
	}
	return 0, false
}

// UnlockEvent records one achievement unlock. Events are append-only; an
// unlock is never revoked even if the underlying stats later regress.
type UnlockEvent struct {
	ID         string
	RuleID     string
	UserID     string
	UnlockedAt time.Time
}

// UnlockedSet is the set of rule ids a user has already unlocked, obtained
// by folding the stored event log.
type UnlockedSet map[string]struct{}

// FoldUnlocked reduces an event log to the unlocked rule-id set.
func FoldUnlocked(events []UnlockEvent) UnlockedSet {
	set := make(UnlockedSet, len(events))
	for _, ev := range events {
		set[ev.RuleID] = struct{}{}
	}
	return set
}

// Contains reports whether ruleID is already unlocked.
func (s UnlockedSet) Contains(ruleID string) bool {
	_, ok := s[ruleID]
	return ok
}

// Engine evaluates the static rule set. Rules share no mutable state and
// have no evaluation-order dependency, so one Engine serves all users
// concurrently.
type Engine struct {
	rules []Rule
	now   func() time.Time
	newID func() string
}

// Option overrides an Engine dependency, mainly for tests.
type Option func(*Engine)

// WithClock replaces the unlock timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the event id source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates an engine over an immutable rule set.
func NewEngine(rules []Rule, opts ...Option) *Engine {
	e := &Engine{
		rules: rules,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns unlock events for every rule the stats now satisfy and
// the user has not unlocked before. Pure apart from timestamps and event
// ids; re-evaluating with the emitted events folded back in yields nothing.
func (e *Engine) Evaluate(stats UserStats, unlocked UnlockedSet) []UnlockEvent {
	var events []UnlockEvent
	for _, rule := range e.rules {
		if unlocked.Contains(rule.ID) {
			continue
		}
		if !ruleSatisfied(rule, stats) {
			continue
		}
		events = append(events, UnlockEvent{
			ID:         e.newID(),
			RuleID:     rule.ID,
			UserID:     stats.UserID,
			UnlockedAt: e.now(),
		})
		slog.Info("achievement unlocked",
			"user_id", stats.UserID,
			"rule_id", rule.ID,
			"reward_points", rule.RewardPoints,
		)
	}
	return events
}

// ruleSatisfied checks a rule's conjunctive conditions. A condition naming a
// metric outside the vector never matches; the rule schema makes that
// unreachable for loaded rule sets.
func ruleSatisfied(rule Rule, stats UserStats) bool {
	for _, cond := range rule.Conditions {
		value, ok := stats.metric(cond.Metric)
		if !ok {
			return false
		}
		switch cond.Op {
		case OpGTE:
			if value < cond.Value {
				return false
			}
		case OpLTE:
			if value > cond.Value {
				return false
			}
		case OpEQ:
			if value != cond.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}
