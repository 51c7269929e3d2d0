// Package stats folds a user's stored history into the snapshot the
// achievement engine evaluates.
package stats

import (
	"time"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
	"github.com/pathlight/pathlight/internal/store"
)

// Aggregate computes the stats vector for one user. studyMinutes comes from
// an external session tracker and is passed through untouched; everything
// else is derived from the progress records and the submission log. now
// anchors the streak calculation.
func Aggregate(records []srs.ProgressRecord, subs []store.Submission, studyMinutes int, now time.Time) achievement.UserStats {
	var s achievement.UserStats
	s.TotalStudyMinutes = studyMinutes

	if len(records) > 0 {
		s.UserID = records[0].UserID
	} else if len(subs) > 0 {
		s.UserID = subs[0].UserID
	}

	for _, rec := range records {
		if rec.Mastery == srs.MasteryMastered {
			s.MasteredCount++
		}
	}

	for _, sub := range subs {
		s.SubmissionCount++
		if sub.IsCorrect {
			s.CorrectSubmissionCount++
		}
	}
	if s.SubmissionCount > 0 {
		s.AccuracyPercent = 100 * float64(s.CorrectSubmissionCount) / float64(s.SubmissionCount)
	}

	s.CurrentStreakDays = streakDays(subs, now)
	return s
}

// streakDays counts consecutive calendar days with at least one submission,
// walking back from today. A streak survives until a day with no activity;
// today itself may still be pending, so a run ending yesterday counts.
func streakDays(subs []store.Submission, now time.Time) int {
	if len(subs) == 0 {
		return 0
	}
	days := make(map[string]bool, len(subs))
	for _, sub := range subs {
		days[sub.GradedAt.In(now.Location()).Format(time.DateOnly)] = true
	}

	day := now
	if !days[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
		if !days[day.Format(time.DateOnly)] {
			return 0
		}
	}

	streak := 0
	for days[day.Format(time.DateOnly)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
