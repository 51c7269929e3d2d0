// Package report renders a user's study history as an xlsx workbook for
// download from the progress UI.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
)

const (
	progressSheet = "Progress"
	summarySheet  = "Summary"
)

// WriteStudyReport writes a two-sheet workbook: one row per knowledge point
// on Progress, the aggregated stats vector on Summary. Records are sorted by
// knowledge point id so repeated exports diff cleanly.
func WriteStudyReport(w io.Writer, userID string, records []srs.ProgressRecord, stats achievement.UserStats) error {
	f := excelize.NewFile()
	defer f.Close()

	// excelize starts with "Sheet1"; rename rather than add-and-delete.
	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("naming progress sheet: %w", err)
	}
	if err := writeProgress(f, records); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}
	if err := writeSummary(f, userID, stats); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, records []srs.ProgressRecord) error {
	header := []any{"Knowledge Point", "Mastery", "Repetitions", "Ease Factor", "Interval (days)", "Due", "Last Reviewed"}
	if err := f.SetSheetRow(progressSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	sorted := make([]srs.ProgressRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].KnowledgePointID < sorted[j].KnowledgePointID
	})

	for i, rec := range sorted {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := []any{
			rec.KnowledgePointID,
			rec.Mastery.String(),
			rec.Repetitions,
			rec.EaseFactor,
			rec.IntervalDays,
			formatDay(rec.DueAt),
			formatDay(rec.LastReviewedAt),
		}
		if err := f.SetSheetRow(progressSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, userID string, stats achievement.UserStats) error {
	rows := [][]any{
		{"User", userID},
		{"Total study minutes", stats.TotalStudyMinutes},
		{"Current streak (days)", stats.CurrentStreakDays},
		{"Points mastered", stats.MasteredCount},
		{"Submissions", stats.SubmissionCount},
		{"Correct submissions", stats.CorrectSubmissionCount},
		{"Accuracy (%)", stats.AccuracyPercent},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
