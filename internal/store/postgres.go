package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathlight/pathlight/internal/achievement"
	"github.com/pathlight/pathlight/internal/srs"
)

const dbTimeout = 5 * time.Second

//go:embed schema.sql
var schemaSQL string

// Migrate applies the engine schema. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// PostgresProgressStore is a pgx-backed ProgressStore.
type PostgresProgressStore struct {
	pool *pgxpool.Pool
}

// NewPostgresProgressStore creates a postgres-backed progress store.
func NewPostgresProgressStore(pool *pgxpool.Pool) *PostgresProgressStore {
	return &PostgresProgressStore{pool: pool}
}

func (s *PostgresProgressStore) Get(ctx context.Context, userID, knowledgePointID string) (srs.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT user_id, knowledge_point_id, mastery, repetitions, ease_factor,
		        interval_days, due_at, last_reviewed_at, version
		 FROM progress_records
		 WHERE user_id = $1 AND knowledge_point_id = $2`,
		userID, knowledgePointID,
	)
	rec, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return srs.ProgressRecord{}, fmt.Errorf("progress for user %s point %s: %w", userID, knowledgePointID, ErrNotFound)
	}
	return rec, err
}

// Put writes a record under optimistic locking. Version 0 inserts; any
// other version must match the stored row exactly.
func (s *PostgresProgressStore) Put(ctx context.Context, rec srs.ProgressRecord) (srs.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if rec.Version == 0 {
		cmd, err := s.pool.Exec(ctx,
			`INSERT INTO progress_records
			   (user_id, knowledge_point_id, mastery, repetitions, ease_factor,
			    interval_days, due_at, last_reviewed_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
			 ON CONFLICT (user_id, knowledge_point_id) DO NOTHING`,
			rec.UserID, rec.KnowledgePointID, rec.Mastery.String(), rec.Repetitions,
			rec.EaseFactor, rec.IntervalDays, nullTime(rec.DueAt), nullTime(rec.LastReviewedAt),
		)
		if err != nil {
			return srs.ProgressRecord{}, fmt.Errorf("insert progress: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return srs.ProgressRecord{}, ErrVersionConflict
		}
		rec.Version = 1
		return rec, nil
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE progress_records
		 SET mastery = $3, repetitions = $4, ease_factor = $5, interval_days = $6,
		     due_at = $7, last_reviewed_at = $8, version = version + 1
		 WHERE user_id = $1 AND knowledge_point_id = $2 AND version = $9`,
		rec.UserID, rec.KnowledgePointID, rec.Mastery.String(), rec.Repetitions,
		rec.EaseFactor, rec.IntervalDays, nullTime(rec.DueAt), nullTime(rec.LastReviewedAt),
		rec.Version,
	)
	if err != nil {
		return srs.ProgressRecord{}, fmt.Errorf("update progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return srs.ProgressRecord{}, ErrVersionConflict
	}
	rec.Version++
	return rec, nil
}

func (s *PostgresProgressStore) ListByUser(ctx context.Context, userID string) ([]srs.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, knowledge_point_id, mastery, repetitions, ease_factor,
		        interval_days, due_at, last_reviewed_at, version
		 FROM progress_records
		 WHERE user_id = $1
		 ORDER BY knowledge_point_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []srs.ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresProgressStore) MasterySnapshot(ctx context.Context, userID string) (map[string]srs.Mastery, error) {
	records, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]srs.Mastery, len(records))
	for _, rec := range records {
		snap[rec.KnowledgePointID] = rec.Mastery
	}
	return snap, nil
}

func scanProgress(row pgx.Row) (srs.ProgressRecord, error) {
	var rec srs.ProgressRecord
	var mastery string
	var dueAt, lastReviewedAt *time.Time
	if err := row.Scan(
		&rec.UserID, &rec.KnowledgePointID, &mastery, &rec.Repetitions,
		&rec.EaseFactor, &rec.IntervalDays, &dueAt, &lastReviewedAt, &rec.Version,
	); err != nil {
		return srs.ProgressRecord{}, err
	}
	m, err := srs.ParseMastery(mastery)
	if err != nil {
		return srs.ProgressRecord{}, err
	}
	rec.Mastery = m
	if dueAt != nil {
		rec.DueAt = *dueAt
	}
	if lastReviewedAt != nil {
		rec.LastReviewedAt = *lastReviewedAt
	}
	return rec, nil
}

// PostgresSubmissionStore is a pgx-backed SubmissionStore.
type PostgresSubmissionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSubmissionStore creates a postgres-backed submission log.
func NewPostgresSubmissionStore(pool *pgxpool.Pool) *PostgresSubmissionStore {
	return &PostgresSubmissionStore{pool: pool}
}

func (s *PostgresSubmissionStore) Add(ctx context.Context, sub Submission) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if sub.ID == "" {
		return fmt.Errorf("submission id is required")
	}
	status := sub.Status
	if status == "" {
		status = StatusGraded
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (id, user_id, question_id, raw_answer, is_correct, score, status, graded_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, sub.QuestionID, sub.RawAnswer, sub.IsCorrect, sub.Score, status, sub.GradedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *PostgresSubmissionStore) ListByUser(ctx context.Context, userID string) ([]Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, question_id, raw_answer, is_correct, score, status, graded_at
		 FROM submissions
		 WHERE user_id = $1
		 ORDER BY graded_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.QuestionID, &sub.RawAnswer,
			&sub.IsCorrect, &sub.Score, &sub.Status, &sub.GradedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// PostgresUnlockStore is a pgx-backed UnlockStore.
type PostgresUnlockStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUnlockStore creates a postgres-backed unlock log.
func NewPostgresUnlockStore(pool *pgxpool.Pool) *PostgresUnlockStore {
	return &PostgresUnlockStore{pool: pool}
}

// Append inserts the unlock event. The (user_id, rule_id) unique index makes
// re-appending a no-op, keeping unlocks once-only.
func (s *PostgresUnlockStore) Append(ctx context.Context, ev achievement.UnlockEvent) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if ev.RuleID == "" || ev.UserID == "" {
		return fmt.Errorf("unlock event requires rule_id and user_id")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO achievement_unlocks (id, user_id, rule_id, unlocked_at)
		 VALUES ($1::uuid, $2, $3, $4)
		 ON CONFLICT (user_id, rule_id) DO NOTHING`,
		ev.ID, ev.UserID, ev.RuleID, ev.UnlockedAt,
	)
	if err != nil {
		return fmt.Errorf("insert unlock: %w", err)
	}
	return nil
}

func (s *PostgresUnlockStore) ListByUser(ctx context.Context, userID string) ([]achievement.UnlockEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, rule_id, unlocked_at
		 FROM achievement_unlocks
		 WHERE user_id = $1
		 ORDER BY unlocked_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query unlocks: %w", err)
	}
	defer rows.Close()

	var out []achievement.UnlockEvent
	for rows.Next() {
		var ev achievement.UnlockEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.RuleID, &ev.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scan unlock: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
