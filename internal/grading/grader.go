package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pathlight/pathlight/internal/grading/sandbox"
)

// shortAnswerPassRatio is the fraction of ScoreMax a short answer must earn
// to count as correct. No partial credit exists for choice questions.
const shortAnswerPassRatio = 0.6

// Result is the grading verdict for one submission.
type Result struct {
	IsCorrect bool
	Score     float64
	Detail    string
}

// Grader scores raw submissions. It is stateless and safe for concurrent
// use; the sandbox runner is only consulted for code questions.
type Grader struct {
	runner sandbox.Runner
}

// NewGrader creates a grader. The runner may be nil when no code questions
// will be graded.
func NewGrader(runner sandbox.Runner) *Grader {
	return &Grader{runner: runner}
}

// Grade scores rawAnswer against the question. The score is always within
// [0, ScoreMax]. Errors follow the engine taxonomy: ErrMalformedAnswerSpec
// for unparsable author content, ErrUnsupportedQuestionType defensively,
// and sandbox errors (including sandbox.ErrExecutionTimeout) passed through
// for code questions.
func (g *Grader) Grade(ctx context.Context, q Question, rawAnswer string) (Result, error) {
	spec, err := parseAnswerSpec(q)
	if err != nil {
		return Result{}, err
	}

	switch spec := spec.(type) {
	case exactSpec:
		return g.gradeExact(q, spec, rawAnswer), nil
	case choiceSetSpec:
		return g.gradeChoiceSet(q, spec, rawAnswer), nil
	case keywordAnySpec:
		return g.gradeKeywordAny(q, spec, rawAnswer), nil
	case keywordListSpec:
		return g.gradeKeywordList(q, spec, rawAnswer), nil
	case numericSpec:
		return g.gradeNumeric(q, spec, rawAnswer), nil
	case codeSpec:
		return g.gradeCode(ctx, q, spec, rawAnswer)
	}

	// Unreachable: parseAnswerSpec covers the closed union.
	return Result{}, fmt.Errorf("question %s: %w: %q", q.ID, ErrUnsupportedQuestionType, q.Type)
}

// GradeLenient is the production entry point: an unsupported question type
// grades as incorrect instead of blocking the learner. All other errors are
// still surfaced.
func (g *Grader) GradeLenient(ctx context.Context, q Question, rawAnswer string) (Result, error) {
	res, err := g.Grade(ctx, q, rawAnswer)
	if errors.Is(err, ErrUnsupportedQuestionType) {
		slog.Error("unsupported question type, soft-failing", "question_id", q.ID, "type", q.Type)
		return Result{IsCorrect: false, Score: 0, Detail: "question type not supported"}, nil
	}
	return res, err
}

func (g *Grader) gradeExact(q Question, spec exactSpec, raw string) Result {
	got := strings.TrimSpace(raw)
	match := got == spec.want
	if spec.foldCase {
		match = strings.EqualFold(got, spec.want)
	}
	return binary(q, match, "exact match")
}

func (g *Grader) gradeChoiceSet(q Question, spec choiceSetSpec, raw string) Result {
	submitted := splitTrimmed(raw, ",")
	if len(submitted) != len(spec.options) {
		return binary(q, false, "option set mismatch")
	}
	seen := make(map[string]struct{}, len(submitted))
	for _, opt := range submitted {
		if _, dup := seen[opt]; dup {
			return binary(q, false, "duplicate option")
		}
		seen[opt] = struct{}{}
		if _, ok := spec.options[opt]; !ok {
			return binary(q, false, "option set mismatch")
		}
	}
	return binary(q, true, "option set match")
}

func (g *Grader) gradeKeywordAny(q Question, spec keywordAnySpec, raw string) Result {
	folded := foldText(raw)
	for _, kw := range spec.keywords {
		if strings.Contains(folded, foldText(kw)) {
			return binary(q, true, fmt.Sprintf("matched keyword %q", kw))
		}
	}
	return binary(q, false, "no keyword matched")
}

func (g *Grader) gradeKeywordList(q Question, spec keywordListSpec, raw string) Result {
	folded := foldText(raw)
	matched := 0
	for _, kw := range spec.keywords {
		if strings.Contains(folded, foldText(kw)) {
			matched++
		}
	}
	score := q.ScoreMax * float64(matched) / float64(len(spec.keywords))
	return Result{
		IsCorrect: score >= shortAnswerPassRatio*q.ScoreMax,
		Score:     score,
		Detail:    fmt.Sprintf("matched %d of %d keywords", matched, len(spec.keywords)),
	}
}

func (g *Grader) gradeNumeric(q Question, spec numericSpec, raw string) Result {
	got, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return binary(q, false, "submission is not a number")
	}
	diff := got - spec.value
	if diff < 0 {
		diff = -diff
	}
	return binary(q, diff <= spec.tolerance, fmt.Sprintf("off by %g, tolerance %g", diff, spec.tolerance))
}

func (g *Grader) gradeCode(ctx context.Context, q Question, spec codeSpec, raw string) (Result, error) {
	if g.runner == nil {
		return Result{}, fmt.Errorf("question %s: code grading requires a sandbox runner", q.ID)
	}

	outcome, err := g.runner.Run(ctx, sandbox.Job{
		Language: spec.language,
		Source:   raw,
		Tests:    spec.tests,
	})
	if err != nil {
		return Result{}, fmt.Errorf("question %s: %w", q.ID, err)
	}
	if outcome.Total <= 0 {
		return Result{Detail: "sandbox reported no tests"}, nil
	}

	score := q.ScoreMax * float64(outcome.Passed) / float64(outcome.Total)
	return Result{
		IsCorrect: outcome.Passed == outcome.Total,
		Score:     score,
		Detail:    fmt.Sprintf("passed %d of %d tests", outcome.Passed, outcome.Total),
	}, nil
}

func binary(q Question, correct bool, detail string) Result {
	res := Result{IsCorrect: correct, Detail: detail}
	if correct {
		res.Score = q.ScoreMax
	}
	return res
}

// foldText normalizes and case-folds a string so keyword matching treats
// "Manning", "MANNING" and decomposed Unicode forms alike.
func foldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
