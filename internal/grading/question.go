// Package grading scores learner submissions against question definitions.
// Each question type maps to one variant of a closed answer-spec union; the
// dispatch switch is exhaustive over that union.
package grading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pathlight/pathlight/internal/graph"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillBlank      QuestionType = "fill_blank"
	ShortAnswer    QuestionType = "short_answer"
	Code           QuestionType = "code"
	Calculation    QuestionType = "calculation"
)

// ParseQuestionType validates a stored type string.
func ParseQuestionType(s string) (QuestionType, error) {
	switch qt := QuestionType(s); qt {
	case SingleChoice, MultipleChoice, TrueFalse, FillBlank, ShortAnswer, Code, Calculation:
		return qt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, s)
}

// Question is an immutable published question. CorrectAnswer uses a
// type-specific encoding:
//
//	single_choice    the correct option token
//	multiple_choice  comma-delimited option tokens
//	true_false       "true" or "false"
//	fill_blank       pipe-delimited keywords, any one suffices
//	short_answer     comma-delimited keywords, proportional credit
//	calculation      "value|tolerance" (tolerance optional)
//	code             unused; tests live in CodeTests
type Question struct {
	ID                string
	KnowledgePointIDs []string
	Type              QuestionType
	Text              string
	CorrectAnswer     string
	CodeLanguage      string
	CodeTests         []string
	ScoreMax          float64
	Difficulty        graph.Difficulty
}

var (
	// ErrMalformedAnswerSpec means CorrectAnswer cannot be parsed for the
	// question's declared type. This is a content-authoring bug.
	ErrMalformedAnswerSpec = errors.New("malformed correct-answer spec")

	// ErrUnsupportedQuestionType is defensive: unreachable while the type
	// enum stays closed.
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
)

// answerSpec is the tagged union the grader dispatches on.
type answerSpec interface {
	isAnswerSpec()
}

type exactSpec struct {
	want       string
	foldCase   bool
}

type choiceSetSpec struct {
	options map[string]struct{}
}

type keywordAnySpec struct {
	keywords []string
}

type keywordListSpec struct {
	keywords []string
}

type numericSpec struct {
	value     float64
	tolerance float64
}

type codeSpec struct {
	language string
	tests    []string
}

func (exactSpec) isAnswerSpec()       {}
func (choiceSetSpec) isAnswerSpec()   {}
func (keywordAnySpec) isAnswerSpec()  {}
func (keywordListSpec) isAnswerSpec() {}
func (numericSpec) isAnswerSpec()     {}
func (codeSpec) isAnswerSpec()        {}

// parseAnswerSpec validates and decodes CorrectAnswer for the question's
// declared type.
func parseAnswerSpec(q Question) (answerSpec, error) {
	malformed := func(reason string) error {
		return fmt.Errorf("question %s: %w: %s", q.ID, ErrMalformedAnswerSpec, reason)
	}

	switch q.Type {
	case SingleChoice:
		want := strings.TrimSpace(q.CorrectAnswer)
		if want == "" {
			return nil, malformed("empty option")
		}
		return exactSpec{want: want}, nil

	case TrueFalse:
		want := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
		if want != "true" && want != "false" {
			return nil, malformed(`expected "true" or "false"`)
		}
		return exactSpec{want: want, foldCase: true}, nil

	case MultipleChoice:
		options := splitTrimmed(q.CorrectAnswer, ",")
		if len(options) == 0 {
			return nil, malformed("empty option set")
		}
		set := make(map[string]struct{}, len(options))
		for _, opt := range options {
			set[opt] = struct{}{}
		}
		return choiceSetSpec{options: set}, nil

	case FillBlank:
		keywords := splitTrimmed(q.CorrectAnswer, "|")
		if len(keywords) == 0 {
			return nil, malformed("empty keyword set")
		}
		return keywordAnySpec{keywords: keywords}, nil

	case ShortAnswer:
		keywords := splitTrimmed(q.CorrectAnswer, ",")
		if len(keywords) == 0 {
			return nil, malformed("empty keyword list")
		}
		return keywordListSpec{keywords: keywords}, nil

	case Calculation:
		parts := splitTrimmed(q.CorrectAnswer, "|")
		if len(parts) == 0 || len(parts) > 2 {
			return nil, malformed(`expected "value" or "value|tolerance"`)
		}
		value, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, malformed("value is not a number")
		}
		tolerance := 0.0
		if len(parts) == 2 {
			tolerance, err = strconv.ParseFloat(parts[1], 64)
			if err != nil || tolerance < 0 {
				return nil, malformed("tolerance is not a non-negative number")
			}
		}
		return numericSpec{value: value, tolerance: tolerance}, nil

	case Code:
		if len(q.CodeTests) == 0 {
			return nil, malformed("no test cases")
		}
		return codeSpec{language: q.CodeLanguage, tests: q.CodeTests}, nil
	}

	return nil, fmt.Errorf("question %s: %w: %q", q.ID, ErrUnsupportedQuestionType, q.Type)
}

// splitTrimmed splits on sep, trims whitespace and drops empty tokens.
func splitTrimmed(s, sep string) []string {
	var out []string
	for _, tok := range strings.Split(s, sep) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
