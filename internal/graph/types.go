// Package graph holds the knowledge-point graph for a subject: knowledge
// points grouped into chapters, linked by directed prerequisite edges.
package graph

import "fmt"

// Difficulty is the ordinal difficulty tier of a knowledge point or question.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
	DifficultyExpert
)

// ParseDifficulty converts a content-file difficulty string to its tier.
func ParseDifficulty(s string) (Difficulty, error) {
	switch s {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	case "expert":
		return DifficultyExpert, nil
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	case DifficultyExpert:
		return "expert"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// KnowledgePoint is a single teachable unit. Points are authored once and
// effectively immutable at runtime; Prerequisites refer to other point ids
// within the same subject.
type KnowledgePoint struct {
	ID            string
	Name          string
	SubjectID     string
	ChapterID     string
	Difficulty    Difficulty
	Prerequisites []string
}
