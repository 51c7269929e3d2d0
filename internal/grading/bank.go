package grading

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pathlight/pathlight/internal/graph"
)

// questionFile is the on-disk shape of a question bank.
type questionFile struct {
	Questions []struct {
		ID                string   `yaml:"id"`
		KnowledgePointIDs []string `yaml:"knowledge_point_ids"`
		Type              string   `yaml:"type"`
		Text              string   `yaml:"text"`
		CorrectAnswer     string   `yaml:"correct_answer"`
		CodeLanguage      string   `yaml:"code_language"`
		CodeTests         []string `yaml:"code_tests"`
		ScoreMax          float64  `yaml:"score_max"`
		Difficulty        string   `yaml:"difficulty"`
	} `yaml:"questions"`
}

// Bank holds published questions by id. Questions are immutable after load.
type Bank struct {
	questions map[string]Question
}

// LoadBank reads every *.questions.yaml under rootDir. Each question's
// answer spec is parsed eagerly so authoring mistakes surface at startup,
// not mid-session.
func LoadBank(rootDir string) (*Bank, error) {
	b := &Bank{questions: make(map[string]Question)}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".questions.yaml") {
			return nil
		}
		return b.loadFile(path)
	})
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	slog.Info("question bank loaded", "questions", len(b.questions))
	return b, nil
}

// Question returns a question by id.
func (b *Bank) Question(id string) (Question, bool) {
	q, ok := b.questions[id]
	return q, ok
}

// Len returns the number of loaded questions.
func (b *Bank) Len() int { return len(b.questions) }

func (b *Bank) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var qf questionFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, raw := range qf.Questions {
		if raw.ID == "" {
			return fmt.Errorf("%s: question with empty id", path)
		}
		if _, dup := b.questions[raw.ID]; dup {
			return fmt.Errorf("%s: duplicate question id %q", path, raw.ID)
		}

		qt, err := ParseQuestionType(raw.Type)
		if err != nil {
			return fmt.Errorf("%s: question %s: %w", path, raw.ID, err)
		}
		diff, err := graph.ParseDifficulty(raw.Difficulty)
		if err != nil {
			return fmt.Errorf("%s: question %s: %w", path, raw.ID, err)
		}
		if raw.ScoreMax <= 0 {
			return fmt.Errorf("%s: question %s: score_max must be positive", path, raw.ID)
		}
		if len(raw.KnowledgePointIDs) == 0 {
			return fmt.Errorf("%s: question %s: at least one knowledge point required", path, raw.ID)
		}

		q := Question{
			ID:                raw.ID,
			KnowledgePointIDs: raw.KnowledgePointIDs,
			Type:              qt,
			Text:              raw.Text,
			CorrectAnswer:     raw.CorrectAnswer,
			CodeLanguage:      raw.CodeLanguage,
			CodeTests:         raw.CodeTests,
			ScoreMax:          raw.ScoreMax,
			Difficulty:        diff,
		}
		if _, err := parseAnswerSpec(q); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		b.questions[q.ID] = q
	}

	return nil
}
