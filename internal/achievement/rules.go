// Package achievement evaluates declarative milestone rules over aggregated
// user statistics and records unlocks as an append-only event log.
package achievement

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed rules_schema.json
var rulesSchema string

// Metric names one dimension of the fixed stats vector.
type Metric string

const (
	MetricTotalStudyMinutes      Metric = "total_study_minutes"
	MetricCurrentStreakDays      Metric = "current_streak_days"
	MetricMasteredCount          Metric = "mastered_count"
	MetricCorrectSubmissionCount Metric = "correct_submission_count"
	MetricSubmissionCount        Metric = "submission_count"
	MetricAccuracyPercent        Metric = "accuracy_percent"
)

// Op compares a stat against a rule threshold.
type Op string

const (
	OpGTE Op = "gte"
	OpLTE Op = "lte"
	OpEQ  Op = "eq"
)

// Condition is one comparison; a rule's conditions are conjunctive.
type Condition struct {
	Metric Metric  `json:"metric"`
	Op     Op      `json:"op"`
	Value  float64 `json:"value"`
}

// Rule is a declarative achievement definition. Rules are static
// configuration, loaded once at process start.
type Rule struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	RewardPoints int         `json:"reward_points"`
	Conditions   []Condition `json:"conditions"`
}

type ruleFile struct {
	Rules []Rule `json:"rules"`
}

// LoadRules reads and validates a rule-set JSON file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("achievement rules loaded", "rules", len(rules))
	return rules, nil
}

// ParseRules validates the document against the embedded JSON Schema, then
// decodes it. Schema validation keeps malformed rule files out of the engine
// entirely instead of failing one evaluation at a time.
func ParseRules(data []byte) ([]Rule, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(rulesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("invalid rules document: %s", strings.Join(problems, "; "))
	}

	var rf ruleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}

	seen := make(map[string]struct{}, len(rf.Rules))
	for _, r := range rf.Rules {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	return rf.Rules, nil
}
