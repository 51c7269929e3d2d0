// Package sandbox talks to the external code-execution service that runs
// learner-submitted code against a question's test cases.
package sandbox

import (
	"context"
	"errors"
	"sync"
)

// ErrExecutionTimeout is returned when the sandbox does not produce an
// outcome within the configured deadline. Callers may retry once with
// backoff before routing the attempt to manual review.
var ErrExecutionTimeout = errors.New("sandbox execution timed out")

// Job is one execution request: learner source plus the question's tests.
type Job struct {
	Language string   `json:"language"`
	Source   string   `json:"source"`
	Tests    []string `json:"tests"`
}

// Outcome is the sandbox verdict.
type Outcome struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// Runner executes a job and reports how many tests passed.
type Runner interface {
	Run(ctx context.Context, job Job) (Outcome, error)
}

// MockRunner is a canned Runner for tests.
type MockRunner struct {
	mu      sync.Mutex
	Outcome Outcome
	Err     error
	LastJob *Job
	Calls   int
}

func (m *MockRunner) Run(_ context.Context, job Job) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastJob = &job
	if m.Err != nil {
		return Outcome{}, m.Err
	}
	return m.Outcome, nil
}
