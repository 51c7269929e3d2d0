package graph_test

import (
	"errors"
	"testing"

	"github.com/pathlight/pathlight/internal/graph"
)

func TestNewStore_ResolvesPrerequisites(t *testing.T) {
	s, err := graph.NewStore([]graph.KnowledgePoint{
		{ID: "algebra-1", SubjectID: "math"},
		{ID: "algebra-2", SubjectID: "math", Prerequisites: []string{"algebra-1"}},
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	i, ok := s.IndexOf("algebra-2")
	if !ok {
		t.Fatal("IndexOf(algebra-2) not found")
	}
	pre := s.PrereqIndices(i)
	if len(pre) != 1 {
		t.Fatalf("PrereqIndices() = %d edges, want 1", len(pre))
	}
	if s.At(pre[0]).ID != "algebra-1" {
		t.Errorf("prerequisite = %q, want algebra-1", s.At(pre[0]).ID)
	}
}

func TestNewStore_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		points []graph.KnowledgePoint
	}{
		{
			name: "duplicate id",
			points: []graph.KnowledgePoint{
				{ID: "a"},
				{ID: "a"},
			},
		},
		{
			name: "unknown prerequisite",
			points: []graph.KnowledgePoint{
				{ID: "a", Prerequisites: []string{"missing"}},
			},
		},
		{
			name: "self prerequisite",
			points: []graph.KnowledgePoint{
				{ID: "a", Prerequisites: []string{"a"}},
			},
		},
		{
			name: "empty id",
			points: []graph.KnowledgePoint{
				{ID: ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := graph.NewStore(tt.points); err == nil {
				t.Error("NewStore() should return error")
			}
		})
	}
}

func TestValidate_AcyclicChain(t *testing.T) {
	s, err := graph.NewStore([]graph.KnowledgePoint{
		{ID: "a"},
		{ID: "b", Prerequisites: []string{"a"}},
		{ID: "c", Prerequisites: []string{"b"}},
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_DetectsCycle(t *testing.T) {
	s, err := graph.NewStore([]graph.KnowledgePoint{
		{ID: "a", Prerequisites: []string{"c"}},
		{ID: "b", Prerequisites: []string{"a"}},
		{ID: "c", Prerequisites: []string{"b"}},
		{ID: "standalone"},
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	err = s.Validate()
	var cycleErr *graph.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Validate() error = %v, want *CycleError", err)
	}
	if len(cycleErr.NodeIDs) != 3 {
		t.Errorf("CycleError.NodeIDs = %v, want the 3 cyclic nodes", cycleErr.NodeIDs)
	}
	for _, id := range cycleErr.NodeIDs {
		if id == "standalone" {
			t.Error("CycleError should not include nodes outside the cycle")
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    graph.Difficulty
		wantErr bool
	}{
		{"easy", graph.DifficultyEasy, false},
		{"medium", graph.DifficultyMedium, false},
		{"hard", graph.DifficultyHard, false},
		{"expert", graph.DifficultyExpert, false},
		{"impossible", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := graph.ParseDifficulty(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDifficulty(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDifficulty_Ordering(t *testing.T) {
	if !(graph.DifficultyEasy < graph.DifficultyMedium &&
		graph.DifficultyMedium < graph.DifficultyHard &&
		graph.DifficultyHard < graph.DifficultyExpert) {
		t.Error("difficulty tiers must be ordered easy < medium < hard < expert")
	}
}
