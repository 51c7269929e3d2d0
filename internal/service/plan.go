package service

import (
	"context"
	"fmt"

	"github.com/pathlight/pathlight/internal/graph"
	"github.com/pathlight/pathlight/internal/path"
	"github.com/pathlight/pathlight/internal/store"
)

// PlanService builds ordered study plans from the knowledge graph and the
// user's current mastery.
type PlanService struct {
	graphs   *graph.Loader
	progress store.ProgressStore
}

// NewPlanService creates a plan service over loaded subject graphs.
func NewPlanService(graphs *graph.Loader, progress store.ProgressStore) *PlanService {
	return &PlanService{graphs: graphs, progress: progress}
}

// BuildPlan returns the ordered study plan for one subject. An empty plan
// means the user has nothing left to study at this target.
func (s *PlanService) BuildPlan(ctx context.Context, userID, subjectID string, target path.Target) ([]graph.KnowledgePoint, error) {
	g, err := s.graphs.SubjectGraph(subjectID)
	if err != nil {
		return nil, err
	}
	snap, err := s.progress.MasterySnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading mastery snapshot: %w", err)
	}
	return path.Generate(g, snap, target)
}
