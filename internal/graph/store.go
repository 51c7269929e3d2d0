package graph

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports a prerequisite cycle. The prerequisite relation must be
// a DAG; a cycle is a content-authoring defect and halts path generation for
// the whole subject rather than silently dropping nodes.
type CycleError struct {
	NodeIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("prerequisite cycle involving: %s", strings.Join(e.NodeIDs, ", "))
}

// Store is an arena over one subject's knowledge points. Points live in a
// flat slice and prerequisite edges are resolved to index lists at build
// time, so traversals never chase ids through a map.
type Store struct {
	points  []KnowledgePoint
	index   map[string]int
	prereqs [][]int
}

// NewStore builds the arena. It rejects duplicate ids and prerequisites that
// reference unknown points; cycle detection is deferred to Validate so a
// store can still be inspected while the content team repairs it.
func NewStore(points []KnowledgePoint) (*Store, error) {
	s := &Store{
		points:  make([]KnowledgePoint, len(points)),
		index:   make(map[string]int, len(points)),
		prereqs: make([][]int, len(points)),
	}
	copy(s.points, points)

	for i, p := range s.points {
		if p.ID == "" {
			return nil, fmt.Errorf("knowledge point at position %d has no id", i)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate knowledge point id %q", p.ID)
		}
		s.index[p.ID] = i
	}

	for i, p := range s.points {
		for _, pre := range p.Prerequisites {
			j, ok := s.index[pre]
			if !ok {
				return nil, fmt.Errorf("point %q requires unknown point %q", p.ID, pre)
			}
			if j == i {
				return nil, fmt.Errorf("point %q requires itself", p.ID)
			}
			s.prereqs[i] = append(s.prereqs[i], j)
		}
	}

	return s, nil
}

// Len returns the number of points in the store.
func (s *Store) Len() int { return len(s.points) }

// At returns the point at arena index i.
func (s *Store) At(i int) KnowledgePoint { return s.points[i] }

// IndexOf returns the arena index for a point id.
func (s *Store) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Point returns a point by id.
func (s *Store) Point(id string) (KnowledgePoint, bool) {
	i, ok := s.index[id]
	if !ok {
		return KnowledgePoint{}, false
	}
	return s.points[i], true
}

// PrereqIndices returns the arena indices of point i's direct prerequisites.
// The returned slice is owned by the store and must not be mutated.
func (s *Store) PrereqIndices(i int) []int { return s.prereqs[i] }

// Points returns a copy of all points in arena order.
func (s *Store) Points() []KnowledgePoint {
	out := make([]KnowledgePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Validate checks the DAG invariant over the whole store. Stored content is
// not trusted: this runs on every path-generation call, not just at load.
func (s *Store) Validate() error {
	indegree := make([]int, len(s.points))
	dependents := make([][]int, len(s.points))
	for i := range s.points {
		for _, j := range s.prereqs[i] {
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	queue := make([]int, 0, len(s.points))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		visited++
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if visited == len(s.points) {
		return nil
	}

	var cyclic []string
	for i, d := range indegree {
		if d > 0 {
			cyclic = append(cyclic, s.points[i].ID)
		}
	}
	sort.Strings(cyclic)
	return &CycleError{NodeIDs: cyclic}
}
