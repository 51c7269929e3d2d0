// Package path generates ordered study plans over the knowledge graph.
package path

import (
	"sort"

	"github.com/pathlight/pathlight/internal/graph"
	"github.com/pathlight/pathlight/internal/srs"
)

// Target bounds a study plan: include points the user has not yet brought up
// to MasteryFloor, staying at or below DifficultyCeiling.
type Target struct {
	DifficultyCeiling graph.Difficulty
	MasteryFloor      srs.Mastery
}

// Snapshot is a point-in-time view of one user's mastery per knowledge
// point. Points absent from the map are unknown.
type Snapshot map[string]srs.Mastery

// Generate returns the knowledge points the user should study, ordered so
// that every point appears after all of its unmastered prerequisites.
//
// Unmastered prerequisites are pulled in transitively even when their own
// difficulty exceeds the ceiling: a prerequisite must be satisfied before
// its dependents no matter which tier it sits in. Prerequisites already at
// or above the mastery floor are not included.
//
// An empty result with a nil error means nothing is left to study at this
// target. A prerequisite cycle returns *graph.CycleError and no plan.
func Generate(store *graph.Store, snap Snapshot, target Target) ([]graph.KnowledgePoint, error) {
	mastery := func(i int) srs.Mastery {
		return snap[store.At(i).ID]
	}

	// Seed with points below the floor within the difficulty ceiling.
	include := make([]bool, store.Len())
	var frontier []int
	for i := 0; i < store.Len(); i++ {
		p := store.At(i)
		if mastery(i) < target.MasteryFloor && p.Difficulty <= target.DifficultyCeiling {
			include[i] = true
			frontier = append(frontier, i)
		}
	}

	// Pull in unmastered prerequisites transitively, ignoring their tier.
	for len(frontier) > 0 {
		i := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, j := range store.PrereqIndices(i) {
			if include[j] || mastery(j) >= target.MasteryFloor {
				continue
			}
			include[j] = true
			frontier = append(frontier, j)
		}
	}

	// Kahn's sort over the induced subgraph.
	indegree := make(map[int]int)
	dependents := make(map[int][]int)
	total := 0
	for i := 0; i < store.Len(); i++ {
		if !include[i] {
			continue
		}
		total++
		for _, j := range store.PrereqIndices(i) {
			if include[j] {
				indegree[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}
	if total == 0 {
		return nil, nil
	}

	var ready []int
	for i := 0; i < store.Len(); i++ {
		if include[i] && indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]graph.KnowledgePoint, 0, total)
	for len(ready) > 0 {
		// Deterministic tie-break among zero-dependency points.
		sort.Slice(ready, func(a, b int) bool {
			pa, pb := store.At(ready[a]), store.At(ready[b])
			if pa.Difficulty != pb.Difficulty {
				return pa.Difficulty < pb.Difficulty
			}
			return pa.ID < pb.ID
		})

		i := ready[0]
		ready = ready[1:]
		order = append(order, store.At(i))

		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	if len(order) < total {
		var cyclic []string
		for i := 0; i < store.Len(); i++ {
			if include[i] && indegree[i] > 0 {
				cyclic = append(cyclic, store.At(i).ID)
			}
		}
		sort.Strings(cyclic)
		return nil, &graph.CycleError{NodeIDs: cyclic}
	}

	return order, nil
}
