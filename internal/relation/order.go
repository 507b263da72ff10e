package relation

import (
	"sort"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// Policy selects how ordering reacts to a dependency cycle.
type Policy int

const (
	// Abort fails the whole request with a CycleDetectedError.
	Abort Policy = iota

	// Partial keeps the ranks computed before the stall and leaves the
	// stalled tables without a load order.
	Partial
)

// Annotation carries the per-table load-ordering metadata attached to a
// multi-table contract. LoadOrder is nil only under the Partial policy,
// for tables caught in a cycle.
type Annotation struct {
	LoadOrder            *int     `json:"load_order"`
	DependsOn            []string `json:"depends_on"`
	ReferencedBy         []string `json:"referenced_by"`
	UnresolvedReferences []string `json:"unresolved_references,omitempty"`
}

// Rank computes wave-numbered load ranks with Kahn's algorithm: every table
// whose in-set dependencies are already satisfied joins the current wave,
// and the whole wave shares one rank. The first wave is rank 1. Within a
// wave, tables are handled in ascending name order, so ranks are
// deterministic for a given graph.
//
// A stall — tables remain but none has zero in-degree — means a cycle. Rank
// returns the ranks computed before the stall together with a
// CycleDetectedError naming exactly the stalled tables.
func (g *Graph) Rank() (map[string]int, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for t := range g.nodes {
		inDegree[t] = len(g.dependsOn[t])
	}

	queue := make([]string, 0, len(g.nodes))
	for t, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, t)
		}
	}

	ranks := make(map[string]int, len(g.nodes))
	for rank := 1; len(queue) > 0; rank++ {
		sort.Strings(queue)
		var next []string
		for _, t := range queue {
			ranks[t] = rank
			for _, dependent := range g.referencedBy[t] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		queue = next
	}

	if len(ranks) < len(g.nodes) {
		stalled := make([]string, 0, len(g.nodes)-len(ranks))
		for t := range g.nodes {
			if _, ok := ranks[t]; !ok {
				stalled = append(stalled, t)
			}
		}
		sort.Strings(stalled)
		return ranks, &apperrors.CycleDetectedError{Tables: stalled}
	}
	return ranks, nil
}

// BuildDependencyOrder builds the dependency graph for one request's
// descriptors, ranks it, and returns one Annotation per table.
//
// Under Abort a cycle fails the request. Under Partial the ranked tables
// keep their ranks, the stalled tables come back with LoadOrder nil, and no
// error is returned.
func BuildDependencyOrder(descriptors []contract.TableDescriptor, policy Policy) (map[string]Annotation, error) {
	g := BuildGraph(descriptors)
	ranks, err := g.Rank()
	if err != nil && policy != Partial {
		return nil, err
	}

	out := make(map[string]Annotation, len(g.nodes))
	for t := range g.nodes {
		a := Annotation{
			DependsOn:            g.DependsOn(t),
			ReferencedBy:         g.ReferencedBy(t),
			UnresolvedReferences: g.Unresolved(t),
		}
		if r, ok := ranks[t]; ok {
			rank := r
			a.LoadOrder = &rank
		}
		out[t] = a
	}
	return out, nil
}
