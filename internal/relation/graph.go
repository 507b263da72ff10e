// Package relation derives load-ordering metadata from foreign keys: a
// dependency graph over one request's tables, plus a deterministic
// topological rank computed with Kahn's algorithm.
//
// Graphs are request-scoped. Build one from the introspected descriptors,
// rank it, throw it away. Nothing here is shared across requests and
// nothing needs to be.
package relation

import (
	"sort"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// Graph is a directed foreign-key dependency graph over one request's
// tables. Edges point referencing → referenced: an edge orders → users
// means orders must load after users.
type Graph struct {
	nodes        map[string]bool
	dependsOn    map[string][]string // table -> tables it references, within the set
	referencedBy map[string][]string // table -> tables referencing it, within the set
	unresolved   map[string][]string // table -> referred tables outside the set
}

// BuildGraph indexes the foreign keys of one request's descriptors.
//
// Only edges between requested tables enter the graph. A foreign key whose
// target is outside the set is kept per table as an unresolved reference so
// callers can surface it rather than silently drop it. Self-references
// never form an edge: a table trivially satisfies its own dependency.
func BuildGraph(descriptors []contract.TableDescriptor) *Graph {
	g := &Graph{
		nodes:        make(map[string]bool, len(descriptors)),
		dependsOn:    make(map[string][]string, len(descriptors)),
		referencedBy: make(map[string][]string, len(descriptors)),
		unresolved:   make(map[string][]string),
	}
	for _, d := range descriptors {
		g.nodes[d.Name] = true
	}
	for _, d := range descriptors {
		seen := make(map[string]bool, len(d.ForeignKeys))
		for _, fk := range d.ForeignKeys {
			target := fk.ReferredTable
			if target == "" || target == d.Name || seen[target] {
				continue
			}
			seen[target] = true
			if !g.nodes[target] {
				g.unresolved[d.Name] = append(g.unresolved[d.Name], target)
				continue
			}
			g.dependsOn[d.Name] = append(g.dependsOn[d.Name], target)
			g.referencedBy[target] = append(g.referencedBy[target], d.Name)
		}
	}
	for _, adj := range []map[string][]string{g.dependsOn, g.referencedBy, g.unresolved} {
		for t := range adj {
			sort.Strings(adj[t])
		}
	}
	return g
}

// Tables returns the node set in ascending name order.
func (g *Graph) Tables() []string {
	out := make([]string, 0, len(g.nodes))
	for t := range g.nodes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DependsOn returns the requested tables that table references, ascending.
func (g *Graph) DependsOn(table string) []string {
	return copyNames(g.dependsOn[table])
}

// ReferencedBy returns the requested tables referencing table, ascending.
func (g *Graph) ReferencedBy(table string) []string {
	return copyNames(g.referencedBy[table])
}

// Unresolved returns table's referred targets outside the requested set,
// ascending.
func (g *Graph) Unresolved(table string) []string {
	return copyNames(g.unresolved[table])
}

// copyNames returns a detached, never-nil copy so callers can embed the
// result in a response without aliasing graph internals.
func copyNames(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
