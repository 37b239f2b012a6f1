package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/qset/internal/meta"
)

// CycleWarning represents a cycle in the foreign-key graph.
//
// Cycles are legal: a self-referencing parent/child model is common. They
// matter to cascading deletes, which stop where a model would repeat on
// its own dependency path, and to inserts, which need a nullable link
// somewhere on the cycle.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Post", "Author", "Post"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeRelations performs static cycle analysis on model relations.
//
// The algorithm:
//  1. Build model → referenced model graph from foreign-key fields
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// A cycle whose every link is a non-nullable foreign key is reported at
// "warning" level because no row on it can be inserted first. Cycles with
// a nullable link are "info".
//
// An acyclic schema returns an empty list.
func AnalyzeRelations(models []meta.Model) []CycleWarning {
	graph := buildRelationGraph(models)
	if len(graph.edges) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && graph.hasSelfLoop(scc[0])) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// relationGraph maps model → models it references, in declaration order.
type relationGraph struct {
	nodes []string
	edges map[string][]string

	// required marks links with at least one non-nullable foreign key.
	required map[[2]string]bool
}

func buildRelationGraph(models []meta.Model) relationGraph {
	g := relationGraph{
		edges:    make(map[string][]string),
		required: make(map[[2]string]bool),
	}

	for _, m := range models {
		g.nodes = append(g.nodes, m.Name)
		for _, f := range m.Fields {
			if !f.IsRelation() {
				continue
			}
			if !slices.Contains(g.edges[m.Name], f.ForeignKey) {
				g.edges[m.Name] = append(g.edges[m.Name], f.ForeignKey)
			}
			if !f.Nullable {
				g.required[[2]string{m.Name, f.ForeignKey}] = true
			}
		}
	}
	slices.Sort(g.nodes)
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func (g relationGraph) hasSelfLoop(node string) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of model names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph relationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// For self-loops, the path is [model, model].
// For multi-node cycles, the path is a traversal starting at the
// alphabetically first member.
func cycleSCCToWarning(scc []string, graph relationGraph) CycleWarning {
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}

	level := "warning"
	for i := 0; i+1 < len(path); i++ {
		if !graph.required[[2]string{path[i], path[i+1]}] {
			level = "info"
			break
		}
	}

	pathStr := strings.Join(path, " → ")
	if len(scc) == 1 {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Self-referencing model: %s", pathStr),
			Level:   level,
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Relation cycle detected: %s", pathStr),
		Level:   level,
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the first member, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph relationGraph) []string {
	members := slices.Sorted(slices.Values(scc))
	inSCC := make(map[string]bool, len(members))
	for _, node := range members {
		inSCC[node] = true
	}

	start := members[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph.edges[current] {
			if neighbor == current {
				continue
			}
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
