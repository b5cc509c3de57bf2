package graph

import (
	"sort"
)

// Build constructs a TaskGraph from a flat task list and link list.
// Only finish-to-start links between two distinct known tasks become edges;
// everything else is left out silently and is the validator's to report.
func Build(tasks []Task, links []DependencyLink) *TaskGraph {
	g := &TaskGraph{
		Tasks:        make(map[string]Task, len(tasks)),
		IDs:          make([]string, 0, len(tasks)),
		Predecessors: make(map[string][]DependencyLink, len(tasks)),
		Successors:   make(map[string][]DependencyLink, len(tasks)),
	}

	for _, t := range tasks {
		if _, dup := g.Tasks[t.ID]; dup {
			continue
		}
		g.Tasks[t.ID] = t
		g.IDs = append(g.IDs, t.ID)
		g.Predecessors[t.ID] = []DependencyLink{}
		g.Successors[t.ID] = []DependencyLink{}
	}

	for _, l := range links {
		if !g.accepts(l) {
			continue
		}
		g.Successors[l.Source] = append(g.Successors[l.Source], l)
		g.Predecessors[l.Target] = append(g.Predecessors[l.Target], l)
	}

	// Sort adjacency lists so every pass iterates in the same order
	// no matter how the caller ordered its links.
	for id := range g.Successors {
		succs := g.Successors[id]
		sort.SliceStable(succs, func(i, j int) bool { return succs[i].Target < succs[j].Target })
	}
	for id := range g.Predecessors {
		preds := g.Predecessors[id]
		sort.SliceStable(preds, func(i, j int) bool { return preds[i].Source < preds[j].Source })
	}

	for _, id := range g.IDs {
		if len(g.Predecessors[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Successors[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}
	sort.Strings(g.Roots)
	sort.Strings(g.Leaves)

	return g
}

func (g *TaskGraph) accepts(l DependencyLink) bool {
	if l.Kind != FinishToStart || l.Source == l.Target {
		return false
	}
	_, okSource := g.Tasks[l.Source]
	_, okTarget := g.Tasks[l.Target]
	return okSource && okTarget
}

// TaskCount returns the number of distinct tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.IDs)
}

// EdgeCount returns the number of links that made it into the graph.
func (g *TaskGraph) EdgeCount() int {
	n := 0
	for _, succs := range g.Successors {
		n += len(succs)
	}
	return n
}

// DetectCycle returns one cycle as a closed path (first id repeated at the end),
// or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(g.IDs))
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, l := range g.Successors[node] {
			next := l.Target
			if color[next] == gray {
				// Walk parents back from node to next, then reverse.
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := append([]string(nil), g.IDs...)
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
