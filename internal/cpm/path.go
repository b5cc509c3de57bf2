package cpm

import (
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

// reconstructPath walks critical tasks from every critical root along links
// into other critical tasks and returns the longest chain found, counted in
// tasks. Roots and successors are visited in ascending id order and only a
// strictly longer chain replaces the current best, so equal-length chains
// resolve to the one that sorts first.
//
// The visited set spans the whole reconstruction: a task already claimed by
// an earlier branch is not walked again.
func reconstructPath(g *graph.TaskGraph, critical map[string]bool) []string {
	if len(critical) == 0 {
		return []string{}
	}

	var starts []string
	for _, id := range g.Roots {
		if critical[id] {
			starts = append(starts, id)
		}
	}
	sort.Strings(starts)

	visited := make(map[string]bool, len(critical))

	var walk func(id string) []string
	walk = func(id string) []string {
		if visited[id] {
			return nil
		}
		visited[id] = true

		var next []string
		for _, l := range g.Successors[id] {
			if critical[l.Target] {
				next = append(next, l.Target)
			}
		}
		if len(next) == 0 {
			return []string{id}
		}
		sort.Strings(next)

		// Yields nil when every critical successor was claimed already.
		var longest []string
		for _, succ := range next {
			sub := walk(succ)
			if len(sub) > 0 && len(sub)+1 > len(longest) {
				longest = append([]string{id}, sub...)
			}
		}
		return longest
	}

	path := []string{}
	for _, start := range starts {
		if p := walk(start); len(p) > len(path) {
			path = p
		}
	}
	return path
}
