// Package cpm implements the Critical Path Method over a Gantt task snapshot.
//
// Every function here is a pure transform of its inputs. Malformed input is
// reported as data rather than as an error.
package cpm

import (
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

// Compute builds the dependency graph for tasks and links and runs the full
// critical path analysis on it.
func Compute(tasks []graph.Task, links []graph.DependencyLink) *CriticalPathResult {
	return Analyze(graph.Build(tasks, links))
}

// Analyze performs critical path method analysis on a task graph.
func Analyze(g *graph.TaskGraph) *CriticalPathResult {
	result := &CriticalPathResult{
		CriticalTasks: []string{},
		CriticalPath:  []string{},
		ScheduleInfo:  make(map[string]ScheduleInfo, g.TaskCount()),
	}

	order, acyclic := topoSort(g)
	result.TopoOrder = order
	result.Acyclic = acyclic

	es, ef, duration := forwardPass(g, order)

	if !acyclic {
		// Tasks that made it into the partial order have every predecessor
		// ordered too, so their earliest times are sound. Nothing else is.
		for _, id := range order {
			result.ScheduleInfo[id] = ScheduleInfo{ID: id, EarliestStart: es[id], EarliestFinish: ef[id]}
		}
		result.Unscheduled = unscheduled(g, order)
		return result
	}

	result.ProjectDuration = duration
	ls, lf := backwardPass(g, order, duration)

	critical := make(map[string]bool)
	for _, id := range order {
		info := classify(id, es[id], ef[id], ls[id], lf[id])
		result.ScheduleInfo[id] = info
		if info.IsCritical {
			critical[id] = true
			result.CriticalTasks = append(result.CriticalTasks, id)
		}
	}
	sort.Strings(result.CriticalTasks)

	result.CriticalPath = reconstructPath(g, critical)
	return result
}

// topoSort performs Kahn's algorithm for topological sorting. The returned
// order is complete only when acyclic is true; otherwise it holds the tasks
// that could be ordered before the cycle blocked progress.
func topoSort(g *graph.TaskGraph) (order []string, acyclic bool) {
	inDegree := make(map[string]int, g.TaskCount())
	for _, id := range g.IDs {
		inDegree[id] = len(g.Predecessors[id])
	}

	// Start with roots (in-degree 0), sorted for determinism
	var queue []string
	for _, id := range g.IDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order = make([]string, 0, g.TaskCount())
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, l := range g.Successors[node] {
			inDegree[l.Target]--
			if inDegree[l.Target] == 0 {
				newReady = append(newReady, l.Target)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	return order, len(order) == g.TaskCount()
}

// forwardPass computes earliest start and finish for every task in order.
func forwardPass(g *graph.TaskGraph, order []string) (es, ef map[string]int, duration int) {
	es = make(map[string]int, len(order))
	ef = make(map[string]int, len(order))

	for _, id := range order {
		start := 0
		for _, l := range g.Predecessors[id] {
			if f := ef[l.Source]; f > start {
				start = f
			}
		}
		es[id] = start
		ef[id] = start + g.Tasks[id].Days()
		if ef[id] > duration {
			duration = ef[id]
		}
	}
	return es, ef, duration
}

// backwardPass computes latest start and finish walking order in reverse.
func backwardPass(g *graph.TaskGraph, order []string, duration int) (ls, lf map[string]int) {
	ls = make(map[string]int, len(order))
	lf = make(map[string]int, len(order))

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		finish := duration
		for _, l := range g.Successors[id] {
			if s := ls[l.Target]; s < finish {
				finish = s
			}
		}
		lf[id] = finish
		ls[id] = finish - g.Tasks[id].Days()
	}
	return ls, lf
}

// classify derives float and criticality for one task.
// Free float is reported equal to total float.
func classify(id string, es, ef, ls, lf int) ScheduleInfo {
	totalFloat := ls - es
	if totalFloat < 0 {
		totalFloat = 0
	}
	return ScheduleInfo{
		ID:             id,
		EarliestStart:  es,
		EarliestFinish: ef,
		LatestStart:    ls,
		LatestFinish:   lf,
		TotalFloat:     totalFloat,
		FreeFloat:      totalFloat,
		IsCritical:     totalFloat == 0,
	}
}

func unscheduled(g *graph.TaskGraph, order []string) []string {
	ordered := make(map[string]bool, len(order))
	for _, id := range order {
		ordered[id] = true
	}
	var out []string
	for _, id := range g.IDs {
		if !ordered[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Waves groups scheduled tasks by their earliest start time. Inside a wave
// critical tasks come first, then ids ascending.
func Waves(result *CriticalPathResult) []Wave {
	esGroups := make(map[int][]string)
	for _, id := range result.TopoOrder {
		es := result.ScheduleInfo[id].EarliestStart
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		taskIDs := esGroups[es]
		sort.Strings(taskIDs)

		hasCritical := false
		for _, id := range taskIDs {
			if result.IsCritical(id) {
				hasCritical = true
			}
		}

		sort.SliceStable(taskIDs, func(a, b int) bool {
			aCrit := result.IsCritical(taskIDs[a])
			bCrit := result.IsCritical(taskIDs[b])
			return aCrit && !bCrit
		})

		waves[i] = Wave{
			Index:      i,
			Start:      es,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
