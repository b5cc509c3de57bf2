package cpm

import (
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

// CriticalPathResult holds the complete critical path analysis of a snapshot.
// Time values are whole-day offsets from project start (day 0).
type CriticalPathResult struct {
	CriticalTasks   []string                `json:"critical_tasks"` // ascending, no duplicates
	CriticalPath    []string                `json:"critical_path"`  // ordered start -> end
	ProjectDuration int                     `json:"project_duration"`
	ScheduleInfo    map[string]ScheduleInfo `json:"schedule_info"`
	Acyclic         bool                    `json:"acyclic"`

	TopoOrder   []string `json:"topo_order"`            // partial when Acyclic is false
	Unscheduled []string `json:"unscheduled,omitempty"` // tasks Kahn's algorithm could not order
}

// ScheduleInfo holds the CPM timing of a single task.
//
// When the snapshot has a cycle only EarliestStart and EarliestFinish are
// filled in, and only for tasks that could be ordered.
type ScheduleInfo struct {
	ID             string `json:"id"`
	EarliestStart  int    `json:"earliest_start"`
	EarliestFinish int    `json:"earliest_finish"`
	LatestStart    int    `json:"latest_start"`
	LatestFinish   int    `json:"latest_finish"`
	TotalFloat     int    `json:"total_float"`
	FreeFloat      int    `json:"free_float"` // equal to TotalFloat
	IsCritical     bool   `json:"is_critical"`
}

// IsCritical reports whether id is a critical task.
func (r *CriticalPathResult) IsCritical(id string) bool {
	info, ok := r.ScheduleInfo[id]
	return ok && info.IsCritical
}

// Wave represents a group of tasks sharing the same earliest start.
type Wave struct {
	Index      int      `json:"index"`
	Start      int      `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"` // true if wave contains critical tasks
}

// ValidationReport lists the structural problems found in a snapshot.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Issues []Issue  `json:"issues"`
}

// CriticalLinks returns the finish-to-start links joining consecutive tasks
// on the critical path, in path order.
func CriticalLinks(r *CriticalPathResult, links []graph.DependencyLink) []graph.DependencyLink {
	pos := make(map[string]int, len(r.CriticalPath))
	for i, id := range r.CriticalPath {
		pos[id] = i
	}

	var out []graph.DependencyLink
	seen := make(map[[2]string]bool)
	for _, l := range links {
		if l.Kind != graph.FinishToStart {
			continue
		}
		i, okSource := pos[l.Source]
		j, okTarget := pos[l.Target]
		key := [2]string{l.Source, l.Target}
		if !okSource || !okTarget || j != i+1 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	sort.SliceStable(out, func(a, b int) bool { return pos[out[a].Source] < pos[out[b].Source] })
	return out
}
