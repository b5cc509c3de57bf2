package cpm

import (
	"fmt"
	"strings"

	"github.com/joshharrison/critpath/internal/graph"
)

// IssueKind classifies a structural problem found by Validate.
type IssueKind int

const (
	DanglingSource IssueKind = iota
	DanglingTarget
	SelfLoop
	DuplicateTask
	Cycle
)

var issueKindNames = [...]string{"dangling_source", "dangling_target", "self_loop", "duplicate_task", "cycle"}

func (k IssueKind) String() string {
	if k < 0 || int(k) >= len(issueKindNames) {
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
	return issueKindNames[k]
}

func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Issue is one structural problem. Link is the index of the offending link in
// the input, or -1 for task-level and cycle issues.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Link   int       `json:"link"`
	Source string    `json:"source,omitempty"`
	Target string    `json:"target,omitempty"`
	Tasks  []string  `json:"tasks,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case DanglingSource:
		return fmt.Sprintf("link %d references unknown source task %q", i.Link, i.Source)
	case DanglingTarget:
		return fmt.Sprintf("link %d references unknown target task %q", i.Link, i.Target)
	case SelfLoop:
		return fmt.Sprintf("link %d: task %q cannot depend on itself", i.Link, i.Source)
	case DuplicateTask:
		return fmt.Sprintf("task id %q appears more than once", i.Tasks[0])
	case Cycle:
		if len(i.Tasks) == 0 {
			return "dependency cycle detected"
		}
		return "dependency cycle detected: " + strings.Join(i.Tasks, " -> ")
	}
	return i.Kind.String()
}

// Validate reports dangling links, self loops, duplicate task ids and
// finish-to-start cycles. It never changes what Compute does with the same
// input: the links it flags are the ones the graph builder drops.
func Validate(tasks []graph.Task, links []graph.DependencyLink) *ValidationReport {
	var issues []Issue

	known := make(map[string]bool, len(tasks))
	reported := make(map[string]bool)
	for _, t := range tasks {
		if known[t.ID] {
			if !reported[t.ID] {
				reported[t.ID] = true
				issues = append(issues, Issue{Kind: DuplicateTask, Link: -1, Tasks: []string{t.ID}})
			}
			continue
		}
		known[t.ID] = true
	}

	for i, l := range links {
		if !known[l.Source] {
			issues = append(issues, Issue{Kind: DanglingSource, Link: i, Source: l.Source, Target: l.Target})
		}
		if !known[l.Target] {
			issues = append(issues, Issue{Kind: DanglingTarget, Link: i, Source: l.Source, Target: l.Target})
		}
		if l.Source == l.Target {
			issues = append(issues, Issue{Kind: SelfLoop, Link: i, Source: l.Source, Target: l.Target})
		}
	}

	g := graph.Build(tasks, links)
	if _, acyclic := topoSort(g); !acyclic {
		issues = append(issues, Issue{Kind: Cycle, Link: -1, Tasks: g.DetectCycle()})
	}

	report := &ValidationReport{
		Valid:  len(issues) == 0,
		Errors: make([]string, 0, len(issues)),
		Issues: issues,
	}
	if report.Issues == nil {
		report.Issues = []Issue{}
	}
	for _, issue := range issues {
		report.Errors = append(report.Errors, issue.String())
	}
	return report
}
