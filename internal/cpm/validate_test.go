package cpm

import (
	"strings"
	"testing"

	"github.com/joshharrison/critpath/internal/graph"
)

func TestValidate_Clean(t *testing.T) {
	report := Validate([]graph.Task{task("a", 1), task("b", 1)}, []graph.DependencyLink{fs("a", "b")})

	if !report.Valid {
		t.Errorf("expected valid report, got %v", report.Errors)
	}
	if len(report.Errors) != 0 || len(report.Issues) != 0 {
		t.Errorf("expected no errors, got %v", report.Errors)
	}
}

func TestValidate_DanglingLinks(t *testing.T) {
	report := Validate(
		[]graph.Task{task("a", 1)},
		[]graph.DependencyLink{fs("ghost", "a"), fs("a", "phantom")},
	)

	if report.Valid {
		t.Fatal("expected invalid report")
	}
	kinds := issueKinds(report)
	if kinds != "dangling_source,dangling_target" {
		t.Errorf("unexpected issues: %s", kinds)
	}
	if !strings.Contains(report.Errors[0], `"ghost"`) {
		t.Errorf("expected error to name ghost, got %q", report.Errors[0])
	}
	if report.Issues[1].Link != 1 {
		t.Errorf("expected second issue on link 1, got %d", report.Issues[1].Link)
	}
}

func TestValidate_SelfLoop(t *testing.T) {
	report := Validate([]graph.Task{task("A", 1)}, []graph.DependencyLink{fs("A", "A")})

	if report.Valid {
		t.Fatal("expected invalid report")
	}
	if kinds := issueKinds(report); kinds != "self_loop" {
		t.Errorf("expected only a self-loop issue, got %s", kinds)
	}
}

func TestValidate_SelfLoopOnNonFinishToStart(t *testing.T) {
	report := Validate(
		[]graph.Task{task("A", 1)},
		[]graph.DependencyLink{{Source: "A", Target: "A", Kind: graph.StartToStart}},
	)

	if kinds := issueKinds(report); kinds != "self_loop" {
		t.Errorf("expected self-loop issue, got %s", kinds)
	}
}

func TestValidate_Cycle(t *testing.T) {
	report := Validate(
		[]graph.Task{task("A", 1), task("B", 1)},
		[]graph.DependencyLink{fs("A", "B"), fs("B", "A")},
	)

	if report.Valid {
		t.Fatal("expected invalid report")
	}
	if kinds := issueKinds(report); kinds != "cycle" {
		t.Fatalf("expected cycle issue, got %s", kinds)
	}
	if report.Errors[0] != "dependency cycle detected: A -> B -> A" {
		t.Errorf("unexpected cycle message %q", report.Errors[0])
	}
}

func TestValidate_CycleOnlyThroughFinishToStart(t *testing.T) {
	report := Validate(
		[]graph.Task{task("A", 1), task("B", 1)},
		[]graph.DependencyLink{fs("A", "B"), {Source: "B", Target: "A", Kind: graph.FinishToFinish}},
	)

	if !report.Valid {
		t.Errorf("expected valid report, got %v", report.Errors)
	}
}

func TestValidate_DuplicateTask(t *testing.T) {
	report := Validate([]graph.Task{task("a", 1), task("a", 2), task("a", 3)}, nil)

	if kinds := issueKinds(report); kinds != "duplicate_task" {
		t.Errorf("expected one duplicate issue, got %s", kinds)
	}
}

func TestValidate_DoesNotAffectCompute(t *testing.T) {
	tasks := []graph.Task{task("a", 2), task("b", 1)}
	links := []graph.DependencyLink{fs("a", "b"), fs("a", "missing"), fs("b", "b")}

	before := Compute(tasks, links)
	Validate(tasks, links)
	after := Compute(tasks, links)

	if before.ProjectDuration != 3 || after.ProjectDuration != 3 {
		t.Errorf("expected duration 3 before and after, got %d and %d", before.ProjectDuration, after.ProjectDuration)
	}
}

func issueKinds(r *ValidationReport) string {
	kinds := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		kinds[i] = issue.Kind.String()
	}
	return strings.Join(kinds, ",")
}
