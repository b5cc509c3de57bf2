package cpm

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joshharrison/critpath/internal/graph"
)

func task(id string, days int) graph.Task {
	return graph.Task{ID: id, Duration: days}
}

func fs(source, target string) graph.DependencyLink {
	return graph.DependencyLink{Source: source, Target: target, Kind: graph.FinishToStart}
}

func TestCompute_TwoTaskChain(t *testing.T) {
	// A(3) -> B(2)
	result := Compute([]graph.Task{task("A", 3), task("B", 2)}, []graph.DependencyLink{fs("A", "B")})

	if !result.Acyclic {
		t.Fatal("expected acyclic result")
	}
	if result.ProjectDuration != 5 {
		t.Errorf("expected project duration 5, got %d", result.ProjectDuration)
	}

	assertSchedule(t, result.ScheduleInfo["A"], 0, 3, 0, 3, 0, true)
	assertSchedule(t, result.ScheduleInfo["B"], 3, 5, 3, 5, 0, true)

	if diff := cmp.Diff([]string{"A", "B"}, result.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, result.CriticalTasks); diff != "" {
		t.Errorf("critical tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_MergeDrivenByLongerPredecessor(t *testing.T) {
	// A(3) -> C(2)
	// B(1) -> C(2)
	result := Compute(
		[]graph.Task{task("A", 3), task("B", 1), task("C", 2)},
		[]graph.DependencyLink{fs("A", "C"), fs("B", "C")},
	)

	if result.ProjectDuration != 5 {
		t.Errorf("expected project duration 5, got %d", result.ProjectDuration)
	}
	if es := result.ScheduleInfo["C"].EarliestStart; es != 3 {
		t.Errorf("expected C earliest start 3, got %d", es)
	}

	assertSchedule(t, result.ScheduleInfo["A"], 0, 3, 0, 3, 0, true)
	assertSchedule(t, result.ScheduleInfo["B"], 0, 1, 2, 3, 2, false)
	assertSchedule(t, result.ScheduleInfo["C"], 3, 5, 3, 5, 0, true)

	if b := result.ScheduleInfo["B"]; b.FreeFloat != b.TotalFloat {
		t.Errorf("expected free float to equal total float, got %d vs %d", b.FreeFloat, b.TotalFloat)
	}
	if diff := cmp.Diff([]string{"A", "C"}, result.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_Cycle(t *testing.T) {
	result := Compute(
		[]graph.Task{task("A", 1), task("B", 1)},
		[]graph.DependencyLink{fs("A", "B"), fs("B", "A")},
	)

	if result.Acyclic {
		t.Fatal("expected cyclic result")
	}
	if len(result.ScheduleInfo) != 0 {
		t.Errorf("expected no schedule info, got %v", result.ScheduleInfo)
	}
	if len(result.CriticalPath) != 0 || len(result.CriticalTasks) != 0 {
		t.Errorf("expected no critical tasks, got %v / %v", result.CriticalTasks, result.CriticalPath)
	}
	if result.ProjectDuration != 0 {
		t.Errorf("expected project duration 0, got %d", result.ProjectDuration)
	}
	if diff := cmp.Diff([]string{"A", "B"}, result.Unscheduled); diff != "" {
		t.Errorf("unscheduled mismatch (-want +got):\n%s", diff)
	}

	err := result.Err()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) || len(cycleErr.Unscheduled) != 2 {
		t.Errorf("expected CycleError with 2 unscheduled tasks, got %v", err)
	}
}

func TestCompute_PartialScheduleOnCycle(t *testing.T) {
	// a -> b <-> c, d independent
	result := Compute(
		[]graph.Task{task("a", 2), task("b", 1), task("c", 1), task("d", 4)},
		[]graph.DependencyLink{fs("a", "b"), fs("b", "c"), fs("c", "b")},
	)

	if result.Acyclic {
		t.Fatal("expected cyclic result")
	}
	if diff := cmp.Diff([]string{"a", "d"}, result.TopoOrder); diff != "" {
		t.Errorf("partial order mismatch (-want +got):\n%s", diff)
	}
	if len(result.ScheduleInfo) != 2 {
		t.Fatalf("expected schedule info for a and d only, got %v", result.ScheduleInfo)
	}
	if d := result.ScheduleInfo["d"]; d.EarliestStart != 0 || d.EarliestFinish != 4 || d.IsCritical {
		t.Errorf("unexpected partial schedule for d: %+v", d)
	}
	if diff := cmp.Diff([]string{"b", "c"}, result.Unscheduled); diff != "" {
		t.Errorf("unscheduled mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_IsolatedTaskMatchingDuration(t *testing.T) {
	result := Compute(
		[]graph.Task{task("A", 3), task("B", 2), task("D", 5)},
		[]graph.DependencyLink{fs("A", "B")},
	)

	if result.ProjectDuration != 5 {
		t.Fatalf("expected project duration 5, got %d", result.ProjectDuration)
	}
	assertSchedule(t, result.ScheduleInfo["D"], 0, 5, 0, 5, 0, true)

	if diff := cmp.Diff([]string{"A", "B", "D"}, result.CriticalTasks); diff != "" {
		t.Errorf("critical tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, result.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_SelfLoopIgnored(t *testing.T) {
	tasks := []graph.Task{task("A", 2), task("B", 3)}

	withLoop := Compute(tasks, []graph.DependencyLink{fs("A", "A")})
	without := Compute(tasks, nil)

	if diff := cmp.Diff(without, withLoop); diff != "" {
		t.Errorf("self loop changed the result (-without +with):\n%s", diff)
	}
}

func TestCompute_NonFinishToStartIgnored(t *testing.T) {
	tasks := []graph.Task{task("A", 2), task("B", 3)}
	links := []graph.DependencyLink{
		{Source: "A", Target: "B", Kind: graph.StartToStart},
		{Source: "A", Target: "B", Kind: graph.FinishToFinish},
		{Source: "B", Target: "A", Kind: graph.StartToFinish},
	}

	if diff := cmp.Diff(Compute(tasks, nil), Compute(tasks, links)); diff != "" {
		t.Errorf("non-FS links changed the result:\n%s", diff)
	}
}

func TestCompute_Empty(t *testing.T) {
	result := Compute(nil, nil)

	if !result.Acyclic {
		t.Error("empty input should be acyclic")
	}
	if result.ProjectDuration != 0 {
		t.Errorf("expected duration 0, got %d", result.ProjectDuration)
	}
	if result.CriticalTasks == nil || result.CriticalPath == nil || result.ScheduleInfo == nil {
		t.Error("expected empty, non-nil collections")
	}
	if result.Err() != nil {
		t.Errorf("expected no error, got %v", result.Err())
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"critical_tasks":[],"critical_path":[],"project_duration":0,"schedule_info":{},"acyclic":true,"topo_order":[]}`
	if string(data) != want {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", data, want)
	}
}

func TestCompute_DurationClamped(t *testing.T) {
	result := Compute([]graph.Task{task("zero", 0), task("neg", -4)}, []graph.DependencyLink{fs("zero", "neg")})

	assertSchedule(t, result.ScheduleInfo["zero"], 0, 1, 0, 1, 0, true)
	assertSchedule(t, result.ScheduleInfo["neg"], 1, 2, 1, 2, 0, true)
}

func TestCompute_HugeDurationsDoNotOverflow(t *testing.T) {
	tasks := []graph.Task{task("A", math.MaxInt), task("B", 5), task("C", math.MaxInt-1), task("D", 1)}
	links := []graph.DependencyLink{fs("A", "B"), fs("C", "D")}

	result := Compute(tasks, links)
	checkInvariants(t, tasks, links, result)

	if want := graph.MaxDuration + 5; result.ProjectDuration != want {
		t.Errorf("expected project duration %d, got %d", want, result.ProjectDuration)
	}
	assertSchedule(t, result.ScheduleInfo["B"], graph.MaxDuration, graph.MaxDuration+5, graph.MaxDuration, graph.MaxDuration+5, 0, true)
	assertSchedule(t, result.ScheduleInfo["D"], graph.MaxDuration, graph.MaxDuration+1, graph.MaxDuration+4, graph.MaxDuration+5, 4, false)
}

func TestCompute_WithEstimates(t *testing.T) {
	// A(5) -> B(1) -> D(1)
	// A(5) -> C(10) -> D(1)
	result := Compute(
		[]graph.Task{task("a", 5), task("b", 1), task("c", 10), task("d", 1)},
		[]graph.DependencyLink{fs("a", "b"), fs("a", "c"), fs("b", "d"), fs("c", "d")},
	)

	if result.ProjectDuration != 16 {
		t.Errorf("expected total duration 16, got %d", result.ProjectDuration)
	}
	if result.IsCritical("b") {
		t.Error("expected task B to NOT be critical")
	}
	if f := result.ScheduleInfo["b"].TotalFloat; f != 9 {
		t.Errorf("expected B float=9, got %d", f)
	}
	if diff := cmp.Diff([]string{"a", "c", "d"}, result.CriticalPath); diff != "" {
		t.Errorf("critical path mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	tasks, links := randomDAG(rand.New(rand.NewSource(7)), 40)

	first, err := json.Marshal(Compute(tasks, links))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(Compute(tasks, links))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Error("expected identical output for identical input")
	}
}

func TestCompute_LinkOrderIrrelevant(t *testing.T) {
	tasks, links := randomDAG(rand.New(rand.NewSource(11)), 30)

	reversed := make([]graph.DependencyLink, len(links))
	for i, l := range links {
		reversed[len(links)-1-i] = l
	}

	if diff := cmp.Diff(Compute(tasks, links), Compute(tasks, reversed)); diff != "" {
		t.Errorf("link order changed the result:\n%s", diff)
	}
}

func TestCompute_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		tasks, links := randomDAG(rng, 1+rng.Intn(25))
		result := Compute(tasks, links)
		if !result.Acyclic {
			t.Fatalf("round %d: forward-only links must be acyclic", round)
		}
		checkInvariants(t, tasks, links, result)
	}
}

func TestCompute_RemovingFloatingLeafKeepsDuration(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 30; round++ {
		tasks, links := randomDAG(rng, 2+rng.Intn(20))
		result := Compute(tasks, links)
		g := graph.Build(tasks, links)

		for _, id := range g.Leaves {
			if result.ScheduleInfo[id].TotalFloat == 0 {
				continue
			}
			var keptTasks []graph.Task
			for _, tk := range tasks {
				if tk.ID != id {
					keptTasks = append(keptTasks, tk)
				}
			}
			var keptLinks []graph.DependencyLink
			for _, l := range links {
				if l.Target != id {
					keptLinks = append(keptLinks, l)
				}
			}
			if got := Compute(keptTasks, keptLinks).ProjectDuration; got != result.ProjectDuration {
				t.Errorf("round %d: removing %s changed duration %d -> %d", round, id, result.ProjectDuration, got)
			}
		}
	}
}

func TestWaves(t *testing.T) {
	//     A
	//   / | \
	//  B  C  D
	//   \ | /
	//     E
	result := Compute(
		[]graph.Task{task("a", 1), task("b", 1), task("c", 2), task("d", 1), task("e", 1)},
		[]graph.DependencyLink{fs("a", "b"), fs("a", "c"), fs("a", "d"), fs("b", "e"), fs("c", "e"), fs("d", "e")},
	)

	waves := Waves(result)
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	if diff := cmp.Diff([]string{"c", "b", "d"}, waves[1].TaskIDs); diff != "" {
		t.Errorf("expected critical task first in wave 1 (-want +got):\n%s", diff)
	}
	if waves[2].Start != 3 || !waves[2].IsCritical {
		t.Errorf("unexpected last wave: %+v", waves[2])
	}
}

func TestCriticalLinks(t *testing.T) {
	links := []graph.DependencyLink{fs("A", "C"), fs("B", "C"), {Source: "A", Target: "C", Kind: graph.StartToStart}}
	result := Compute([]graph.Task{task("A", 3), task("B", 1), task("C", 2)}, links)

	got := CriticalLinks(result, links)
	if diff := cmp.Diff([]graph.DependencyLink{fs("A", "C")}, got); diff != "" {
		t.Errorf("critical links mismatch (-want +got):\n%s", diff)
	}
}

// randomDAG builds n tasks with links only from lower to higher index.
func randomDAG(rng *rand.Rand, n int) ([]graph.Task, []graph.DependencyLink) {
	tasks := make([]graph.Task, n)
	for i := range tasks {
		tasks[i] = task(string(rune('a'+i%26))+string(rune('0'+i/26)), rng.Intn(6))
	}
	var links []graph.DependencyLink
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Intn(4) == 0 {
				links = append(links, fs(tasks[i].ID, tasks[j].ID))
			}
		}
	}
	return tasks, links
}

func checkInvariants(t *testing.T, tasks []graph.Task, links []graph.DependencyLink, r *CriticalPathResult) {
	t.Helper()

	maxEF, maxLF, critical := 0, 0, 0
	for _, tk := range tasks {
		info, ok := r.ScheduleInfo[tk.ID]
		if !ok {
			t.Fatalf("missing schedule info for %s", tk.ID)
		}
		if info.EarliestFinish != info.EarliestStart+tk.Days() {
			t.Errorf("%s: EF %d != ES %d + %d", tk.ID, info.EarliestFinish, info.EarliestStart, tk.Days())
		}
		if info.TotalFloat != info.LatestStart-info.EarliestStart || info.TotalFloat < 0 {
			t.Errorf("%s: bad total float %d (LS %d, ES %d)", tk.ID, info.TotalFloat, info.LatestStart, info.EarliestStart)
		}
		if info.IsCritical != (info.TotalFloat == 0) {
			t.Errorf("%s: critical=%v with float %d", tk.ID, info.IsCritical, info.TotalFloat)
		}
		if info.EarliestFinish > maxEF {
			maxEF = info.EarliestFinish
		}
		if info.LatestFinish > maxLF {
			maxLF = info.LatestFinish
		}
		if info.IsCritical {
			critical++
		}
	}
	if r.ProjectDuration != maxEF || r.ProjectDuration != maxLF {
		t.Errorf("duration %d, max EF %d, max LF %d", r.ProjectDuration, maxEF, maxLF)
	}
	if len(tasks) > 0 && critical == 0 {
		t.Error("expected at least one critical task")
	}

	for _, l := range links {
		a, b := r.ScheduleInfo[l.Source], r.ScheduleInfo[l.Target]
		if b.EarliestStart < a.EarliestFinish {
			t.Errorf("link %s->%s: ES(b)=%d < EF(a)=%d", l.Source, l.Target, b.EarliestStart, a.EarliestFinish)
		}
		if a.LatestFinish > b.LatestStart {
			t.Errorf("link %s->%s: LF(a)=%d > LS(b)=%d", l.Source, l.Target, a.LatestFinish, b.LatestStart)
		}
	}

	linked := make(map[[2]string]bool, len(links))
	for _, l := range links {
		linked[[2]string{l.Source, l.Target}] = true
	}
	for i, id := range r.CriticalPath {
		if !r.IsCritical(id) {
			t.Errorf("path task %s is not critical", id)
		}
		if i > 0 && !linked[[2]string{r.CriticalPath[i-1], id}] {
			t.Errorf("path step %s -> %s is not a link", r.CriticalPath[i-1], id)
		}
	}
}

func assertSchedule(t *testing.T, ts ScheduleInfo, es, ef, ls, lf, float int, critical bool) {
	t.Helper()
	if ts.EarliestStart != es {
		t.Errorf("task %s: expected ES=%d, got %d", ts.ID, es, ts.EarliestStart)
	}
	if ts.EarliestFinish != ef {
		t.Errorf("task %s: expected EF=%d, got %d", ts.ID, ef, ts.EarliestFinish)
	}
	if ts.LatestStart != ls {
		t.Errorf("task %s: expected LS=%d, got %d", ts.ID, ls, ts.LatestStart)
	}
	if ts.LatestFinish != lf {
		t.Errorf("task %s: expected LF=%d, got %d", ts.ID, lf, ts.LatestFinish)
	}
	if ts.TotalFloat != float {
		t.Errorf("task %s: expected float=%d, got %d", ts.ID, float, ts.TotalFloat)
	}
	if ts.IsCritical != critical {
		t.Errorf("task %s: expected critical=%v, got %v", ts.ID, critical, ts.IsCritical)
	}
}
