// Package reporter renders critical path results for terminals, Graphviz and
// machine consumers.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/ui"
)

// Reporter renders one analysed snapshot.
type Reporter struct {
	Graph  *graph.TaskGraph
	Result *cpm.CriticalPathResult
	Links  []graph.DependencyLink
	Titles map[string]string // optional display text per task id
}

// New creates a Reporter. titles may be nil.
func New(g *graph.TaskGraph, result *cpm.CriticalPathResult, links []graph.DependencyLink, titles map[string]string) *Reporter {
	return &Reporter{Graph: g, Result: result, Links: links, Titles: titles}
}

// Report is the JSON document written by --json and the export command.
type Report struct {
	*cpm.CriticalPathResult
	Waves         []cpm.Wave             `json:"waves"`
	CriticalLinks []graph.DependencyLink `json:"critical_links"`
}

// Report assembles the JSON document.
func (r *Reporter) Report() Report {
	links := cpm.CriticalLinks(r.Result, r.Links)
	if links == nil {
		links = []graph.DependencyLink{}
	}
	return Report{
		CriticalPathResult: r.Result,
		Waves:              cpm.Waves(r.Result),
		CriticalLinks:      links,
	}
}

// JSON returns the indented JSON document.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Report(), "", "  ")
}

// PrintSchedule writes the summary header and the per-task schedule table.
func (r *Reporter) PrintSchedule(w io.Writer) {
	res := r.Result

	fmt.Fprintf(w, "🎯 %s\n", ui.BoldCyan("Critical Path Analysis"))
	fmt.Fprintln(w, ui.Cyan("══════════════════════════"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tasks:     %s (%d dependencies)\n", ui.Bold(r.Graph.TaskCount()), r.Graph.EdgeCount())

	if !res.Acyclic {
		fmt.Fprintf(w, "%s %s\n", ui.BoldRed("✗ Cycle:"), ui.Red(strings.Join(r.Graph.DetectCycle(), " → ")))
		fmt.Fprintf(w, "Unscheduled: %s\n\n", strings.Join(res.Unscheduled, ", "))
	} else {
		fmt.Fprintf(w, "Duration:  %s days\n", ui.Bold(res.ProjectDuration))
		if len(res.CriticalPath) > 0 {
			fmt.Fprintf(w, "⚡ Critical path: %s (%d tasks, %d critical overall)\n",
				ui.BoldYellow(strings.Join(res.CriticalPath, " → ")), len(res.CriticalPath), len(res.CriticalTasks))
		}
		fmt.Fprintln(w)
	}

	if len(res.TopoOrder) == 0 {
		return
	}

	// Late dates and float only exist once the backward pass has run.
	late := func(v int) string {
		if !res.Acyclic {
			return "-"
		}
		return fmt.Sprint(v)
	}

	fmt.Fprintf(w, "    %-12s %-32s %5s %5s %5s %5s %6s\n", "TASK", "TITLE", "ES", "EF", "LS", "LF", "FLOAT")
	for _, id := range res.TopoOrder {
		info := res.ScheduleInfo[id]
		floatCol := ui.Dim("-")
		if res.Acyclic {
			floatCol = ui.FloatLabel(info.TotalFloat)
		}
		fmt.Fprintf(w, "  %s %s %-32s %5d %5d %5s %5s %6s\n",
			ui.CriticalMark(info.IsCritical),
			ui.TaskID(fmt.Sprintf("%-12s", id)),
			truncate(r.title(id), 32),
			info.EarliestStart, info.EarliestFinish,
			late(info.LatestStart), late(info.LatestFinish),
			floatCol)
	}
}

// PrintASCII writes the tasks grouped into waves of equal earliest start,
// with each task's successors underneath.
func (r *Reporter) PrintASCII(w io.Writer) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range cpm.Waves(r.Result) {
		fmt.Fprintf(w, "%s 🌊 Wave %d (day %d) %s\n", ui.Cyan("──"), wave.Index+1, wave.Start, ui.Cyan("──────────────────────"))
		for _, id := range wave.TaskIDs {
			fmt.Fprintf(w, "  %s [%s] %s\n", ui.CriticalMark(r.Result.IsCritical(id)), ui.TaskID(id), r.title(id))
			for _, l := range r.Graph.Successors[id] {
				fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.Magenta(l.Target))
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Result.Unscheduled) > 0 {
		fmt.Fprintf(w, "%s %s\n", ui.BoldRed("Unscheduled (cycle):"), strings.Join(r.Result.Unscheduled, ", "))
	}
}

// PrintDOT writes a Graphviz digraph. Critical tasks and the links along the
// critical path are drawn in red.
func (r *Reporter) PrintDOT(w io.Writer) {
	fmt.Fprintln(w, "digraph critpath {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	ids := make([]string, 0, len(r.Graph.Tasks))
	for id := range r.Graph.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		label := id
		if title := r.title(id); title != "" {
			label = id + `\n` + escapeDOT(title)
		}
		info, scheduled := r.Result.ScheduleInfo[id]
		if scheduled && r.Result.Acyclic {
			label += fmt.Sprintf(`\n%d-%d float %d`, info.EarliestStart, info.EarliestFinish, info.TotalFloat)
		}
		attrs := fmt.Sprintf(`label="%s"`, label)
		if info.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}

	fmt.Fprintln(w)

	critical := make(map[[2]string]bool)
	for _, l := range cpm.CriticalLinks(r.Result, r.Links) {
		critical[[2]string{l.Source, l.Target}] = true
	}
	for _, from := range ids {
		for _, l := range r.Graph.Successors[from] {
			style := ""
			if critical[[2]string{l.Source, l.Target}] {
				style = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", l.Source, l.Target, style)
		}
	}

	fmt.Fprintln(w, "}")
}

// PrintValidation writes a validation report. It returns report.Valid.
func PrintValidation(w io.Writer, report *cpm.ValidationReport) bool {
	if report.Valid {
		fmt.Fprintf(w, "%s %s\n", ui.ValidIcon(true), ui.BoldGreen("Dependency graph is valid"))
		return true
	}

	fmt.Fprintf(w, "%s %s\n", ui.ValidIcon(false), ui.BoldRed(fmt.Sprintf("%d problem(s) found", len(report.Issues))))
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  %s %s\n", ui.Dim(fmt.Sprintf("[%s]", issue.Kind)), issue)
	}
	return false
}

func (r *Reporter) title(id string) string {
	return r.Titles[id]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func escapeDOT(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
