// Package gantt reads task snapshots out of the Gantt application, either from
// its JSON export or from its SQLite database, and strips them down to the
// shapes the critical path engine works on.
package gantt

import (
	"github.com/joshharrison/critpath/internal/graph"
)

// Views the application splits its tasks into.
const (
	ViewProject = "project"
	ViewProduct = "product"
)

// TaskRecord is a task as the Gantt application stores it.
type TaskRecord struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Parent      string  `json:"parent,omitempty"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Duration    int     `json:"duration"`
	Progress    float64 `json:"progress"`
	Status      string  `json:"status"`
	Owner       string  `json:"owner"`
	Phase       string  `json:"phase"`
	Priority    string  `json:"priority"`
	IsMilestone bool    `json:"is_milestone"`
	View        string  `json:"view"`
}

// LinkRecord is a dependency link as the Gantt application stores it.
// Type is the wire code: "0" finish-to-start, "1" start-to-start,
// "2" finish-to-finish, "3" start-to-finish.
type LinkRecord struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Snapshot is the full set of tasks and links at one point in time.
type Snapshot struct {
	Tasks []TaskRecord `json:"tasks"`
	Links []LinkRecord `json:"links"`
}

// Engine strips the snapshot to engine inputs. Links whose type code does not
// parse are left out and their indexes returned in skipped.
func (s *Snapshot) Engine() (tasks []graph.Task, links []graph.DependencyLink, skipped []int) {
	tasks = make([]graph.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		tasks = append(tasks, graph.Task{ID: t.ID, Duration: t.Duration})
	}

	links = make([]graph.DependencyLink, 0, len(s.Links))
	for i, l := range s.Links {
		kind, err := graph.ParseLinkKind(l.Type)
		if err != nil {
			skipped = append(skipped, i)
			continue
		}
		links = append(links, graph.DependencyLink{Source: l.Source, Target: l.Target, Kind: kind})
	}
	return tasks, links, skipped
}

// FilterView returns the tasks belonging to view, plus the links whose two
// endpoints both belong to it. Tasks without a view count as project tasks.
// An empty view returns the snapshot unchanged.
func (s *Snapshot) FilterView(view string) *Snapshot {
	if view == "" {
		return s
	}

	out := &Snapshot{}
	keep := make(map[string]bool)
	for _, t := range s.Tasks {
		if taskView(t) == view {
			out.Tasks = append(out.Tasks, t)
			keep[t.ID] = true
		}
	}
	for _, l := range s.Links {
		if keep[l.Source] && keep[l.Target] {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

// Titles maps task ids to their display text.
func (s *Snapshot) Titles() map[string]string {
	titles := make(map[string]string, len(s.Tasks))
	for _, t := range s.Tasks {
		titles[t.ID] = t.Text
	}
	return titles
}

func taskView(t TaskRecord) string {
	if t.View == "" {
		return ViewProject
	}
	return t.View
}
