package graph

import "fmt"

// LinkKind is the dependency type of a link between two tasks.
type LinkKind int

const (
	FinishToStart LinkKind = iota
	StartToStart
	FinishToFinish
	StartToFinish
)

var linkKindNames = [...]string{"finish_to_start", "start_to_start", "finish_to_finish", "start_to_finish"}

func (k LinkKind) String() string {
	if k < 0 || int(k) >= len(linkKindNames) {
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
	return linkKindNames[k]
}

// MarshalText encodes the kind by name so JSON output stays readable.
func (k LinkKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(linkKindNames) {
		return nil, fmt.Errorf("unknown link kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts either a kind name or the Gantt wire code ("0".."3").
func (k *LinkKind) UnmarshalText(text []byte) error {
	parsed, err := ParseLinkKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseLinkKind maps a Gantt link type code ("0".."3") or a kind name to a LinkKind.
func ParseLinkKind(s string) (LinkKind, error) {
	switch s {
	case "0", "finish_to_start":
		return FinishToStart, nil
	case "1", "start_to_start":
		return StartToStart, nil
	case "2", "finish_to_finish":
		return FinishToFinish, nil
	case "3", "start_to_finish":
		return StartToFinish, nil
	}
	return FinishToStart, fmt.Errorf("unknown link type %q", s)
}

// Task is the scheduling view of a Gantt task: an id and a whole-day duration.
type Task struct {
	ID       string `json:"id"`
	Duration int    `json:"duration"`
}

// MaxDuration is the longest duration, in days, a single task is scheduled
// with. Longer durations are capped so that sums along any realistic chain
// stay far from integer overflow.
const MaxDuration = 100_000

// Days returns the duration used for scheduling, clamped to [1, MaxDuration].
func (t Task) Days() int {
	if t.Duration < 1 {
		return 1
	}
	if t.Duration > MaxDuration {
		return MaxDuration
	}
	return t.Duration
}

// DependencyLink says Target depends on Source according to Kind.
type DependencyLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   LinkKind `json:"kind"`
}

// TaskGraph holds the finish-to-start dependency structure of a task snapshot.
type TaskGraph struct {
	Tasks        map[string]Task
	IDs          []string                    // task ids in input order, first occurrence wins
	Predecessors map[string][]DependencyLink // task -> links whose target it is
	Successors   map[string][]DependencyLink // task -> links whose source it is
	Roots        []string                    // tasks with no predecessors
	Leaves       []string                    // tasks with no successors
}
