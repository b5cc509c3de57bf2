package cpm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel matched by errors.Is for results computed over a
// snapshot whose finish-to-start links form a cycle.
var ErrCycle = errors.New("dependency cycle detected")

// CycleError reports the tasks that could not be scheduled because of a cycle.
type CycleError struct {
	Unscheduled []string
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Unscheduled) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %d tasks unscheduled (%s)", ErrCycle, len(e.Unscheduled), strings.Join(e.Unscheduled, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Err returns a *CycleError when the result is not acyclic, nil otherwise.
// Compute itself never fails; Err is for callers that want a hard failure.
func (r *CriticalPathResult) Err() error {
	if r.Acyclic {
		return nil
	}
	return &CycleError{Unscheduled: r.Unscheduled}
}
