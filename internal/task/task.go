// Package task implements sampling tasks: their decomposition into
// per-region subtasks and the begin/commit/rollback transaction protocol
// that guards how those subtasks are credited.
package task

import (
	"fmt"

	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/simerr"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

// Requirement describes the sensor a task needs.
type Requirement struct {
	Category string
	Accuracy float64
}

// Task is a sampling task spread over a target area and an active time
// window, decomposed at publish time into a set of per-region subtasks.
type Task struct {
	ID        int
	Required  Requirement
	Area      geo.Area
	TimeRange timeline.TimeRange

	TR        []geo.Region
	Remaining map[int]int // region id -> samples still required
	Finished  bool
	Alive     bool
}

// New builds an unpublished task; call Publish before using it in
// allocation.
func New(id int, required Requirement, area geo.Area, tr timeline.TimeRange) *Task {
	return &Task{ID: id, Required: required, Area: area, TimeRange: tr, Alive: true}
}

// Publish decomposes the task's area against grid into its TR (regions whose
// center lies inside the area, ascending by id) and initializes each
// region's remaining-sample counter to gamma.
func (t *Task) Publish(grid geo.Grid, gamma int) {
	t.TR = grid.Overlapping(t.Area)
	t.Remaining = make(map[int]int, len(t.TR))
	for _, r := range t.TR {
		t.Remaining[r.ID] = gamma
	}
}

// AdequateSensor reports whether s satisfies this task's sensor requirement.
func (t *Task) AdequateSensor(s sensor.Sensor) bool {
	return s.Adequate(t.Required.Category, t.Required.Accuracy)
}

// Begin decrements the remaining counter for region reg at the start of a
// sensing step. It returns ErrStateViolation if the subtask was already
// fully satisfied — sensing a region with zero remaining samples is a bug
// in the allocator, not a business failure.
func (t *Task) Begin(regID int) error {
	remaining, ok := t.Remaining[regID]
	if !ok {
		return fmt.Errorf("task %d: region %d not in TR: %w", t.ID, regID, simerr.ErrStateViolation)
	}
	if remaining <= 0 {
		return fmt.Errorf("task %d: region %d has no remaining samples: %w", t.ID, regID, simerr.ErrStateViolation)
	}
	t.Remaining[regID] = remaining - 1
	t.refreshFinished()
	return nil
}

// Commit finalizes a sample taken at submitTime. If submitTime falls
// outside the task's active window the sample is rolled back (the region's
// counter is restored) and ErrOvertime is returned; the task is also marked
// not alive if submitTime is past the window's end.
func (t *Task) Commit(regID int, submitTime float64) error {
	if !t.TimeRange.Contains(submitTime) {
		t.Remaining[regID]++
		t.Finished = false
		if submitTime >= t.TimeRange.End {
			t.Alive = false
		}
		return fmt.Errorf("task %d region %d submitted at %.2f outside %v: %w",
			t.ID, regID, submitTime, t.TimeRange, simerr.ErrOvertime)
	}
	return nil
}

// Rollback restores a region's counter after a fatal sense failure; the
// sample is discarded entirely.
func (t *Task) Rollback(regID int) {
	t.Remaining[regID]++
	t.Finished = false
}

func (t *Task) refreshFinished() {
	for _, remaining := range t.Remaining {
		if remaining > 0 {
			t.Finished = false
			return
		}
	}
	t.Finished = true
}
