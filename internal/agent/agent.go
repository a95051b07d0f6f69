// Package agent implements the mobile sensing agent: its category, its
// sequence of planned steps, and the guarded state machine
// (Idle -> Moving -> Sensing -> Idle, plus Broken) that every plan mutation
// must go through.
package agent

import (
	"fmt"

	"github.com/elektrokombinacija/crowdsense/internal/category"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/simerr"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

// State is the agent's position in its guarded state machine.
type State int

const (
	Idle State = iota
	Moving
	Sensing
	Broken
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Sensing:
		return "sensing"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// StepRecord is one planned (or completed) stop in an agent's itinerary. It
// replaces the source's set of parallel arrays with a single sequence so
// that truncating the plan at a cursor is one slice operation instead of
// eight that must stay in lockstep.
type StepRecord struct {
	Region  geo.Region
	Tasks   []*task.Task
	Sensors []sensor.Sensor

	Distance         float64 // cumulative planned travel distance through this step
	FinishTime       float64 // planned completion time; overwritten with real time on submit
	IdealTimeUsed    float64
	IdealMovingTime  float64
	IdealSensingTime float64
}

// Agent is a mobile sensing agent.
type Agent struct {
	ID         int
	Category   category.Category
	InitRegion geo.Region

	State    State
	Location geo.Point
	Current  geo.Region
	Cursor   int
	Steps    []StepRecord
}

// New constructs an agent resting at initRegion with an empty plan.
func New(id int, cat category.Category, initRegion geo.Region) *Agent {
	return &Agent{
		ID:         id,
		Category:   cat,
		InitRegion: initRegion,
		State:      Idle,
		Location:   initRegion.Center(),
		Current:    initRegion,
		Steps: []StepRecord{
			{Region: initRegion, FinishTime: 0},
		},
	}
}

func violation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, simerr.ErrStateViolation)...)
}

func (a *Agent) lastStep() *StepRecord {
	return &a.Steps[len(a.Steps)-1]
}

// IsFinishedMissions reports whether the agent has executed its entire plan
// and returned to Idle.
func (a *Agent) IsFinishedMissions() bool {
	return a.Cursor >= len(a.Steps)-1 && a.State == Idle
}

// IsBroken reports whether the agent has broken down.
func (a *Agent) IsBroken() bool {
	return a.State == Broken
}

// UnfinishedTasks collects every distinct task still referenced by steps
// beyond the current cursor.
func (a *Agent) UnfinishedTasks() []*task.Task {
	seen := make(map[*task.Task]struct{})
	var out []*task.Task
	for _, step := range a.Steps[a.Cursor+1:] {
		for _, t := range step.Tasks {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

// DistBetween returns the Euclidean distance between this agent's current
// location and another's — used by the controller to pick the k agents
// nearest an incident.
func (a *Agent) DistBetween(other *Agent) float64 {
	return geo.Euclidean(a.Location, other.Location)
}

// MoveDistance returns the total planned travel distance accumulated so far.
func (a *Agent) MoveDistance() float64 {
	if len(a.Steps) == 0 {
		return 0
	}
	return a.lastStep().Distance
}

func canOverlap(last StepRecord, initRegion geo.Region, reg geo.Region, s sensor.Sensor, moveTime float64) bool {
	if last.Region.ID == initRegion.ID {
		return false // the agent has not actually moved anywhere yet
	}
	if moveTime != 0 || last.Region.ID != reg.ID {
		return false
	}
	for _, used := range last.Sensors {
		if used.ID == s.ID {
			return false
		}
	}
	return true
}

// IdealFinishTime computes the ideal completion time of sensing region reg
// with sensor s, given the agent's current plan tail and the task's active
// window. When the agent is Sensing, a new step always follows the one in
// progress. Otherwise, if the destination step can run concurrently with
// the last planned step (same region, zero travel, a not-yet-used sensor,
// and the agent has already left its initial region), its finish time is
// reused; otherwise the agent is assumed to idle at the region until the
// task's window opens, then sample.
func (a *Agent) IdealFinishTime(reg geo.Region, s sensor.Sensor, tr timeline.TimeRange) float64 {
	last := a.lastStep()
	moveDist := a.Category.InterD(last.Region, reg)
	moveTime := moveDist / a.Category.Speed
	intra := a.Category.IntraD(reg) / a.Category.Speed

	if a.State == Sensing {
		return last.FinishTime + intra + moveTime
	}
	if canOverlap(*last, a.InitRegion, reg, s, moveTime) {
		return last.FinishTime
	}
	arrive := last.FinishTime + moveTime
	if arrive < tr.Start {
		arrive = tr.Start
	}
	return arrive + intra
}

// PossiblePlan returns, for every sensor this agent's category carries that
// is adequate for t, the (idealFinishTime, sensor) pair.
func (a *Agent) PossiblePlan(reg geo.Region, t *task.Task) []struct {
	Finish float64
	Sensor sensor.Sensor
} {
	var out []struct {
		Finish float64
		Sensor sensor.Sensor
	}
	for _, s := range a.Category.Sensors {
		if t.AdequateSensor(s) {
			out = append(out, struct {
				Finish float64
				Sensor sensor.Sensor
			}{a.IdealFinishTime(reg, s, t.TimeRange), s})
		}
	}
	return out
}

// AssignTask plans a new sensing subtask at region reg using sensor s on
// behalf of t, appending it to the last planned step when the agent can
// sample concurrently, or pushing a new step otherwise. Only permitted from
// Idle or Sensing; Moving and Broken agents reject new assignments.
func (a *Agent) AssignTask(reg geo.Region, t *task.Task, s sensor.Sensor) error {
	if a.State == Moving {
		return violation("agent %d: cannot assign task while moving", a.ID)
	}
	if a.State == Broken {
		return violation("agent %d: cannot assign task while broken", a.ID)
	}

	last := a.lastStep()
	moveDist := a.Category.InterD(last.Region, reg)
	moveTime := moveDist / a.Category.Speed
	finish := a.IdealFinishTime(reg, s, t.TimeRange)

	if a.State != Sensing && canOverlap(*last, a.InitRegion, reg, s, moveTime) {
		last.Tasks = append(last.Tasks, t)
		last.Sensors = append(last.Sensors, s)
		return nil
	}

	intraDist := a.Category.IntraD(reg)
	step := StepRecord{
		Region:           reg,
		Tasks:            []*task.Task{t},
		Sensors:          []sensor.Sensor{s},
		Distance:         last.Distance + moveDist + intraDist,
		FinishTime:       finish,
		IdealMovingTime:  moveTime,
		IdealSensingTime: intraDist / a.Category.Speed,
	}
	step.IdealTimeUsed = step.IdealMovingTime + step.IdealSensingTime
	a.Steps = append(a.Steps, step)
	return nil
}

// CancelPlan preempts the agent's plan at the given real time. From Moving
// it interpolates the agent's true position along its current leg, drops
// every later step, and returns the agent to Idle at that position. From
// Sensing it only drops steps strictly beyond the one in progress, leaving
// the active sample to complete undisturbed. From Idle it discards the
// whole plan and resets to the initial region.
func (a *Agent) CancelPlan(now float64, grid geo.Grid) error {
	switch a.State {
	case Broken:
		return violation("agent %d: cannot cancel plan while broken", a.ID)
	case Moving:
		cursor := a.Cursor
		prevFinish := a.Steps[cursor].FinishTime
		cur := a.Steps[cursor+1]
		p := 0.0
		if cur.IdealTimeUsed > 0 {
			p = (now - prevFinish) / cur.IdealTimeUsed
		}
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		loc := a.Category.Locate(a.Steps[cursor].Region, cur.Region, p, grid)
		a.Steps = a.Steps[:cursor+1]
		a.Steps = append(a.Steps, StepRecord{Region: loc, FinishTime: now, Distance: a.Steps[cursor].Distance})
		a.Cursor = cursor + 1
		a.Current = loc
		a.Location = loc.Center()
		a.State = Idle
	case Sensing:
		if a.Cursor+2 < len(a.Steps) {
			a.Steps = a.Steps[:a.Cursor+2]
		}
	case Idle:
		a.Steps = a.Steps[:1]
		a.Cursor = 0
		a.Current = a.InitRegion
		a.Location = a.InitRegion.Center()
	}
	return nil
}

// Execute advances the agent from Idle into Moving toward its next planned
// step.
func (a *Agent) Execute() error {
	if a.State != Idle {
		return violation("agent %d: execute only valid from idle, in %s", a.ID, a.State)
	}
	if a.Cursor+1 >= len(a.Steps) {
		return nil // nothing left to do; stays idle
	}
	a.State = Moving
	return nil
}

// Sense transitions a Moving agent into Sensing at its destination step and
// begins each of that step's subtasks' transactions.
func (a *Agent) Sense(now float64) error {
	if a.State != Moving {
		return violation("agent %d: sense only valid while moving, in %s", a.ID, a.State)
	}
	step := a.Steps[a.Cursor+1]
	for _, t := range step.Tasks {
		if err := t.Begin(step.Region.ID); err != nil {
			return err
		}
	}
	a.State = Sensing
	a.Current = step.Region
	a.Location = step.Region.Center()
	return nil
}

// SubmitTasks commits the in-progress step's subtasks at real time now,
// advances the cursor, and transitions to Moving (if another step remains)
// or Idle (if the plan is exhausted).
func (a *Agent) SubmitTasks(now float64) error {
	if a.State != Sensing {
		return violation("agent %d: submit only valid while sensing, in %s", a.ID, a.State)
	}
	a.Cursor++
	step := &a.Steps[a.Cursor]
	step.FinishTime = now
	for _, t := range step.Tasks {
		if err := t.Commit(step.Region.ID, now); err != nil {
			// overtime is a business failure, not fatal: the rollback already
			// happened inside Commit.
			_ = err
		}
	}
	if a.Cursor+1 < len(a.Steps) {
		a.State = Moving
	} else {
		a.State = Idle
	}
	return nil
}

// SetBroken transitions the agent into the terminal Broken state.
func (a *Agent) SetBroken() {
	a.State = Broken
}

// CanFinishTaskInTime reports whether the agent's current step can still
// complete within its allotted ideal time budget, given that it reached the
// start of the step at `now` (which must equal the previous step's finish
// time).
func (a *Agent) CanFinishTaskInTime(now float64) bool {
	if a.IsFinishedMissions() {
		return true
	}
	next := a.Steps[a.Cursor+1]
	return now+next.IdealTimeUsed <= next.FinishTime
}
