// Package allocator implements the utility-driven subtask allocation
// shared by the RobotOriented, TaskOriented, and Random strategies: a
// common ΔUtility formula, a feasibility check, and the bookkeeping of
// how many samples have been committed per (task, region).
package allocator

import (
	"go.uber.org/zap"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensemap"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

// Weights are the ΔUtility term weights and their normalizers.
type Weights struct {
	Theta  [3]float64
	Lambda [3]float64
}

// DefaultWeights returns the spec's default (1,1,3)/3 weighting, normalized
// by (1, diagonal, 1).
func DefaultWeights(areaDiagonal float64) Weights {
	return Weights{Theta: [3]float64{1.0 / 3, 1.0 / 3, 1}, Lambda: [3]float64{1, areaDiagonal, 1}}
}

// SampleKey identifies one (task, region) subtask for the γ-coverage ledger.
type SampleKey struct {
	TaskID, RegionID int
}

// Context carries every input the three allocator strategies share: the
// grid and time slots (for acquisition lookups), the sense-map, the
// exploration weight kappa, the coverage multiplicity gamma, the utility
// weights, and the running sample ledger.
type Context struct {
	Grid    geo.Grid
	Slots   []timeline.TimeSlot
	SenseMp *sensemap.SenseMap
	Kappa   float64
	Gamma   int
	Weights Weights
	Log     *zap.SugaredLogger

	SampleRecord map[SampleKey]int
}

// NewContext builds an allocation context with a fresh sample ledger.
func NewContext(grid geo.Grid, slots []timeline.TimeSlot, sm *sensemap.SenseMap, kappa float64, gamma int, weights Weights, log *zap.SugaredLogger) *Context {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Context{Grid: grid, Slots: slots, SenseMp: sm, Kappa: kappa, Gamma: gamma, Weights: weights, Log: log, SampleRecord: make(map[SampleKey]int)}
}

// Candidate is one feasible (task, region, agent, sensor) placement and its
// utility.
type Candidate struct {
	Task    *task.Task
	Region  geo.Region
	Agent   *agent.Agent
	Sensor  sensor.Sensor
	Finish  float64
	Utility float64
}

// Allocator assigns subtasks to agents' plans.
type Allocator interface {
	Name() string
	Allocate(tasks []*task.Task, agents []*agent.Agent, ctx *Context)
}

// feasible finds the agent's best (finish time, sensor) pairing for
// serving t at reg, honoring the γ-coverage ledger, and returns it as a
// Candidate plus whether one exists.
func feasible(ctx *Context, t *task.Task, reg geo.Region, a *agent.Agent) (Candidate, bool) {
	key := SampleKey{TaskID: t.ID, RegionID: reg.ID}
	if ctx.SampleRecord[key] >= ctx.Gamma {
		return Candidate{}, false
	}

	plans := a.PossiblePlan(reg, t)
	if len(plans) == 0 {
		return Candidate{}, false
	}
	best := plans[0]
	for _, p := range plans[1:] {
		if p.Finish < best.Finish {
			best = p
		}
	}
	if !t.TimeRange.Contains(best.Finish) {
		return Candidate{}, false
	}

	u := deltaUtility(ctx, a, reg, best.Finish)
	return Candidate{Task: t, Region: reg, Agent: a, Sensor: best.Sensor, Finish: best.Finish, Utility: u}, true
}

// deltaUtility implements the shared ΔUtility formula: a constant reward
// term, a penalty on additional travel distance, and a reward for the
// sense-map's acquisition signal at the arrival time's slot.
func deltaUtility(ctx *Context, a *agent.Agent, reg geo.Region, arriveTime float64) float64 {
	w := ctx.Weights
	reward := w.Theta[0] / nz(w.Lambda[0])

	distancePenalty := 0.0
	if len(a.Steps) > 0 {
		last := a.Steps[len(a.Steps)-1]
		taskDist := a.Category.InterD(last.Region, reg)
		distancePenalty = w.Theta[1] * (last.Distance + taskDist) / nz(w.Lambda[1])
	}

	acq := 0.0
	if ts, ok := timeline.SlotFor(ctx.Slots, arriveTime); ok {
		acq = ctx.SenseMp.AcquireFunction(sensemap.Key{Reg: reg.ID, TS: ts.ID, Cat: a.Category.ID}, ctx.Kappa)
	}
	acqReward := w.Theta[2] * acq / nz(w.Lambda[2])

	return reward - distancePenalty + acqReward
}

func nz(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// commit assigns the candidate's subtask onto its agent's plan and
// increments the γ-coverage ledger.
func commit(ctx *Context, c Candidate) error {
	if err := c.Agent.AssignTask(c.Region, c.Task, c.Sensor); err != nil {
		return err
	}
	ctx.SampleRecord[SampleKey{TaskID: c.Task.ID, RegionID: c.Region.ID}]++
	return nil
}
