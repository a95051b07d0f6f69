// Package controller implements the crowd-sensing controller: the
// sim.Controller counterpart that owns the sense-map, performs the initial
// allocation, folds submit outcomes into the map, and runs the
// locality-restricted self-repair loop when a message warrants it.
package controller

import (
	"sort"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/allocator"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensemap"
	"github.com/elektrokombinacija/crowdsense/internal/sim"
	"github.com/elektrokombinacija/crowdsense/internal/task"
)

// UpdateRatioThreshold is the spec's fixed soft self-repair trigger: once
// the sense-map's update ratio (observations folded in since the last
// rollover, per cell of the tensor) exceeds it, the next message replans
// regardless of its status.
const UpdateRatioThreshold = 0.8

// Config bundles the controller's tunable, non-allocator parameters.
type Config struct {
	// RepairK is the repair_k multiplier in [0,1]; k = round(RepairK *
	// len(agents)). 1.0 means full-scope repair.
	RepairK float64
	// SelfRepairEnabled turns the whole self-repair loop on or off; when
	// false, every message is answered with Continue and nothing is
	// replanned.
	SelfRepairEnabled bool
}

// DefaultConfig returns the spec's default repair parameters.
func DefaultConfig() Config {
	return Config{RepairK: 1.0, SelfRepairEnabled: true}
}

// Controller owns the sense-map and the agents' and tasks' ground truth
// from the allocator's perspective; the Simulator owns agent execution.
type Controller struct {
	Grid    geo.Grid
	SenseMp *sensemap.SenseMap
	Alloc   allocator.Allocator
	AllocCtx *allocator.Context

	Agents []*agent.Agent
	Tasks  []*task.Task

	cfg Config
	log *zap.SugaredLogger

	byID map[int]*agent.Agent
}

// New builds a Controller. allocCtx must already be constructed (it carries
// the running γ-coverage ledger, the utility weights, and the sense-map
// reference the allocator reads from).
func New(grid geo.Grid, sm *sensemap.SenseMap, alloc allocator.Allocator, allocCtx *allocator.Context, agents []*agent.Agent, tasks []*task.Task, cfg Config, log *zap.SugaredLogger) *Controller {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	byID := make(map[int]*agent.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	return &Controller{
		Grid:     grid,
		SenseMp:  sm,
		Alloc:    alloc,
		AllocCtx: allocCtx,
		Agents:   agents,
		Tasks:    tasks,
		cfg:      cfg,
		log:      log,
		byID:     byID,
	}
}

// Start seeds the sense-map's belief cells and performs the initial
// allocation over every agent and every published task.
func (c *Controller) Start() {
	c.SenseMp.BeginUpdating()
	c.Alloc.Allocate(c.Tasks, c.Agents, c.AllocCtx)
}

// OnMessage folds submit outcomes into the sense-map, then decides whether
// the message warrants self-repair.
func (c *Controller) OnMessage(msg sim.Message) sim.Feedback {
	switch msg.Status {
	case sim.SubmitOK, sim.PlanInfeasible:
		if err := c.SenseMp.Update(msg.RegionID, msg.CategoryID, msg.Time, msg.IdealUsed, msg.RealUsed, false); err != nil {
			c.log.Warnw("controller: sense-map update failed", "msg_id", msg.ID, "error", err)
		}
	case sim.CannotSenseRegion:
		if err := c.SenseMp.Update(msg.RegionID, msg.CategoryID, msg.Time, msg.IdealUsed, msg.RealUsed, true); err != nil {
			c.log.Warnw("controller: sense-map update failed", "msg_id", msg.ID, "error", err)
		}
	}

	if !c.cfg.SelfRepairEnabled || !c.needRepairing(msg) {
		return sim.Feedback{Status: sim.Continue}
	}

	scope := c.repairScope(msg.AgentID)
	if len(scope) == 0 {
		// repair_k rounded down to zero agents, or (for a restricted scope)
		// the reporter is unknown or broken: nothing to replan, so the
		// failure is simply absorbed rather than retried.
		return sim.Feedback{Status: sim.SkipSample}
	}

	ids := make([]int, 0, len(scope))
	var unfinished []*task.Task
	seen := make(map[int]bool)
	for _, a := range scope {
		ids = append(ids, a.ID)
		if a.State != agent.Sensing {
			if err := a.CancelPlan(msg.Time, c.Grid); err != nil {
				c.log.Warnw("controller: cancel plan failed", "agent", a.ID, "error", err)
			}
		}
		for _, t := range a.UnfinishedTasks() {
			if !seen[t.ID] {
				seen[t.ID] = true
				unfinished = append(unfinished, t)
			}
		}
	}

	c.Alloc.Allocate(unfinished, scope, c.AllocCtx)
	c.log.Infow("controller: self-repair episode", "msg_id", msg.ID, "reporter", msg.AgentID, "scope", ids)
	return sim.Feedback{Status: sim.Repair, RepairSet: ids}
}

// needRepairing is the spec's trigger: any non-success outcome, or the
// sense-map having drifted past its update-ratio threshold.
func (c *Controller) needRepairing(msg sim.Message) bool {
	return msg.Status != sim.SubmitOK || c.SenseMp.UpdateRatio() > UpdateRatioThreshold
}

// repairScope builds the re-plan set S: every non-broken agent when
// repair_k rounds up to the full fleet, otherwise the k nearest agents to
// the incident reporter by current-location Euclidean distance (the
// reporter always included).
func (c *Controller) repairScope(reporterID int) []*agent.Agent {
	k := int(c.cfg.RepairK*float64(len(c.Agents)) + 0.5)
	if k <= 0 {
		return nil
	}
	if k >= len(c.Agents) {
		var all []*agent.Agent
		for _, a := range c.Agents {
			if !a.IsBroken() {
				all = append(all, a)
			}
		}
		return all
	}

	reporter, ok := c.byID[reporterID]
	if !ok || reporter.IsBroken() {
		return nil
	}

	candidates := make([]*agent.Agent, 0, len(c.Agents))
	for _, a := range c.Agents {
		if !a.IsBroken() {
			candidates = append(candidates, a)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ID == reporterID {
			return true
		}
		if candidates[j].ID == reporterID {
			return false
		}
		return reporter.DistBetween(candidates[i]) < reporter.DistBetween(candidates[j])
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}
