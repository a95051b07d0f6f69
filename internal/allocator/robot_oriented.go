package allocator

import (
	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/task"
)

// RobotOriented builds the full (task, region, agent) feasibility table and
// repeatedly commits the global-argmax candidate, recomputing only the
// winning agent's remaining entries afterward (its plan tail, and so its
// distance penalty, changed).
type RobotOriented struct{}

func (RobotOriented) Name() string { return "robot-oriented" }

func (RobotOriented) Allocate(tasks []*task.Task, agents []*agent.Agent, ctx *Context) {
	var entries []Candidate
	for _, t := range tasks {
		if !t.Alive {
			continue
		}
		for _, reg := range t.TR {
			for _, a := range agents {
				if a.IsBroken() || a.State == agent.Moving {
					continue
				}
				if c, ok := feasible(ctx, t, reg, a); ok {
					entries = append(entries, c)
				}
			}
		}
	}

	for len(entries) > 0 {
		bestIdx := -1
		for i, c := range entries {
			if ctx.SampleRecord[SampleKey{TaskID: c.Task.ID, RegionID: c.Region.ID}] >= ctx.Gamma {
				continue
			}
			if bestIdx == -1 || c.Utility > entries[bestIdx].Utility {
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		winner := entries[bestIdx]
		entries = removeAt(entries, bestIdx)

		if err := commit(ctx, winner); err != nil {
			ctx.Log.Warnw("robot-oriented: commit failed", "error", err)
			continue
		}

		// The winning agent's plan tail changed: recompute every remaining
		// entry that references it, dropping any that are no longer
		// feasible.
		kept := entries[:0]
		for _, c := range entries {
			if c.Agent != winner.Agent {
				kept = append(kept, c)
				continue
			}
			if updated, ok := feasible(ctx, c.Task, c.Region, c.Agent); ok {
				kept = append(kept, updated)
			}
		}
		entries = kept
	}

	for _, t := range tasks {
		for _, reg := range t.TR {
			key := SampleKey{TaskID: t.ID, RegionID: reg.ID}
			if ctx.SampleRecord[key] == 0 {
				ctx.Log.Warnw("robot-oriented: no feasible agent", "task", t.ID, "region", reg.ID)
			}
		}
	}
}

// removeAt drops the candidate at i, preserving the insertion order of the
// remaining candidates so later tie-breaks stay stable.
func removeAt(s []Candidate, i int) []Candidate {
	return append(s[:i:i], s[i+1:]...)
}
