package allocator

import (
	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/task"
)

// TaskOriented iterates regions, then tasks present in each region, and
// for each picks the single best agent by ΔUtility among feasible
// candidates. It commits an assignment only when a feasible agent was
// found for that (task, region) pass.
type TaskOriented struct{}

func (TaskOriented) Name() string { return "task-oriented" }

func (TaskOriented) Allocate(tasks []*task.Task, agents []*agent.Agent, ctx *Context) {
	regions := map[int]geo.Region{}
	tasksByRegion := map[int][]*task.Task{}
	for _, t := range tasks {
		if !t.Alive {
			continue
		}
		for _, r := range t.TR {
			regions[r.ID] = r
			tasksByRegion[r.ID] = append(tasksByRegion[r.ID], t)
		}
	}

	regionIDs := sortedKeys(regions)
	for _, regID := range regionIDs {
		reg := regions[regID]
		for _, t := range tasksByRegion[regID] {
			if ctx.SampleRecord[SampleKey{TaskID: t.ID, RegionID: reg.ID}] >= ctx.Gamma {
				continue
			}
			var best Candidate
			found := false
			for _, a := range agents {
				if a.IsBroken() || a.State == agent.Moving {
					continue
				}
				c, ok := feasible(ctx, t, reg, a)
				if !ok {
					continue
				}
				if !found || c.Utility > best.Utility {
					best = c
					found = true
				}
			}
			if found {
				if err := commit(ctx, best); err != nil {
					ctx.Log.Warnw("task-oriented: commit failed", "error", err)
				}
			} else {
				ctx.Log.Warnw("task-oriented: no feasible agent", "task", t.ID, "region", reg.ID)
			}
		}
	}
}

func sortedKeys(m map[int]geo.Region) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
