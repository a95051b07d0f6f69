package allocator

import (
	"math/rand"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/task"
)

// Random is the baseline allocator: it repeatedly samples a (task, region)
// with residual coverage uniformly, shuffles the agent list, and commits
// the first feasible agent it finds — or drops the subtask if none is
// feasible.
type Random struct {
	Rng *rand.Rand
}

func (r Random) Name() string { return "random" }

type randomSlot struct {
	task *task.Task
	reg  geo.Region
}

func (r Random) Allocate(tasks []*task.Task, agents []*agent.Agent, ctx *Context) {
	rng := r.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	var open []randomSlot
	for _, t := range tasks {
		if !t.Alive {
			continue
		}
		for _, reg := range t.TR {
			remaining := ctx.Gamma - ctx.SampleRecord[SampleKey{TaskID: t.ID, RegionID: reg.ID}]
			for i := 0; i < remaining; i++ {
				open = append(open, randomSlot{task: t, reg: reg})
			}
		}
	}
	rng.Shuffle(len(open), func(i, j int) { open[i], open[j] = open[j], open[i] })

	for _, s := range open {
		key := SampleKey{TaskID: s.task.ID, RegionID: s.reg.ID}
		if ctx.SampleRecord[key] >= ctx.Gamma {
			continue
		}

		shuffled := make([]*agent.Agent, len(agents))
		copy(shuffled, agents)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		committed := false
		for _, a := range shuffled {
			if a.IsBroken() || a.State == agent.Moving {
				continue
			}
			if c, ok := feasible(ctx, s.task, s.reg, a); ok {
				if err := commit(ctx, c); err != nil {
					ctx.Log.Warnw("random: commit failed", "error", err)
					continue
				}
				committed = true
				break
			}
		}
		if !committed {
			ctx.Log.Warnw("random: no feasible agent, dropping subtask", "task", s.task.ID, "region", s.reg.ID)
		}
	}
}
