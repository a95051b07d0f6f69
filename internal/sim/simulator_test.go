package sim_test

import (
	"context"
	"testing"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/allocator"
	"github.com/elektrokombinacija/crowdsense/internal/category"
	"github.com/elektrokombinacija/crowdsense/internal/controller"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensemap"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/sim"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

// idealOracle never fails, never breaks down, and always takes exactly the
// ideal time for the agent's in-progress step, making runs deterministic.
type idealOracle struct{}

func (idealOracle) CanSense(a *agent.Agent) bool  { return true }
func (idealOracle) IsDamaged(a *agent.Agent) bool { return false }
func (idealOracle) ComputeDuration(a *agent.Agent) float64 {
	if a.Cursor+1 >= len(a.Steps) {
		return 0
	}
	switch a.State {
	case agent.Moving:
		return a.Steps[a.Cursor+1].IdealMovingTime
	case agent.Sensing:
		return a.Steps[a.Cursor+1].IdealSensingTime
	default:
		return 0
	}
}

func buildSingleTaskScenario(t *testing.T, gamma, numAgents int) (*sim.Simulator, []*agent.Agent, []*task.Task) {
	t.Helper()
	grid := geo.NewGrid(geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{10, 10}}, 10)
	slots := timeline.TimeRange{Start: 0, End: 1000}.Discretize(1000, 1000)
	cam := sensor.Sensor{ID: 0, Category: "camera", Accuracy: 1}
	cat := category.Aerial(0, []sensor.Sensor{cam}, 1)

	tk := task.New(0, task.Requirement{Category: "camera", Accuracy: 0.5}, geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{10, 10}}, timeline.TimeRange{Start: 0, End: 1000})
	tk.Publish(grid, gamma)
	tasks := []*task.Task{tk}

	var agents []*agent.Agent
	agentMap := make(map[int]*agent.Agent)
	for i := 0; i < numAgents; i++ {
		a := agent.New(i, cat, grid.Regions[0])
		agents = append(agents, a)
		agentMap[i] = a
	}

	sm := sensemap.New(grid.Regions, slots, []category.Category{cat}, grid.Diagonal(), sensemap.DefaultConfig(), nil)
	sm.BeginUpdating()
	ctx := allocator.NewContext(grid, slots, sm, 0.03, gamma, allocator.DefaultWeights(grid.Diagonal()), nil)

	ctrl := controller.New(grid, sm, allocator.TaskOriented{}, ctx, agents, tasks, controller.Config{RepairK: 1, SelfRepairEnabled: true}, nil)

	simulator := sim.New(agentMap, tasks, idealOracle{}, ctrl, sim.Config{Horizon: 1000}, nil)
	return simulator, agents, tasks
}

func TestSingleAgentSingleTaskRunsToCompletion(t *testing.T) {
	simulator, _, tasks := buildSingleTaskScenario(t, 1, 1)
	if err := simulator.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !tasks[0].Finished {
		t.Errorf("task should be finished, remaining=%v", tasks[0].Remaining)
	}
}

// overtimeOracle moves instantly but always takes a fixed, deliberately
// long time to sense, so a tight task window expires mid-sample.
type overtimeOracle struct{ sensingDuration float64 }

func (overtimeOracle) CanSense(a *agent.Agent) bool  { return true }
func (overtimeOracle) IsDamaged(a *agent.Agent) bool { return false }
func (o overtimeOracle) ComputeDuration(a *agent.Agent) float64 {
	if a.State == agent.Sensing {
		return o.sensingDuration
	}
	return 0
}

func TestWindowExpiryRollsBackRemaining(t *testing.T) {
	grid := geo.NewGrid(geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{10, 10}}, 10)
	slots := timeline.TimeRange{Start: 0, End: 1000}.Discretize(1000, 1000)
	cam := sensor.Sensor{ID: 0, Category: "camera", Accuracy: 1}
	// Speed 10 makes the ideal sample take 2 time units, so the planned
	// finish lies inside the 5-unit window and the task is allocated.
	cat := category.Aerial(0, []sensor.Sensor{cam}, 10)

	tk := task.New(0, task.Requirement{Category: "camera", Accuracy: 0.5}, geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{10, 10}}, timeline.TimeRange{Start: 0, End: 5})
	tk.Publish(grid, 1)
	regID := tk.TR[0].ID
	tasks := []*task.Task{tk}

	a := agent.New(0, cat, grid.Regions[0])
	agents := []*agent.Agent{a}
	agentMap := map[int]*agent.Agent{0: a}

	sm := sensemap.New(grid.Regions, slots, []category.Category{cat}, grid.Diagonal(), sensemap.DefaultConfig(), nil)
	sm.BeginUpdating()
	ctx := allocator.NewContext(grid, slots, sm, 0.03, 1, allocator.DefaultWeights(grid.Diagonal()), nil)
	ctrl := controller.New(grid, sm, allocator.TaskOriented{}, ctx, agents, tasks, controller.Config{RepairK: 1, SelfRepairEnabled: true}, nil)

	simulator := sim.New(agentMap, tasks, overtimeOracle{sensingDuration: 10}, ctrl, sim.Config{Horizon: 1000}, nil)

	if err := simulator.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if tasks[0].Alive {
		t.Errorf("task should no longer be alive after a past-window submit")
	}
	if tasks[0].Remaining[regID] != 1 {
		t.Errorf("remaining = %d, want 1 (rolled back)", tasks[0].Remaining[regID])
	}
}

func TestParallelSamplingInOneRegionSatisfiesCoverage(t *testing.T) {
	simulator, agents, tasks := buildSingleTaskScenario(t, 2, 2)
	if err := simulator.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !tasks[0].Finished {
		t.Errorf("task should be finished once both agents have sampled, remaining=%v", tasks[0].Remaining)
	}

	sampled := 0
	for _, a := range agents {
		if len(a.Steps) > 1 {
			sampled++
		}
	}
	if sampled != 2 {
		t.Errorf("%d agents sampled, want both of the 2 assigned", sampled)
	}
}
