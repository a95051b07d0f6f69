// Package scenario builds a runnable crowd-sensing deployment — grid,
// categories, agents, tasks, sense-map, allocator, and controller — from a
// config.Scenario, the way the teacher's cmd/mapfhet test-instance builders
// assemble a core.Instance from a handful of constants.
package scenario

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/allocator"
	"github.com/elektrokombinacija/crowdsense/internal/category"
	"github.com/elektrokombinacija/crowdsense/internal/config"
	"github.com/elektrokombinacija/crowdsense/internal/controller"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensemap"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/sim"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
	"github.com/elektrokombinacija/crowdsense/internal/world"
)

// Deployment is everything a CLI run needs: the wired simulator, the
// agents and tasks it owns (for summary reporting), and the sense-map the
// controller maintains.
type Deployment struct {
	Sim     *sim.Simulator
	Ctrl    *controller.Controller
	Agents  []*agent.Agent
	Tasks   []*task.Task
	SenseMp *sensemap.SenseMap
	Grid    geo.Grid
}

func pickAllocator(name string) (allocator.Allocator, error) {
	switch name {
	case "", "robot-oriented":
		return allocator.RobotOriented{}, nil
	case "task-oriented":
		return allocator.TaskOriented{}, nil
	case "random":
		return allocator.Random{Rng: rand.New(rand.NewSource(1))}, nil
	default:
		return nil, fmt.Errorf("scenario: unknown allocator %q", name)
	}
}

// Build assembles a demo deployment over a 3x3 region grid, one agent per
// category, and two sampling tasks: one over the lower-left corner region
// and one over the four upper-right regions.
func Build(cfg config.Scenario, log *zap.SugaredLogger) (*Deployment, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	side := cfg.GridGranularity
	if side <= 0 {
		side = 10
	}
	grid := geo.NewGrid(geo.Area{Min: geo.Point{X: 0, Y: 0}, Max: geo.Point{X: 3 * side, Y: 3 * side}}, side)

	slots := timeline.TimeRange{Start: 0, End: cfg.TimeCycleLength}.Discretize(cfg.TimeGranularity, cfg.TimeCycleLength)

	sensors := sensor.NewRegistry()
	camera := sensors.New("camera", 0.8, 5)
	thermal := sensors.New("thermal", 0.6, 3)

	aerial := category.Aerial(0, []sensor.Sensor{camera}, 3.0)
	ground := category.Ground(1, []sensor.Sensor{camera, thermal}, 1.5)
	small := category.SmallGround(2, []sensor.Sensor{thermal}, 0.8)
	cats := []category.Category{aerial, ground, small}

	agents := []*agent.Agent{
		agent.New(0, aerial, grid.Regions[0]),
		agent.New(1, ground, grid.Regions[len(grid.Regions)-1]),
		agent.New(2, small, grid.Regions[len(grid.Regions)/2]),
	}

	tasks := []*task.Task{
		task.New(0, task.Requirement{Category: "camera", Accuracy: 0.5}, geo.Area{Min: geo.Point{X: 0, Y: 0}, Max: grid.Area.Center()}, timeline.TimeRange{Start: 0, End: cfg.TimeCycleLength}),
		task.New(1, task.Requirement{Category: "thermal", Accuracy: 0.5}, geo.Area{Min: grid.Area.Center(), Max: grid.Area.Max}, timeline.TimeRange{Start: 0, End: cfg.TimeCycleLength}),
	}
	for _, t := range tasks {
		t.Publish(grid, cfg.Gamma)
	}

	mapCfg := sensemap.Config{Rho: cfg.Rho, SigmaNoise: cfg.SigmaNoise, Kappa: cfg.MapKappa, HistoryMax: cfg.HistoryLen}
	sm := sensemap.New(grid.Regions, slots, cats, grid.Diagonal(), mapCfg, log)

	weights := allocator.Weights{Theta: cfg.Thetas, Lambda: [3]float64{cfg.Lambdas[0], grid.Diagonal(), cfg.Lambdas[2]}}
	ctx := allocator.NewContext(grid, slots, sm, cfg.Kappa, cfg.Gamma, weights, log)

	alloc, err := pickAllocator(cfg.Allocator)
	if err != nil {
		return nil, err
	}

	ctrlCfg := controller.Config{RepairK: cfg.RepairK, SelfRepairEnabled: cfg.SelfRepair}
	ctrl := controller.New(grid, sm, alloc, ctx, agents, tasks, ctrlCfg, log)

	oracle := world.NewSimulatedOracle(cfg.Seed, map[int]world.CategoryParams{
		aerial.ID: world.DefaultCategoryParams(),
		ground.ID: world.DefaultCategoryParams(),
		small.ID:  world.DefaultCategoryParams(),
	})

	agentMap := make(map[int]*agent.Agent, len(agents))
	for _, a := range agents {
		agentMap[a.ID] = a
	}

	simulator := sim.New(agentMap, tasks, oracle, ctrl, sim.Config{Horizon: cfg.Horizon}, log)

	return &Deployment{Sim: simulator, Ctrl: ctrl, Agents: agents, Tasks: tasks, SenseMp: sm, Grid: grid}, nil
}
