package agent

import (
	"errors"
	"testing"

	"github.com/elektrokombinacija/crowdsense/internal/category"
	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
	"github.com/elektrokombinacija/crowdsense/internal/simerr"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/timeline"
)

func testSetup() (*Agent, geo.Grid, sensor.Sensor, *task.Task) {
	grid := geo.NewGrid(geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{20, 10}}, 10)
	reg := grid.Regions[0]
	reg2 := grid.Regions[1]
	cam := sensor.Sensor{ID: 0, Category: "camera", Accuracy: 0.8}
	cat := category.Aerial(0, []sensor.Sensor{cam}, 1)
	a := New(0, cat, reg)
	tk := task.New(0, task.Requirement{Category: "camera", Accuracy: 0.5}, geo.Area{Min: reg2.Min, Max: geo.Point{reg2.Min.X + 10, reg2.Min.Y + 10}}, timeline.TimeRange{Start: 0, End: 1000})
	tk.Publish(grid, 1)
	return a, grid, cam, tk
}

func TestAssignTaskFromMovingIsViolation(t *testing.T) {
	a, _, cam, tk := testSetup()
	a.State = Moving
	if err := a.AssignTask(tk.TR[0], tk, cam); !errors.Is(err, simerr.ErrStateViolation) {
		t.Errorf("AssignTask while moving = %v, want ErrStateViolation", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	a, _, cam, tk := testSetup()
	reg := tk.TR[0]

	if err := a.AssignTask(reg, tk, cam); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if len(a.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(a.Steps))
	}

	if err := a.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if a.State != Moving {
		t.Fatalf("state = %v, want Moving", a.State)
	}

	if err := a.Sense(a.Steps[1].FinishTime); err != nil {
		t.Fatalf("Sense: %v", err)
	}
	if a.State != Sensing {
		t.Fatalf("state = %v, want Sensing", a.State)
	}
	if tk.Remaining[reg.ID] != 0 {
		t.Errorf("remaining = %d, want 0 after Begin", tk.Remaining[reg.ID])
	}

	if err := a.SubmitTasks(a.Steps[1].FinishTime); err != nil {
		t.Fatalf("SubmitTasks: %v", err)
	}
	if a.State != Idle {
		t.Fatalf("state = %v, want Idle", a.State)
	}
	if !a.IsFinishedMissions() {
		t.Errorf("expected finished missions after single-step plan")
	}
}

func TestSenseFromIdleIsViolation(t *testing.T) {
	a, _, _, _ := testSetup()
	if err := a.Sense(0); !errors.Is(err, simerr.ErrStateViolation) {
		t.Errorf("Sense from idle = %v, want ErrStateViolation", err)
	}
}

func TestCancelPlanFromMovingInterpolates(t *testing.T) {
	a, grid, cam, tk := testSetup()
	reg := tk.TR[0]
	_ = a.AssignTask(reg, tk, cam)
	_ = a.Execute()

	mid := a.Steps[1].FinishTime / 2
	if err := a.CancelPlan(mid, grid); err != nil {
		t.Fatalf("CancelPlan: %v", err)
	}
	if a.State != Idle {
		t.Errorf("state after cancel = %v, want Idle", a.State)
	}
	if len(a.Steps) != 2 {
		t.Errorf("got %d steps after cancel, want 2 (completed + resting)", len(a.Steps))
	}
}

func TestParallelSamplingSharesStepWhenSensorsDiffer(t *testing.T) {
	grid := geo.NewGrid(geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{20, 10}}, 10)
	reg := grid.Regions[1]
	cam := sensor.Sensor{ID: 0, Category: "camera", Accuracy: 0.8}
	thermal := sensor.Sensor{ID: 1, Category: "thermal", Accuracy: 0.8}
	cat := category.Ground(0, []sensor.Sensor{cam, thermal}, 1)
	a := New(0, cat, grid.Regions[0])

	regArea := geo.Area{Min: reg.Min, Max: geo.Point{X: reg.Min.X + 10, Y: reg.Min.Y + 10}}
	tk1 := task.New(0, task.Requirement{Category: "camera", Accuracy: 0.5}, regArea, timeline.TimeRange{Start: 0, End: 1000})
	tk1.Publish(grid, 1)
	tk2 := task.New(1, task.Requirement{Category: "thermal", Accuracy: 0.5}, regArea, timeline.TimeRange{Start: 0, End: 1000})
	tk2.Publish(grid, 1)

	if err := a.AssignTask(reg, tk1, cam); err != nil {
		t.Fatalf("AssignTask 1: %v", err)
	}
	if len(a.Steps) != 2 {
		t.Fatalf("got %d steps after first assignment, want 2", len(a.Steps))
	}

	if err := a.AssignTask(reg, tk2, thermal); err != nil {
		t.Fatalf("AssignTask 2: %v", err)
	}
	if len(a.Steps) != 2 {
		t.Fatalf("got %d steps after second assignment, want still 2 (shared step)", len(a.Steps))
	}
	last := a.Steps[1]
	if len(last.Tasks) != 2 || len(last.Sensors) != 2 {
		t.Errorf("shared step carries %d tasks / %d sensors, want 2/2", len(last.Tasks), len(last.Sensors))
	}
}

func TestMonotonicFinishTimeAndDistance(t *testing.T) {
	a, _, cam, tk := testSetup()
	reg := tk.TR[0]
	_ = a.AssignTask(reg, tk, cam)
	for i := 1; i < len(a.Steps); i++ {
		if a.Steps[i].FinishTime < a.Steps[i-1].FinishTime {
			t.Errorf("finish time decreased at step %d", i)
		}
		if a.Steps[i].Distance < a.Steps[i-1].Distance {
			t.Errorf("distance decreased at step %d", i)
		}
	}
}
